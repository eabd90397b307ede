package naming

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SessionTimeFormat is the timestamp layout of session directory names.
const SessionTimeFormat = "2006-01-02_15-04-05"

// ErrCreateSessionDir wraps every failure to create a session directory.
// It is fatal for the extraction batch that needed the directory.
var ErrCreateSessionDir = errors.New("failed to create session directory")

// maxSessionDirAttempts bounds the numeric suffixes tried when a session
// directory with the same name already exists.
const maxSessionDirAttempts = 1000

// SessionBaseName returns the sanitized, timestamp-free part of a session
// directory name: the host without "www." plus the path segments joined
// with '_'. The path stays percent-encoded. A base without a scheme is
// treated as a bare host.
func SessionBaseName(base string) string {
	raw := base
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	var host, path string
	if u, err := url.Parse(raw); err == nil {
		host = u.Host
		path = u.EscapedPath()
	} else {
		host = base
	}

	host = strings.ReplaceAll(host, "www.", "")
	path = strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")

	name := Sanitize(host)
	if path != "" {
		name += "_" + Sanitize(path)
	}
	return Sanitize(name)
}

// SessionDirName returns "<base>_<YYYY-MM-DD_HH-MM-SS>" for base at now.
func SessionDirName(base string, now time.Time) string {
	return SessionBaseName(base) + "_" + now.Format(SessionTimeFormat)
}

// SessionDir creates a fresh session directory for base under root and
// returns its path. Missing parents of root are created. If a directory
// with the same name exists, for example because two sessions started in
// the same second, "_1", "_2", ... is appended.
//
// Every error wraps ErrCreateSessionDir.
func SessionDir(root, base string, now time.Time) (string, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreateSessionDir, err)
	}

	name := SessionDirName(base, now)
	for i := 0; i < maxSessionDirAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", name, i)
		}
		dir := filepath.Join(root, candidate)

		err := os.Mkdir(dir, 0o750)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %w", ErrCreateSessionDir, err)
		}
	}
	return "", fmt.Errorf("%w: %s: too many sessions with the same name", ErrCreateSessionDir, name)
}

// EnsureDir validates a caller-provided output directory, creating it if
// needed. It is used instead of SessionDir when extraction should write
// into an existing session.
func EnsureDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: empty directory", ErrCreateSessionDir)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreateSessionDir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreateSessionDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrCreateSessionDir, dir)
	}
	return dir, nil
}
