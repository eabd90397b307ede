package naming

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ArtifactExtension is appended to every artifact name.
const ArtifactExtension = ".txt"

// indexSuffix marks the artifact of a site root.
const indexSuffix = "_index"

// ArtifactName derives the artifact file name for an address from its path.
// An empty or "/" path is replaced by the host plus "_index", and the
// combined name is sanitized again so it stays within MaxNameLength. The
// path is kept percent-encoded, so '%' sequences sanitize to '_'.
func ArtifactName(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return Sanitize(address) + ArtifactExtension
	}

	path := u.EscapedPath()
	if path == "" || path == "/" {
		return Sanitize(Sanitize(u.Host)+indexSuffix) + ArtifactExtension
	}
	return Sanitize(strings.Trim(path, "/")) + ArtifactExtension
}

// ArtifactNamer issues artifact names for one extraction batch. Two
// different addresses that map to the same name do not overwrite each
// other: the later one gets an "_<hash>" suffix computed from its address.
// Asking again for an address returns the name it got the first time.
//
// ArtifactNamer is safe for concurrent use.
type ArtifactNamer struct {
	mu     sync.Mutex
	byName map[string]string // issued name -> address
	byAddr map[string]string // address -> issued name
}

// NewArtifactNamer creates an empty ArtifactNamer.
func NewArtifactNamer() *ArtifactNamer {
	return &ArtifactNamer{
		byName: make(map[string]string),
		byAddr: make(map[string]string),
	}
}

// Name returns the artifact file name for address in this batch.
func (n *ArtifactNamer) Name(address string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if name, ok := n.byAddr[address]; ok {
		return name
	}

	name := ArtifactName(address)
	if owner, taken := n.byName[name]; taken && owner != address {
		stem := strings.TrimSuffix(name, ArtifactExtension)
		name = fmt.Sprintf("%s_%s%s", stem, shortHash(address), ArtifactExtension)
	}

	n.byName[name] = address
	n.byAddr[address] = name
	return name
}

// shortHash returns the first 8 hex digits of the xxhash64 of s.
func shortHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))[:8]
}
