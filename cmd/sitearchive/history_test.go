package main

import (
	"context"
	"strings"
	"testing"

	"github.com/nao1215/sitearchive/internal/database"
	"github.com/nao1215/sitearchive/internal/model"
)

// seedHistory records one session with a failed page and returns the
// database directory.
func seedHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	base := "https://docs.example.com/guide"
	report := model.NewSessionReport(base)
	report.Discovery = &model.DiscoveryResult{BaseURL: base, Links: []string{base, base + "/a"}}
	report.OutputDir = "/tmp/out"
	summary := model.NewSummary(base, report.OutputDir)
	summary.Add(model.ExtractionResult{URL: base, Path: "/tmp/out/docs.example.com_guide.txt", Rule: "main"})
	summary.Add(model.ExtractionResult{URL: base + "/a", Reason: model.ReasonRequestError, Detail: "404 Not Found"})
	summary.Finish()
	report.Summary = summary

	if _, err := db.SaveSession(context.Background(), report); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	return dir
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dir := seedHistory(t)

	// Subtests share one database file and run sequentially.
	t.Run("list", func(t *testing.T) {
		out, err := runRoot(t, "", "history", "list", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "https://docs.example.com/guide") || !strings.Contains(out, "1/2") {
			t.Errorf("unexpected list output:\n%s", out)
		}
	})

	t.Run("list sites", func(t *testing.T) {
		out, err := runRoot(t, "", "history", "list", "--sites", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Recorded sites (1)") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("show", func(t *testing.T) {
		out, err := runRoot(t, "", "history", "show", "1", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Extracted 1 of 2 pages") || !strings.Contains(out, "(request-error)") {
			t.Errorf("unexpected show output:\n%s", out)
		}
	})

	t.Run("failed", func(t *testing.T) {
		out, err := runRoot(t, "", "history", "failed", "1", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(out) != "https://docs.example.com/guide/a" {
			t.Errorf("failed output = %q", out)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := runRoot(t, "", "history", "show", "99", "--db-dir", dir)
		if err == nil || !strings.Contains(err.Error(), "no session with id 99") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		if _, err := runRoot(t, "", "history", "failed", "abc", "--db-dir", dir); err == nil {
			t.Error("expected error for a non-numeric id")
		}
	})
}

func TestHistoryCmd_Empty(t *testing.T) {
	t.Parallel()

	out, err := runRoot(t, "", "history", "list", "--db-dir", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No sessions recorded yet") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
