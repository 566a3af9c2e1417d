package audit

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fdu/internal/auditlog"
	"fdu/internal/database"
	"fdu/internal/portal/domain"
	"fdu/internal/snapshot"
)

func setupDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fdu.db")
	database.SetPath(path)
	t.Cleanup(database.ResetPath)
	return path
}

func seed(t *testing.T, path string, entries ...auditlog.AuditEntry) {
	t.Helper()
	repo, err := auditlog.OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	defer repo.Close()
	for i := range entries {
		if err := repo.Save(&entries[i]); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
}

func execAudit(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.String(), err
}

func TestList_Empty(t *testing.T) {
	setupDB(t)

	stdout, err := execAudit(t, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "No audit entries found.") {
		t.Errorf("unexpected output: %s", stdout)
	}
}

func TestList_Table(t *testing.T) {
	path := setupDB(t)
	seed(t, path, auditlog.AuditEntry{
		Command:    "fdu update upsert",
		Account:    "user@example.com",
		DomainID:   "100",
		Domain:     "test.tk",
		RecordType: "A",
		RecordName: "WWW",
		Target:     "10.0.0.1",
		Outcome:    auditlog.OutcomeSuccess,
		DurationMs: 1500,
	})

	stdout, err := execAudit(t, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"ACCOUNT", "fdu update upsert", "user@example.com", "SUBJECT", "test.tk A WWW -> 10.0.0.1", "1.5s"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output, got:\n%s", want, stdout)
		}
	}
}

func TestList_FilterByAccountAndCommand(t *testing.T) {
	path := setupDB(t)
	seed(t, path,
		auditlog.AuditEntry{Command: "fdu update upsert", Account: "a@example.com", Outcome: auditlog.OutcomeSuccess},
		auditlog.AuditEntry{Command: "fdu domain renew", Account: "a@example.com", Outcome: auditlog.OutcomeSuccess},
		auditlog.AuditEntry{Command: "fdu update upsert", Account: "b@example.com", Outcome: auditlog.OutcomeSuccess},
	)

	stdout, err := execAudit(t, "list", "--account", "A@example.com", "--command", "fdu update upsert", "-f", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []auditlog.AuditEntry
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(got) != 1 || got[0].Account != "a@example.com" || got[0].Command != "fdu update upsert" {
		t.Errorf("unexpected entries: %+v", got)
	}
}

func TestList_FilterByDomainAndOutcome(t *testing.T) {
	path := setupDB(t)
	seed(t, path,
		auditlog.AuditEntry{Command: "fdu update upsert", Domain: "test.tk", Outcome: auditlog.OutcomeSuccess},
		auditlog.AuditEntry{Command: "fdu update upsert", Domain: "test.tk", Outcome: auditlog.OutcomeError, Detail: "portal said no"},
		auditlog.AuditEntry{Command: "fdu update upsert", Domain: "other.tk", Outcome: auditlog.OutcomeError},
	)

	stdout, err := execAudit(t, "list", "--domain", "TEST.tk", "--outcome", "error", "-f", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []auditlog.AuditEntry
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(got) != 1 || got[0].Domain != "test.tk" || got[0].Detail != "portal said no" {
		t.Errorf("unexpected entries: %+v", got)
	}

	if _, err := execAudit(t, "list", "--outcome", "maybe"); err == nil {
		t.Error("expected error for unknown outcome")
	}
}

func TestList_InvalidFormat(t *testing.T) {
	setupDB(t)

	if _, err := execAudit(t, "list", "-f", "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPrune_RemovesEntriesAndSnapshots(t *testing.T) {
	path := setupDB(t)
	old := time.Now().UTC().Add(-48 * time.Hour)
	seed(t, path,
		auditlog.AuditEntry{Timestamp: old, Command: "fdu update upsert", Outcome: auditlog.OutcomeSuccess},
		auditlog.AuditEntry{Command: "fdu update upsert", Outcome: auditlog.OutcomeSuccess},
	)

	snaps, err := snapshot.OpenAt(path)
	if err != nil {
		t.Fatalf("snapshot.OpenAt: %v", err)
	}
	if err := snaps.Save(&snapshot.Snapshot{
		DomainID:   "100",
		DomainName: "test.tk",
		Reason:     "upsert",
		Records:    []domain.Record{domain.NewRecord("www", domain.RecordTypeA, 3600, "10.0.0.1")},
		CreatedAt:  old,
	}); err != nil {
		t.Fatalf("snapshot Save: %v", err)
	}
	snaps.Close()

	stdout, err := execAudit(t, "prune", "--older-than", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Removed 1 audit entr(y/ies).", "Removed 1 snapshot(s)."} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output, got:\n%s", want, stdout)
		}
	}
}

func TestPrune_RequiresOlderThan(t *testing.T) {
	setupDB(t)

	if _, err := execAudit(t, "prune"); err == nil {
		t.Fatal("expected error without --older-than")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"72h", 72 * time.Hour, false},
		{"xd", 0, true},
		{"-1h", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
