package auth

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"fdu/internal/services/auth"
	"fdu/internal/session/sessiontest"
	"fdu/internal/updater"

	"github.com/sirupsen/logrus"
)

func execAuth(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logrus.SetOutput(io.Discard)

	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.String(), err
}

func TestLogin_StoresPassword(t *testing.T) {
	sessiontest.Install(t, sessiontest.NewPortal())

	stdout, err := execAuth(t, "login", "User@Example.com", "--password", "hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Saved password for user@example.com") {
		t.Errorf("unexpected output: %q", stdout)
	}

	got, err := auth.DefaultStore().GetPassword("user@example.com")
	if err != nil {
		t.Fatalf("GetPassword: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("expected stored password %q, got %q", "hunter2", got)
	}
}

func TestLogin_KeepsPasswordSpaces(t *testing.T) {
	sessiontest.Install(t, sessiontest.NewPortal())

	if _, err := execAuth(t, "login", sessiontest.Login, "--password", " hunter2 "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := auth.DefaultStore().GetPassword(sessiontest.Login)
	if err != nil {
		t.Fatalf("GetPassword: %v", err)
	}
	if got != " hunter2 " {
		t.Errorf("expected stored password %q, got %q", " hunter2 ", got)
	}
}

func TestLogin_VerifyRejected(t *testing.T) {
	p := sessiontest.NewPortal()
	sessiontest.Install(t, p)

	_, err := execAuth(t, "login", sessiontest.Login, "-p", "wrong", "--verify")
	if !errors.Is(err, updater.ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if _, err := auth.DefaultStore().GetPassword(sessiontest.Login); !errors.Is(err, auth.ErrPasswordNotFound) {
		t.Errorf("expected nothing stored, got %v", err)
	}
	if n := p.Count("login"); n != 1 {
		t.Errorf("expected 1 portal login, got %d", n)
	}
}

func TestLogin_VerifyAccepted(t *testing.T) {
	sessiontest.Install(t, sessiontest.NewPortal())

	if _, err := execAuth(t, "login", sessiontest.Login, "-p", sessiontest.Password, "--verify"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := auth.DefaultStore().GetPassword(sessiontest.Login); err != nil {
		t.Errorf("expected password stored, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	sessiontest.Install(t, sessiontest.NewPortal())
	if err := auth.DefaultStore().SetPassword(sessiontest.Login, sessiontest.Password); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	stdout, err := execAuth(t, "status", sessiontest.Login, "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"user@example.com: logged in", "nobody@example.com: not logged in"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output, got:\n%s", want, stdout)
		}
	}
}

func TestLogout(t *testing.T) {
	sessiontest.Install(t, sessiontest.NewPortal())
	if err := auth.DefaultStore().SetPassword(sessiontest.Login, sessiontest.Password); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	stdout, err := execAuth(t, "logout", sessiontest.Login)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Removed password") {
		t.Errorf("unexpected output: %q", stdout)
	}

	stdout, err = execAuth(t, "logout", sessiontest.Login)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "No password stored") {
		t.Errorf("unexpected output: %q", stdout)
	}
}
