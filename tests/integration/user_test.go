//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestRegisterLoginFlow(t *testing.T) {
	client := newSession(t)

	// Register sets the session cookie alongside the created account.
	resp := doPost(t, client, "/user/create", map[string]string{
		"name":     "Flow Tester",
		"email":    "flow@example.com",
		"password": "secret1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	created := decodeJSON[userResponse](t, resp)
	resp.Body.Close()
	if created.ID == "" || created.Email != "flow@example.com" {
		t.Fatalf("unexpected user: %+v", created)
	}

	// The cookie alone restores the session.
	resp = doPost(t, client, "/user/loginWithToken", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("loginWithToken: status %d", resp.StatusCode)
	}
	restored := decodeJSON[userResponse](t, resp)
	resp.Body.Close()
	if restored.ID != created.ID {
		t.Fatalf("restored user %s, want %s", restored.ID, created.ID)
	}

	// Logout clears the cookie; the session no longer resolves.
	resp = doPost(t, client, "/user/logout", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}

	resp = doPost(t, client, "/user/loginWithToken", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("loginWithToken after logout: status %d, want 401", resp.StatusCode)
	}

	// Password login works again from a clean session.
	fresh := newSession(t)
	resp = doPost(t, fresh, "/user/login", map[string]string{
		"email":    "flow@example.com",
		"password": "secret1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	register(t, "First", "dupe@example.com", "secret1")

	client := newSession(t)
	resp := doPost(t, client, "/user/create", map[string]string{
		"name":     "Second",
		"email":    "dupe@example.com",
		"password": "other99",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status %d, want 409", resp.StatusCode)
	}
}

func TestRegister_Validation(t *testing.T) {
	client := newSession(t)
	resp := doPost(t, client, "/user/create", map[string]string{
		"name":     "Al",
		"email":    "not-an-email",
		"password": "short",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	errResp := decodeJSON[errorResponse](t, resp)
	for _, field := range []string{"name", "email", "password"} {
		if _, ok := errResp.Fields[field]; !ok {
			t.Errorf("missing validation error for %q: %+v", field, errResp.Fields)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	register(t, "Target", "target@example.com", "secret1")

	client := newSession(t)

	wrongPassword := doPost(t, client, "/user/login", map[string]string{
		"email":    "target@example.com",
		"password": "wrong99",
	})
	badPw := decodeJSON[errorResponse](t, wrongPassword)
	wrongPassword.Body.Close()

	unknownEmail := doPost(t, client, "/user/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "secret1",
	})
	badEmail := decodeJSON[errorResponse](t, unknownEmail)
	unknownEmail.Body.Close()

	if wrongPassword.StatusCode != http.StatusUnauthorized || unknownEmail.StatusCode != http.StatusUnauthorized {
		t.Fatalf("statuses %d/%d, want 401/401", wrongPassword.StatusCode, unknownEmail.StatusCode)
	}
	// Both failures must be indistinguishable.
	if badPw.Message != badEmail.Message {
		t.Fatalf("messages differ: %q vs %q", badPw.Message, badEmail.Message)
	}
}
