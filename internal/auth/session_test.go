package auth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSessionKeysAreRoomNamespaced(t *testing.T) {
	a := NewSessionCache("101", nil)
	b := NewSessionCache("202", nil)

	if a.tokenKey("abc") == b.tokenKey("abc") {
		t.Error("Token keys for different rooms must not collide")
	}
	if a.userKey(7) == b.userKey(7) {
		t.Error("User keys for different rooms must not collide")
	}
}

func TestSessionKeyFormat(t *testing.T) {
	s := NewSessionCache("101", nil)

	if got, want := s.tokenKey("abc"), "ws_auth_101__token_abc"; got != want {
		t.Errorf("tokenKey = %q, want %q", got, want)
	}
	if got, want := s.userKey(7), "ws_auth_101__user_7"; got != want {
		t.Errorf("userKey = %q, want %q", got, want)
	}
}

func TestTokenAndUserKeysAreDistinct(t *testing.T) {
	s := NewSessionCache("101", nil)

	if s.tokenKey("7") == s.userKey(7) {
		t.Error("Token and user keys must live in separate namespaces")
	}
}

func TestAddThenIsAuthenticated(t *testing.T) {
	s := NewSessionCache("42", newTestRedis(t))
	ctx := context.Background()

	if err := s.AddAuthenticatedUser(ctx, "tok1", 7); err != nil {
		t.Fatalf("AddAuthenticatedUser failed: %v", err)
	}

	userID, ok := s.IsAuthenticated(ctx, "tok1")
	if !ok || userID != 7 {
		t.Errorf("IsAuthenticated(tok1) = (%d, %v), want (7, true)", userID, ok)
	}

	if _, ok := s.IsAuthenticated(ctx, "never-issued"); ok {
		t.Error("Unknown token must not authenticate")
	}
}

func TestSecondTokenInvalidatesFirst(t *testing.T) {
	s := NewSessionCache("42", newTestRedis(t))
	ctx := context.Background()

	if err := s.AddAuthenticatedUser(ctx, "tok1", 7); err != nil {
		t.Fatalf("AddAuthenticatedUser failed: %v", err)
	}
	if err := s.AddAuthenticatedUser(ctx, "tok2", 7); err != nil {
		t.Fatalf("AddAuthenticatedUser failed: %v", err)
	}

	if _, ok := s.IsAuthenticated(ctx, "tok1"); ok {
		t.Error("Old token must be invalid once a new one is issued")
	}
	userID, ok := s.IsAuthenticated(ctx, "tok2")
	if !ok || userID != 7 {
		t.Errorf("IsAuthenticated(tok2) = (%d, %v), want (7, true)", userID, ok)
	}
}

func TestReissuingSameTokenKeepsItValid(t *testing.T) {
	s := NewSessionCache("42", newTestRedis(t))
	ctx := context.Background()

	if err := s.AddAuthenticatedUser(ctx, "tok1", 7); err != nil {
		t.Fatalf("AddAuthenticatedUser failed: %v", err)
	}
	if err := s.AddAuthenticatedUser(ctx, "tok1", 7); err != nil {
		t.Fatalf("AddAuthenticatedUser failed: %v", err)
	}

	if _, ok := s.IsAuthenticated(ctx, "tok1"); !ok {
		t.Error("Re-issuing the same token must not invalidate it")
	}
}

func TestSessionsDoNotLeakAcrossRooms(t *testing.T) {
	client := newTestRedis(t)
	a := NewSessionCache("101", client)
	b := NewSessionCache("202", client)
	ctx := context.Background()

	if err := a.AddAuthenticatedUser(ctx, "tok1", 7); err != nil {
		t.Fatalf("AddAuthenticatedUser failed: %v", err)
	}

	if _, ok := b.IsAuthenticated(ctx, "tok1"); ok {
		t.Error("A token issued for one room must not authenticate in another")
	}

	// The same user holding tokens in two rooms keeps both.
	if err := b.AddAuthenticatedUser(ctx, "tok2", 7); err != nil {
		t.Fatalf("AddAuthenticatedUser failed: %v", err)
	}
	if _, ok := a.IsAuthenticated(ctx, "tok1"); !ok {
		t.Error("Issuing a token in one room must not invalidate the user's token in another")
	}
}
