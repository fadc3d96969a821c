package auth

import (
	"testing"
	"time"
)

func testService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService("a-jwt-secret-that-is-at-least-32-bytes-long", "admin", "hunter2", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error building service: %v", err)
	}
	return s
}

func TestNewService_RejectsShortSecret(t *testing.T) {
	if _, err := NewService("short", "a", "b", time.Hour); err == nil {
		t.Error("expected error for short jwt secret")
	}
}

func TestLogin_Succeeds(t *testing.T) {
	s := testService(t)
	resp, err := s.Login("admin", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" {
		t.Error("expected a non-empty token")
	}
}

func TestLogin_RejectsWrongCredentials(t *testing.T) {
	s := testService(t)
	if _, err := s.Login("admin", "wrong"); err == nil {
		t.Error("expected login failure for wrong password")
	}
}

func TestValidateToken_RoundTrips(t *testing.T) {
	s := testService(t)
	resp, err := s.Login("admin", "hunter2")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := s.ValidateToken(resp.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Username != "admin" {
		t.Errorf("expected username admin, got %q", claims.Username)
	}
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	s := testService(t)
	if _, err := s.ValidateToken("not-a-token"); err == nil {
		t.Error("expected error for garbage token")
	}
}
