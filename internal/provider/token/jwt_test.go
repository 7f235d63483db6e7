package token

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestKey(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	path := filepath.Join(t.TempDir(), "apple.p8")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewAppleSourceRejectsMissingCredentials(t *testing.T) {
	if _, err := NewAppleSource("", "kid", "path"); err == nil {
		t.Error("expected error for empty team id")
	}
}

func TestNewAppleSourceRejectsEmptyKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.p8")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewAppleSource("team", "kid", path); err == nil {
		t.Error("expected error for empty key file")
	}
}

func TestAppleSourceMintsAndCaches(t *testing.T) {
	path := writeTestKey(t)
	src, err := NewAppleSource("TEAM123", "KEY456", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tok1, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(tok1, ".") {
		t.Error("expected a JWS-shaped token with dot separators")
	}

	tok2, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok1 != tok2 {
		t.Error("expected the cached token to be reused before expiry")
	}
}
