package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPEM_Inline(t *testing.T) {
	b, err := LoadPEM(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("LoadPEM: %v", err)
	}
	if !strings.HasPrefix(string(b), "-----BEGIN") {
		t.Error("LoadPEM did not return PEM content")
	}
}

func TestLoadPEM_EscapedNewlines(t *testing.T) {
	oneLine := strings.ReplaceAll(testPrivateKeyPEM, "\n", `\n`)
	signer, err := ParsePrivateKey(oneLine)
	if err != nil {
		t.Fatalf("ParsePrivateKey(single line): %v", err)
	}
	if KeyAlg(signer.Public()) != "RS256" {
		t.Errorf("KeyAlg = %q", KeyAlg(signer.Public()))
	}
}

func TestLoadPEM_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte(testPrivateKeyPEM), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ParsePrivateKey(path); err != nil {
		t.Errorf("ParsePrivateKey(file): %v", err)
	}
}

func TestLoadPEM_Empty(t *testing.T) {
	if _, err := LoadPEM("  "); err != ErrInvalidKey {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
}

func TestParsePrivateKey_NotPEM(t *testing.T) {
	if _, err := ParsePrivateKey("-----BEGIN nonsense"); err != ErrInvalidKey {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
}
