package wallet

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCredentialCache_EnvVarWins(t *testing.T) {
	t.Setenv("TEST_WALLET_PW", "from-env")

	pwFile := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(pwFile, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewCredentialCache(nil)
	pw, err := c.Resolve("TEST_WALLET_PW", "", pwFile)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pw != "from-env" {
		t.Errorf("password = %q, want from-env", pw)
	}
}

func TestCredentialCache_EnvFileFallback(t *testing.T) {
	t.Setenv("TEST_WALLET_PW", "")
	os.Unsetenv("TEST_WALLET_PW")

	envFile := filepath.Join(t.TempDir(), "wallet.env")
	if err := os.WriteFile(envFile, []byte("TEST_WALLET_PW=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewCredentialCache(nil)
	defer c.Clear()
	pw, err := c.Resolve("TEST_WALLET_PW", envFile, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pw != "from-dotenv" {
		t.Errorf("password = %q, want from-dotenv", pw)
	}
}

func TestCredentialCache_PasswordFileFallback(t *testing.T) {
	t.Setenv("TEST_WALLET_PW", "")
	os.Unsetenv("TEST_WALLET_PW")

	pwFile := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(pwFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewCredentialCache(nil)
	pw, err := c.Resolve("TEST_WALLET_PW", "", pwFile)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pw != "from-file" {
		t.Errorf("password = %q, want trimmed from-file", pw)
	}
}

func TestCredentialCache_NoSourcesIsNotAnError(t *testing.T) {
	t.Setenv("TEST_WALLET_PW", "")
	os.Unsetenv("TEST_WALLET_PW")

	c := NewCredentialCache(nil)
	pw, err := c.Resolve("TEST_WALLET_PW", "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pw != "" {
		t.Errorf("password = %q, want empty", pw)
	}
}

func TestCredentialCache_ClearScrubsEnvironment(t *testing.T) {
	t.Setenv("TEST_WALLET_PW", "secret")

	c := NewCredentialCache(nil)
	if _, err := c.Resolve("TEST_WALLET_PW", "", ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	c.Clear()

	if _, ok := c.Password(); ok {
		t.Error("password survived Clear")
	}
	if os.Getenv("TEST_WALLET_PW") != "" {
		t.Error("env var survived Clear")
	}
}
