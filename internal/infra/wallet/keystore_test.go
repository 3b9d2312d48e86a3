package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

func writeKeyfile(t *testing.T, path string, kf keyfile) {
	t.Helper()
	data, err := json.Marshal(kf)
	if err != nil {
		t.Fatalf("marshal keyfile: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write keyfile: %v", err)
	}
}

func plaintextKeyfile(t *testing.T, address string) (keyfile, []byte) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return keyfile{Address: address, Seed: hex.EncodeToString(seed)}, seed
}

func encryptedKeyfile(t *testing.T, address, passphrase string) keyfile {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand: %v", err)
	}

	salt := make([]byte, 16)
	nonceBytes := make([]byte, 24)
	rand.Read(salt)
	rand.Read(nonceBytes)

	derived, err := scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, 32)
	if err != nil {
		t.Fatalf("scrypt: %v", err)
	}
	var key [32]byte
	var nonce [24]byte
	copy(key[:], derived)
	copy(nonce[:], nonceBytes)

	sealed := secretbox.Seal(nil, seed, &nonce, &key)
	return keyfile{
		Address:   address,
		Encrypted: true,
		Salt:      hex.EncodeToString(salt),
		Nonce:     hex.EncodeToString(nonceBytes),
		Data:      hex.EncodeToString(sealed),
	}
}

func TestFileKeystore_PlaintextUnlockAndSign(t *testing.T) {
	dir := t.TempDir()
	coldKf, seed := plaintextKeyfile(t, "5ColdAddr")
	hotKf, _ := plaintextKeyfile(t, "5HotAddr")
	writeKeyfile(t, filepath.Join(dir, "w1", "coldkey"), coldKf)
	writeKeyfile(t, filepath.Join(dir, "w1", "hotkeys", "default"), hotKf)

	ks, err := NewFileKeystore(dir, "w1", "default")
	if err != nil {
		t.Fatalf("NewFileKeystore: %v", err)
	}

	if ks.ColdkeyAddress() != "5ColdAddr" || ks.HotkeyAddress() != "5HotAddr" {
		t.Errorf("addresses = %s/%s", ks.ColdkeyAddress(), ks.HotkeyAddress())
	}

	needs, err := ks.RequiresPassphrase(Coldkey)
	if err != nil {
		t.Fatalf("RequiresPassphrase: %v", err)
	}
	if needs {
		t.Error("plaintext coldkey reported as needing a passphrase")
	}

	if err := ks.Unlock(Coldkey, ""); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	msg := []byte("payload")
	sig, err := ks.SignColdkey(msg)
	if err != nil {
		t.Fatalf("SignColdkey: %v", err)
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	if !ed25519.Verify(pub, msg, sig) {
		t.Error("signature does not verify")
	}
}

func TestFileKeystore_EncryptedUnlock(t *testing.T) {
	dir := t.TempDir()
	writeKeyfile(t, filepath.Join(dir, "w1", "coldkey"), encryptedKeyfile(t, "5ColdAddr", "hunter2"))
	hotKf, _ := plaintextKeyfile(t, "5HotAddr")
	writeKeyfile(t, filepath.Join(dir, "w1", "hotkeys", "default"), hotKf)

	ks, err := NewFileKeystore(dir, "w1", "default")
	if err != nil {
		t.Fatalf("NewFileKeystore: %v", err)
	}

	needs, err := ks.RequiresPassphrase(Coldkey)
	if err != nil {
		t.Fatalf("RequiresPassphrase: %v", err)
	}
	if !needs {
		t.Error("encrypted coldkey reported as not needing a passphrase")
	}

	if err := ks.Unlock(Coldkey, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("wrong password error = %v, want ErrInvalidPassword", err)
	}
	if err := ks.Unlock(Coldkey, "hunter2"); err != nil {
		t.Errorf("correct password failed: %v", err)
	}
}

func TestFileKeystore_MissingHotkeyTolerated(t *testing.T) {
	dir := t.TempDir()
	coldKf, _ := plaintextKeyfile(t, "5ColdAddr")
	writeKeyfile(t, filepath.Join(dir, "w1", "coldkey"), coldKf)

	ks, err := NewFileKeystore(dir, "w1", "default")
	if err != nil {
		t.Fatalf("NewFileKeystore: %v", err)
	}
	if ks.HotkeyAddress() != "" {
		t.Errorf("hotkey address = %q, want empty", ks.HotkeyAddress())
	}
	if _, err := ks.RequiresPassphrase(Hotkey); !errors.Is(err, ErrKeyfile) {
		t.Errorf("RequiresPassphrase(Hotkey) error = %v, want ErrKeyfile", err)
	}
}

func TestUnlockForStaking_HotkeyFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	coldKf, _ := plaintextKeyfile(t, "5ColdAddr")
	writeKeyfile(t, filepath.Join(dir, "w1", "coldkey"), coldKf)

	ks, err := NewFileKeystore(dir, "w1", "default")
	if err != nil {
		t.Fatalf("NewFileKeystore: %v", err)
	}

	creds := NewCredentialCache(nil)
	defer creds.Clear()
	if err := UnlockForStaking(ks, creds, "TEST_WALLET_PW", "", "", nil); err != nil {
		t.Errorf("UnlockForStaking failed on missing hotkey: %v", err)
	}
}
