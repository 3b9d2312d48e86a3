// Package wallet loads and unlocks local keyfiles and caches the passphrase
// used to decrypt them for the lifetime of the process.
package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

var (
	// ErrInvalidPassword means the passphrase did not decrypt the keyfile.
	ErrInvalidPassword = errors.New("invalid wallet password")
	// ErrKeyfile means the keyfile is missing or unreadable.
	ErrKeyfile = errors.New("keyfile missing or unreadable")
)

// KeyKind selects which key of the wallet an operation refers to.
type KeyKind string

const (
	Coldkey KeyKind = "coldkey"
	Hotkey  KeyKind = "hotkey"
)

// Keystore is the credential-source contract. RequiresPassphrase is the
// capability query: whether unlocking a key needs a password at all.
type Keystore interface {
	ColdkeyAddress() string
	HotkeyAddress() string
	RequiresPassphrase(kind KeyKind) (bool, error)
	// Unlock decrypts the named key with the passphrase (ignored for
	// plaintext keyfiles) and keeps the signing key in memory.
	Unlock(kind KeyKind, passphrase string) error
	SignColdkey(msg []byte) ([]byte, error)
	SignHotkey(msg []byte) ([]byte, error)
}

// keyfile is the on-disk JSON format. Plaintext files carry the seed
// directly; encrypted files carry an scrypt-derived secretbox sealing it.
type keyfile struct {
	Address   string `json:"ss58_address"`
	Seed      string `json:"secret_seed,omitempty"`
	Encrypted bool   `json:"encrypted"`
	Salt      string `json:"salt,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
	Data      string `json:"data,omitempty"`
}

// FileKeystore reads bittensor-style wallet directories:
// <path>/<name>/coldkey and <path>/<name>/hotkeys/<hotkey>.
type FileKeystore struct {
	coldkeyPath string
	hotkeyPath  string

	coldkeyFile *keyfile
	hotkeyFile  *keyfile

	coldkeySigner ed25519.PrivateKey
	hotkeySigner  ed25519.PrivateKey
}

// NewFileKeystore loads the key metadata (addresses, encryption flags)
// without decrypting anything. A missing hotkey file is tolerated; a
// missing coldkey file is not.
func NewFileKeystore(path, name, hotkey string) (*FileKeystore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve wallet path: %w", err)
		}
		path = filepath.Join(home, ".bittensor", "wallets")
	}
	if hotkey == "" {
		hotkey = "default"
	}

	ks := &FileKeystore{
		coldkeyPath: filepath.Join(path, name, "coldkey"),
		hotkeyPath:  filepath.Join(path, name, "hotkeys", hotkey),
	}

	cold, err := readKeyfile(ks.coldkeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: coldkey: %v", ErrKeyfile, err)
	}
	ks.coldkeyFile = cold

	hot, err := readKeyfile(ks.hotkeyPath)
	if err == nil {
		ks.hotkeyFile = hot
	}

	return ks, nil
}

func readKeyfile(path string) (*keyfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyfile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keyfile %s: %w", path, err)
	}
	return &kf, nil
}

func (ks *FileKeystore) ColdkeyAddress() string { return ks.coldkeyFile.Address }

func (ks *FileKeystore) HotkeyAddress() string {
	if ks.hotkeyFile == nil {
		return ""
	}
	return ks.hotkeyFile.Address
}

// RequiresPassphrase reports whether the key's file is encrypted.
func (ks *FileKeystore) RequiresPassphrase(kind KeyKind) (bool, error) {
	kf, err := ks.file(kind)
	if err != nil {
		return false, err
	}
	return kf.Encrypted, nil
}

func (ks *FileKeystore) file(kind KeyKind) (*keyfile, error) {
	switch kind {
	case Coldkey:
		return ks.coldkeyFile, nil
	case Hotkey:
		if ks.hotkeyFile == nil {
			return nil, fmt.Errorf("%w: hotkey file %s", ErrKeyfile, ks.hotkeyPath)
		}
		return ks.hotkeyFile, nil
	default:
		return nil, fmt.Errorf("unknown key kind %q", kind)
	}
}

// Unlock decrypts the key seed and derives the signing key.
func (ks *FileKeystore) Unlock(kind KeyKind, passphrase string) error {
	kf, err := ks.file(kind)
	if err != nil {
		return err
	}

	seed, err := decodeSeed(kf, passphrase)
	if err != nil {
		return err
	}

	signer := ed25519.NewKeyFromSeed(seed)
	switch kind {
	case Coldkey:
		ks.coldkeySigner = signer
	case Hotkey:
		ks.hotkeySigner = signer
	}
	return nil
}

func decodeSeed(kf *keyfile, passphrase string) ([]byte, error) {
	if !kf.Encrypted {
		seed, err := hex.DecodeString(kf.Seed)
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("%w: malformed seed", ErrKeyfile)
		}
		return seed, nil
	}

	salt, err := hex.DecodeString(kf.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed salt", ErrKeyfile)
	}
	nonceBytes, err := hex.DecodeString(kf.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, fmt.Errorf("%w: malformed nonce", ErrKeyfile)
	}
	sealed, err := hex.DecodeString(kf.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed data", ErrKeyfile)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	var key [32]byte
	var nonce [24]byte
	copy(key[:], derived)
	copy(nonce[:], nonceBytes)

	seed, ok := secretbox.Open(nil, sealed, &nonce, &key)
	if !ok {
		return nil, ErrInvalidPassword
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: unexpected seed length", ErrKeyfile)
	}
	return seed, nil
}

func (ks *FileKeystore) SignColdkey(msg []byte) ([]byte, error) {
	if ks.coldkeySigner == nil {
		return nil, fmt.Errorf("coldkey not unlocked")
	}
	return ed25519.Sign(ks.coldkeySigner, msg), nil
}

func (ks *FileKeystore) SignHotkey(msg []byte) ([]byte, error) {
	if ks.hotkeySigner == nil {
		return nil, fmt.Errorf("hotkey not unlocked")
	}
	return ed25519.Sign(ks.hotkeySigner, msg), nil
}
