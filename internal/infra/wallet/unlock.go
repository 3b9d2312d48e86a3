package wallet

import (
	"errors"
	"fmt"
	"log/slog"
)

// UnlockForStaking unlocks both keys of a keystore. A coldkey failure is
// fatal (returned); hotkey failures only warn, since the coldkey suffices
// for staking extrinsics.
func UnlockForStaking(ks Keystore, creds *CredentialCache, envVar, envFile, passwordFile string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	passphrase := ""
	needsPw, err := ks.RequiresPassphrase(Coldkey)
	if err != nil {
		return fmt.Errorf("coldkey file error: %w", err)
	}
	if needsPw {
		passphrase, err = creds.Resolve(envVar, envFile, passwordFile)
		if err != nil {
			return err
		}
		if passphrase == "" {
			return fmt.Errorf("coldkey is encrypted and no wallet password was provided")
		}
	}

	if err := ks.Unlock(Coldkey, passphrase); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return fmt.Errorf("invalid coldkey password: %w", err)
		}
		return fmt.Errorf("coldkey unlock: %w", err)
	}

	if err := ks.Unlock(Hotkey, passphrase); err != nil {
		switch {
		case errors.Is(err, ErrInvalidPassword):
			log.Warn("Hotkey password is invalid; continuing since coldkey suffices for staking extrinsics")
		case errors.Is(err, ErrKeyfile):
			log.Warn("Hotkey file missing or unreadable; continuing since coldkey suffices for staking extrinsics")
		default:
			log.Warn("Hotkey unlock failed; continuing", "error", err)
		}
	}

	return nil
}
