package wallet

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// CredentialCache resolves the wallet passphrase once per process and hands
// it out for subsequent unlocks. Clear must run on every exit path so the
// passphrase does not outlive the process in the environment.
type CredentialCache struct {
	mu       sync.Mutex
	password string
	envVars  map[string]struct{}
	log      *slog.Logger
}

// NewCredentialCache creates an empty cache.
func NewCredentialCache(log *slog.Logger) *CredentialCache {
	if log == nil {
		log = slog.Default()
	}
	return &CredentialCache{
		envVars: make(map[string]struct{}),
		log:     log,
	}
}

// Resolve finds the wallet password. Order: the named env var, .env-style
// files (explicit path first, then MINER_ENV_FILE, then ./.env), then the
// password file. Empty result with nil error means no password is available
// (acceptable for plaintext keyfiles).
func (c *CredentialCache) Resolve(envVar, envFile, passwordFile string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.password != "" {
		return c.password, nil
	}

	envVar = strings.TrimSpace(envVar)
	if envVar == "" {
		envVar = "MINER_WALLET_PASSWORD"
	}

	if pw := strings.TrimSpace(os.Getenv(envVar)); pw != "" {
		c.remember(envVar, pw)
		return pw, nil
	}

	for _, candidate := range c.envFileCandidates(envFile) {
		if err := godotenv.Load(candidate); err != nil {
			c.log.Debug("No env file loaded", "path", candidate)
			continue
		}
		c.log.Debug("Loaded environment variables", "path", candidate)
		if pw := strings.TrimSpace(os.Getenv(envVar)); pw != "" {
			c.remember(envVar, pw)
			return pw, nil
		}
	}

	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("read wallet password file %s: %w", passwordFile, err)
		}
		pw := strings.TrimSpace(string(data))
		if pw == "" {
			return "", fmt.Errorf("wallet password file %s is empty", passwordFile)
		}
		c.password = pw
		return pw, nil
	}

	return "", nil
}

func (c *CredentialCache) envFileCandidates(explicit string) []string {
	var candidates []string
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	if hint := os.Getenv("MINER_ENV_FILE"); hint != "" {
		candidates = append(candidates, hint)
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, cand := range candidates {
		resolved, err := filepath.Abs(cand)
		if err != nil {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		unique = append(unique, resolved)
	}
	return unique
}

func (c *CredentialCache) remember(envVar, password string) {
	c.password = password
	c.envVars[envVar] = struct{}{}
}

// Password returns the cached passphrase, if any.
func (c *CredentialCache) Password() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.password, c.password != ""
}

// Clear zeroes the cached passphrase and removes it from the environment.
func (c *CredentialCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for envVar := range c.envVars {
		os.Unsetenv(envVar)
		delete(c.envVars, envVar)
	}
	c.password = ""
}
