package subtensor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// Dialer opens a client bound to one network endpoint.
type Dialer func(network domain.Network) (Client, error)

// Rotator holds the ordered network list and the single active connection.
// Rotation is circular and never removes entries; exactly one network is
// current at any time. Rotation happens strictly between operation attempts,
// so a plain mutex around the swap is enough.
type Rotator struct {
	mu       sync.Mutex
	networks []domain.Network
	index    int
	dial     Dialer
	client   Client
	log      *slog.Logger
}

// NewRotator dials the starting network and returns the rotator. An unknown
// starting network or a failed initial dial is a startup error.
func NewRotator(networks []domain.Network, start domain.Network, dial Dialer, log *slog.Logger) (*Rotator, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(networks) == 0 {
		networks = domain.DefaultNetworks
	}

	index := -1
	for i, n := range networks {
		if n == start {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("unknown starting network %q", start)
	}

	client, err := dial(networks[index])
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", networks[index], err)
	}
	log.Info("Subtensor connection initialized", "network", networks[index])

	return &Rotator{
		networks: networks,
		index:    index,
		dial:     dial,
		client:   client,
		log:      log,
	}, nil
}

// CurrentNetwork returns the active network name.
func (r *Rotator) CurrentNetwork() domain.Network {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.networks[r.index]
}

// Client returns the active connection.
func (r *Rotator) Client() Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client
}

// Rotate tears down the active connection (best effort; a close failure is
// logged, never fatal), advances to the next network circularly and dials
// it. When the new dial fails the previous client object is kept so callers
// always hold a usable handle; the next rotation tries the following
// endpoint.
func (r *Rotator) Rotate() domain.Network {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.networks[r.index]
	if r.client != nil {
		if err := r.client.Close(); err != nil {
			r.log.Warn("Error closing subtensor connection", "network", old, "error", err)
		}
	}

	r.index = (r.index + 1) % len(r.networks)
	next := r.networks[r.index]
	r.log.Info("Switching subtensor network", "from", old, "to", next)

	client, err := r.dial(next)
	if err != nil {
		r.log.Error("Failed to connect to network; keeping previous handle", "network", next, "error", err)
		return next
	}
	r.client = client
	return next
}

// Close tears down the active connection on shutdown.
func (r *Rotator) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return
	}
	if err := r.client.Close(); err != nil {
		r.log.Warn("Error closing subtensor connection", "network", r.networks[r.index], "error", err)
	}
}
