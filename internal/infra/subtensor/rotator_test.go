package subtensor

import (
	"errors"
	"testing"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// stubClient records closes; all chain calls are unused in these tests.
type stubClient struct {
	Client
	network  domain.Network
	closed   bool
	closeErr error
}

func (c *stubClient) Close() error {
	c.closed = true
	return c.closeErr
}

func newStubDialer() (Dialer, *[]*stubClient) {
	dialed := &[]*stubClient{}
	dial := func(network domain.Network) (Client, error) {
		c := &stubClient{network: network}
		*dialed = append(*dialed, c)
		return c, nil
	}
	return dial, dialed
}

func TestRotator_FullCycleReturnsToStart(t *testing.T) {
	dial, _ := newStubDialer()
	r, err := NewRotator(domain.DefaultNetworks, domain.NetworkLocal, dial, nil)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}

	start := r.CurrentNetwork()
	for i := 0; i < 3; i++ {
		r.Rotate()
	}
	if got := r.CurrentNetwork(); got != start {
		t.Errorf("after 3 rotations current = %s, want %s", got, start)
	}
}

func TestRotator_RotationOrder(t *testing.T) {
	dial, _ := newStubDialer()
	r, err := NewRotator(domain.DefaultNetworks, domain.NetworkLocal, dial, nil)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}

	want := []domain.Network{domain.NetworkFinney, domain.NetworkSubvortex, domain.NetworkLocal}
	for i, w := range want {
		if got := r.Rotate(); got != w {
			t.Errorf("rotation %d = %s, want %s", i, got, w)
		}
	}
}

func TestRotator_ClosesOldConnection(t *testing.T) {
	dial, dialed := newStubDialer()
	r, err := NewRotator(domain.DefaultNetworks, domain.NetworkLocal, dial, nil)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}

	r.Rotate()
	if !(*dialed)[0].closed {
		t.Error("previous connection not closed on rotation")
	}
	if (*dialed)[1].closed {
		t.Error("new connection closed prematurely")
	}
}

func TestRotator_CloseFailureIsNotFatal(t *testing.T) {
	var first *stubClient
	dial := func(network domain.Network) (Client, error) {
		c := &stubClient{network: network, closeErr: errors.New("already closed")}
		if first == nil {
			first = c
		}
		return c, nil
	}
	r, err := NewRotator(domain.DefaultNetworks, domain.NetworkLocal, dial, nil)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}

	if got := r.Rotate(); got != domain.NetworkFinney {
		t.Errorf("Rotate = %s, want finney despite close failure", got)
	}
	if !first.closed {
		t.Error("close not attempted")
	}
}

func TestRotator_UnknownStartingNetwork(t *testing.T) {
	dial, _ := newStubDialer()
	if _, err := NewRotator(domain.DefaultNetworks, domain.Network("testnet"), dial, nil); err == nil {
		t.Error("expected error for unknown starting network")
	}
}

func TestRotator_DialFailureKeepsPreviousHandle(t *testing.T) {
	calls := 0
	var firstClient Client
	dial := func(network domain.Network) (Client, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("connection refused")
		}
		firstClient = &stubClient{network: network}
		return firstClient, nil
	}
	r, err := NewRotator(domain.DefaultNetworks, domain.NetworkLocal, dial, nil)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}

	if got := r.Rotate(); got != domain.NetworkFinney {
		t.Errorf("Rotate = %s, want finney", got)
	}
	if r.Client() != firstClient {
		t.Error("expected previous client handle to survive a failed dial")
	}
}

// Ensure the stub satisfies the interface where embedded methods are called.
var _ Client = (*stubClient)(nil)

func TestRotator_ClientIsUsableHandle(t *testing.T) {
	dial, dialed := newStubDialer()
	r, err := NewRotator(domain.DefaultNetworks, domain.NetworkSubvortex, dial, nil)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	if r.Client() != (*dialed)[0] {
		t.Error("Client() did not return the dialed connection")
	}
}
