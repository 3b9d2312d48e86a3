package subtensor

import (
	"sync"
	"testing"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/notify"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []notify.Level
}

func (n *recordingNotifier) Send(message string, level notify.Level) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	n.levels = append(n.levels, level)
}

func newTestFailover(t *testing.T) (*FailoverManager, *Rotator, *recordingNotifier) {
	t.Helper()
	dial, _ := newStubDialer()
	r, err := NewRotator(domain.DefaultNetworks, domain.NetworkLocal, dial, nil)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	n := &recordingNotifier{}
	return NewFailoverManager(r, n, nil), r, n
}

func TestFailover_BenignErrorDoesNotRotate(t *testing.T) {
	m, r, n := newTestFailover(t)

	benign := m.HandleFailure("too soon to commit weights", "weight setting")
	if !benign {
		t.Error("expected benign result")
	}
	if got := r.CurrentNetwork(); got != domain.NetworkLocal {
		t.Errorf("network rotated on benign error: %s", got)
	}
	if len(n.messages) != 0 {
		t.Errorf("notification sent for benign error: %v", n.messages)
	}
}

func TestFailover_NonBenignErrorRotates(t *testing.T) {
	m, r, n := newTestFailover(t)

	if m.HandleFailure("connection reset by peer", "weight setting") {
		t.Error("unknown error reported as benign")
	}
	if got := r.CurrentNetwork(); got != domain.NetworkFinney {
		t.Errorf("network = %s, want finney after rotation", got)
	}
	if len(n.messages) != 1 || n.levels[0] != notify.LevelWarning {
		t.Errorf("expected one warning notification, got %v %v", n.messages, n.levels)
	}
}

func TestFailover_MixedSequenceRotationCount(t *testing.T) {
	m, r, _ := newTestFailover(t)

	// 2 benign + 3 non-benign failures: exactly 3 rotations, which on a
	// 3-entry list lands back on the starting network.
	seq := []string{
		"too soon to commit",
		"connection refused",
		"no attempt made. perhaps it is too soon to commit weights",
		"invalid transaction",
		"some novel error",
	}
	rotations := 0
	for _, msg := range seq {
		if !m.HandleFailure(msg, "weight setting") {
			rotations++
		}
	}
	if rotations != 3 {
		t.Errorf("rotations = %d, want 3", rotations)
	}
	if got := r.CurrentNetwork(); got != domain.NetworkLocal {
		t.Errorf("network = %s, want local after full cycle", got)
	}
}

func TestFailover_SuccessStaysOnNetworkAndNotifiesRecovery(t *testing.T) {
	m, r, n := newTestFailover(t)

	m.HandleFailure("weird error", "weight setting")
	m.HandleFailure("weird error", "weight setting")
	network := r.CurrentNetwork()

	m.HandleSuccess("weight setting")
	if got := r.CurrentNetwork(); got != network {
		t.Errorf("success rotated network from %s to %s", network, got)
	}
	last := n.messages[len(n.messages)-1]
	if n.levels[len(n.levels)-1] != notify.LevelInfo {
		t.Errorf("recovery notification level = %s, want info", n.levels[len(n.levels)-1])
	}
	if last == "" {
		t.Error("empty recovery message")
	}

	// A success with no failure streak is silent.
	before := len(n.messages)
	m.HandleSuccess("weight setting")
	if len(n.messages) != before {
		t.Error("success without failures sent a notification")
	}
}
