package failure

import (
	"testing"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

func TestClassify_Benign(t *testing.T) {
	cases := []string{
		"No attempt made. Perhaps it is too soon to commit weights!",
		"error: TOO SOON TO COMMIT WEIGHTS",
		"rpc said: too soon to commit (wait a bit)",
		"prefix text too soon to commit weights suffix text",
	}
	for _, msg := range cases {
		if got := Classify(msg); got != domain.FailureBenign {
			t.Errorf("Classify(%q) = %s, want benign", msg, got)
		}
	}
}

func TestClassify_Critical(t *testing.T) {
	cases := []string{
		"maximum recursion depth exceeded",
		"Subtensor returned: Invalid Transaction",
		"INVALID TRANSACTION in block",
	}
	for _, msg := range cases {
		if got := Classify(msg); got != domain.FailureCritical {
			t.Errorf("Classify(%q) = %s, want critical", msg, got)
		}
	}
}

func TestClassify_Unknown(t *testing.T) {
	cases := []string{
		"",
		"connection reset by peer",
		"some novel error pattern",
	}
	for _, msg := range cases {
		if got := Classify(msg); got != domain.FailureUnknown {
			t.Errorf("Classify(%q) = %s, want unknown", msg, got)
		}
	}
}

func TestClassify_BenignWinsOverCritical(t *testing.T) {
	// Benign phrases are checked first; a message matching both lists
	// classifies as benign.
	msg := "invalid transaction: too soon to commit weights"
	if got := Classify(msg); got != domain.FailureBenign {
		t.Errorf("Classify(%q) = %s, want benign (benign check precedes critical)", msg, got)
	}
}

func TestIsBenign_IsCritical(t *testing.T) {
	if !IsBenign("too soon to commit") {
		t.Error("expected IsBenign for too-soon error")
	}
	if IsBenign("connection refused") {
		t.Error("did not expect IsBenign for unknown error")
	}
	if !IsCritical("invalid transaction") {
		t.Error("expected IsCritical for invalid transaction")
	}
	if IsCritical("too soon to commit") {
		t.Error("did not expect IsCritical for benign error")
	}
}
