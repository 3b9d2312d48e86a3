package notify

import (
	"fmt"
	"strings"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/failure"
)

// WeightFailureMessage renders the alert text for a weight-setting
// failure that the tracker decided to surface. The shape of the message
// depends on the error pattern, not just the class: recursion and
// rejected-transaction errors get their own templates.
func WeightFailureMessage(hotkey string, netuid int, errMsg string, d failure.Decision) string {
	addr := domain.TruncateAddress(hotkey)
	lower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lower, "maximum recursion depth exceeded"):
		return fmt.Sprintf(
			"🚨 CRITICAL: Weight setting recursion error\nHotkey: %s\nNetuid: %d\nError: %s\nThis indicates a serious code issue that needs immediate attention.",
			addr, netuid, errMsg)

	case strings.Contains(lower, "invalid transaction"):
		return fmt.Sprintf(
			"🚨 CRITICAL: Subtensor rejected weight transaction\nHotkey: %s\nNetuid: %d\nError: %s\nThis may indicate wallet/balance issues or network problems.",
			addr, netuid, errMsg)

	case d.Class == domain.FailureUnknown:
		return fmt.Sprintf(
			"❓ NEW PATTERN: Unknown weight setting failure\nHotkey: %s\nNetuid: %d\nConsecutive failures: %d\nError: %s\nThis is a new error pattern that needs investigation.",
			addr, netuid, d.Consecutive, errMsg)

	default:
		hours := d.SinceSuccess.Hours()
		urgency := "⚠️ WARNING"
		if hours >= 2 {
			urgency = "🚨 URGENT"
		}
		return fmt.Sprintf(
			"%s: Weight setting issues detected\nHotkey: %s\nNetuid: %d\nNo successful weight setting in %.1f hours\nLast error: %s",
			urgency, addr, netuid, hours, errMsg)
	}
}

// WeightRecoveryMessage renders the all-clear sent after weight setting
// recovers from critical failures.
func WeightRecoveryMessage(hotkey string, netuid int) string {
	return fmt.Sprintf(
		"✅ Weight setting recovered after failures\nHotkey: %s\nNetuid: %d",
		domain.TruncateAddress(hotkey), netuid)
}
