package failure

import (
	"strings"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// Phrase lists are matched case-insensitively against the error text.
// Benign is checked before critical; first match wins.
var benignPhrases = []string{
	"no attempt made. perhaps it is too soon to commit weights",
	"too soon to commit weights",
	"too soon to commit",
}

var criticalPhrases = []string{
	"maximum recursion depth exceeded",
	"invalid transaction",
	"subtensor returned: invalid transaction",
}

// Classify maps an operation error message to a failure class. Empty input
// classifies as unknown. It never fails.
func Classify(errMsg string) domain.FailureClass {
	lower := strings.ToLower(errMsg)

	for _, phrase := range benignPhrases {
		if strings.Contains(lower, phrase) {
			return domain.FailureBenign
		}
	}

	for _, phrase := range criticalPhrases {
		if strings.Contains(lower, phrase) {
			return domain.FailureCritical
		}
	}

	return domain.FailureUnknown
}

// IsBenign reports whether the error should skip alerting and endpoint
// rotation.
func IsBenign(errMsg string) bool {
	return Classify(errMsg) == domain.FailureBenign
}

// IsCritical reports whether the error matches a known problematic pattern.
func IsCritical(errMsg string) bool {
	return Classify(errMsg) == domain.FailureCritical
}
