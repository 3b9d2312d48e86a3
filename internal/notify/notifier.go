// Package notify delivers operator alerts and periodic summaries. Delivery
// is fire and forget: failures are logged, never propagated.
package notify

// Level selects the message channel and color.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier is the notification sink contract.
type Notifier interface {
	// Send delivers a message. Implementations must not block the caller on
	// delivery failures and must not propagate errors.
	Send(message string, level Level)
}

// Noop discards all messages. Used when no webhook is configured.
type Noop struct{}

func (Noop) Send(string, Level) {}
