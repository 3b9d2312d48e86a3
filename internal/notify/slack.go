package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/metrics"
)

// Role labels which node the notifier speaks for.
type Role string

const (
	RoleMiner     Role = "Miner"
	RoleValidator Role = "Validator"
)

// Field is one attachment field in a webhook payload.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type attachment struct {
	Color  string  `json:"color"`
	Title  string  `json:"title,omitempty"`
	Fields []Field `json:"fields"`
	Footer string  `json:"footer"`
	Ts     int64   `json:"ts"`
}

type webhookPayload struct {
	Attachments []attachment `json:"attachments"`
}

var levelColors = map[Level]string{
	LevelError:   "#ff0000",
	LevelWarning: "#ff9900",
	LevelSuccess: "#00ff00",
	LevelInfo:    "#0099ff",
}

// SlackOptions configures a Slack notifier. ErrorWebhookURL receives
// error and warning level messages; it falls back to WebhookURL when
// unset. PublicIP is optional context; see DetectPublicIP.
type SlackOptions struct {
	WebhookURL      string
	ErrorWebhookURL string
	Role            Role
	Hotkey          string
	PublicIP        string
	Uptime          *Uptime
}

// Slack posts alert messages to Slack-compatible webhooks. All delivery
// failures are logged and swallowed; an alert must never take down the
// node it reports on.
type Slack struct {
	webhookURL      string
	errorWebhookURL string
	role            Role
	hotkey          string
	hostname        string
	publicIP        string
	uptime          *Uptime
	client          *http.Client
	log             *slog.Logger
}

// NewSlack builds a Slack notifier. An empty WebhookURL yields a nil
// notifier; callers should substitute Noop.
func NewSlack(opts SlackOptions, log *slog.Logger) *Slack {
	if opts.WebhookURL == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.ErrorWebhookURL == "" {
		opts.ErrorWebhookURL = opts.WebhookURL
	}
	if opts.Uptime == nil {
		opts.Uptime = NewUptime(0)
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Slack{
		webhookURL:      opts.WebhookURL,
		errorWebhookURL: opts.ErrorWebhookURL,
		role:            opts.Role,
		hotkey:          opts.Hotkey,
		hostname:        hostname,
		publicIP:        opts.PublicIP,
		uptime:          opts.Uptime,
		client:          &http.Client{Timeout: 10 * time.Second},
		log:             log,
	}
}

// Send delivers a plain message with standard node context attached.
func (s *Slack) Send(message string, level Level) {
	fields := []Field{
		{Title: fmt.Sprintf("%s Alert", s.role), Value: message},
		{Title: fmt.Sprintf("Host | %s Hotkey", s.role), Value: fmt.Sprintf("%s | %s", s.hostContext(), domain.TruncateAddress(s.hotkey)), Short: true},
		{Title: "Script Uptime", Value: s.uptime.String(), Short: true},
	}
	s.post(s.webhookFor(level), webhookPayload{Attachments: []attachment{{
		Color:  colorFor(level),
		Fields: fields,
		Footer: fmt.Sprintf("SN35 %s Notification", s.role),
		Ts:     time.Now().Unix(),
	}}}, level)
}

// SendReport delivers a titled multi-field report to the main channel.
func (s *Slack) SendReport(title string, fields []Field, level Level) {
	s.post(s.webhookFor(level), webhookPayload{Attachments: []attachment{{
		Color:  colorFor(level),
		Title:  title,
		Fields: fields,
		Footer: fmt.Sprintf("SN35 %s Daily Summary", s.role),
		Ts:     time.Now().Unix(),
	}}}, level)
}

func (s *Slack) webhookFor(level Level) string {
	if level == LevelError || level == LevelWarning {
		return s.errorWebhookURL
	}
	return s.webhookURL
}

func colorFor(level Level) string {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return "#808080"
}

func (s *Slack) hostContext() string {
	if s.publicIP != "" {
		return fmt.Sprintf("%s (%s)", s.hostname, s.publicIP)
	}
	return s.hostname
}

func (s *Slack) post(url string, payload webhookPayload, level Level) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("Failed to encode webhook payload", "error", err)
		return
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		s.log.Error("Failed to send webhook notification", "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		s.log.Error("Webhook rejected notification", "status", resp.StatusCode)
		return
	}
	metrics.AlertsSentTotal.WithLabelValues(string(level)).Inc()
}

// DetectPublicIP asks an external echo service for the node's public
// address. Best effort: returns "" on any failure.
func DetectPublicIP(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.ipify.org", nil)
	if err != nil {
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil || resp.StatusCode != http.StatusOK {
		return ""
	}
	return string(data)
}
