// Package telegram provides Telegram notification services.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		baseURL: "https://api.telegram.org",
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// sendMessageRequest is the request body for Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendNotification sends a backup notification via Telegram.
func (s *Impl) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Debug().
		Str("chat_id", cfg.ChatID).
		Bool("success", msg.Success).
		Msg("sending Telegram notification")

	reqBody := sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      formatMessage(msg),
		ParseMode: "HTML",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		result.Error = errors.Wrap(err, "marshaling request")
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		result.Error = errors.Wrap(err, "creating request")
		return result, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = errors.Wrap(err, "sending request")
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = errors.Newf("telegram API returned status %d", resp.StatusCode)
		return result, nil
	}

	result.MessageSent = true
	s.logger.Debug().Msg("Telegram notification sent")

	return result, nil
}

func formatMessage(msg models.TelegramMessage) string {
	var b bytes.Buffer

	switch {
	case !msg.Success:
		b.WriteString("❌ <b>Blueprint backup failed</b>\n\n")
	case msg.AlreadyBackedUp:
		b.WriteString("☑️ <b>Blueprints unchanged</b>\n\n")
	default:
		b.WriteString("✅ <b>Blueprints backed up</b>\n\n")
	}

	b.WriteString(fmt.Sprintf("🖥 <b>Host:</b> %s\n", escapeHTML(msg.Host)))
	b.WriteString(fmt.Sprintf("📄 <b>Source:</b> %s\n", escapeHTML(msg.Source)))
	b.WriteString(fmt.Sprintf("📁 <b>Backups:</b> %s\n", escapeHTML(msg.BackupsFolder)))
	b.WriteString(fmt.Sprintf("⏰ <b>Started:</b> %s\n", msg.StartTime.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("⏱ <b>Duration:</b> %s\n", msg.Duration.Round(time.Millisecond)))

	switch {
	case !msg.Success:
		b.WriteString("\n<b>⚠️ Error Details:</b>\n")
		b.WriteString(fmt.Sprintf("  • Failed step: %s\n", escapeHTML(msg.FailedStep)))
		b.WriteString(fmt.Sprintf("  • Error: <code>%s</code>\n", escapeHTML(msg.ErrorMessage)))
	case msg.AlreadyBackedUp:
		b.WriteString("\nAn identical backup already exists; nothing was written.\n")
	default:
		b.WriteString("\n<b>📊 Snapshot:</b>\n")
		b.WriteString(fmt.Sprintf("  • File: <code>%s</code>\n", escapeHTML(msg.BackupName)))
		b.WriteString(fmt.Sprintf("  • Size: %s\n", humanize.IBytes(uint64(msg.SizeBytes))))

		if msg.BackupsRemoved > 0 || msg.BackupsKept > 0 || msg.LogsRemoved > 0 {
			b.WriteString("\n<b>🗑 Retention:</b>\n")
			b.WriteString(fmt.Sprintf("  • Backups kept: %d\n", msg.BackupsKept))
			b.WriteString(fmt.Sprintf("  • Backups removed: %d\n", msg.BackupsRemoved))
			if msg.LogsRemoved > 0 {
				b.WriteString(fmt.Sprintf("  • Logs removed: %d\n", msg.LogsRemoved))
			}
		}
	}

	return b.String()
}

// escapeHTML escapes HTML special characters.
func escapeHTML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
