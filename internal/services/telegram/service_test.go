package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("{}")),
	}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig() models.TelegramConfig {
	return models.TelegramConfig{
		BotToken: "123456:ABC-DEF",
		ChatID:   "-100123456789",
	}
}

func TestSendNotification_Success(t *testing.T) {
	var capturedRequest *http.Request
	var capturedBody sendMessageRequest

	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			capturedRequest = req
			body, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(body, &capturedBody)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("{\"ok\":true}")),
			}, nil
		},
	}

	svc := NewWithClient(testLogger(), httpClient, "https://api.telegram.org")

	msg := models.TelegramMessage{
		Success:       true,
		Host:          "gaming-pc",
		Source:        `C:\Users\me\AppData\Roaming\Factorio\blueprint-storage.dat`,
		BackupsFolder: `D:\backups`,
		StartTime:     time.Now().Add(-time.Second),
		Duration:      time.Second,
		BackupName:    "blueprint-storage_2024-01-15_10-30-00.dat",
		SizeBytes:     2048,
	}

	result, err := svc.SendNotification(context.Background(), testConfig(), msg)

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Nil(t, result.Error)

	assert.Equal(t, http.MethodPost, capturedRequest.Method)
	assert.Contains(t, capturedRequest.URL.String(), "/bot123456:ABC-DEF/sendMessage")
	assert.Equal(t, "application/json", capturedRequest.Header.Get("Content-Type"))

	assert.Equal(t, "-100123456789", capturedBody.ChatID)
	assert.Equal(t, "HTML", capturedBody.ParseMode)
	assert.Contains(t, capturedBody.Text, "Blueprints backed up")
}

func TestSendNotification_HTTPError(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("network error")
		},
	}

	svc := NewWithClient(testLogger(), httpClient, "https://api.telegram.org")

	result, err := svc.SendNotification(context.Background(), testConfig(), models.TelegramMessage{Success: true})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "sending request")
}

func TestSendNotification_APIError(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusBadRequest,
				Body:       io.NopCloser(strings.NewReader("{\"ok\":false}")),
			}, nil
		},
	}

	svc := NewWithClient(testLogger(), httpClient, "https://api.telegram.org")

	result, err := svc.SendNotification(context.Background(), testConfig(), models.TelegramMessage{Success: true})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "status 400")
}

func TestSendNotification_ContextCancelled(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, context.Canceled
		},
	}

	svc := NewWithClient(testLogger(), httpClient, "https://api.telegram.org")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.SendNotification(ctx, testConfig(), models.TelegramMessage{Success: true})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.NotNil(t, result.Error)
}

func TestFormatMessage_Success(t *testing.T) {
	msg := models.TelegramMessage{
		Success:        true,
		Host:           "gaming-pc",
		Source:         "/home/me/.factorio/blueprint-storage.dat",
		BackupsFolder:  "/mnt/backups/factorio",
		StartTime:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Duration:       1500 * time.Millisecond,
		BackupName:     "blueprint-storage_2024-01-15_10-30-00.dat",
		SizeBytes:      1536 * 1024,
		BackupsRemoved: 2,
		BackupsKept:    30,
		LogsRemoved:    1,
	}

	result := formatMessage(msg)

	assert.Contains(t, result, "Blueprints backed up")
	assert.Contains(t, result, "gaming-pc")
	assert.Contains(t, result, "/mnt/backups/factorio")
	assert.Contains(t, result, "2024-01-15 10:30:00")
	assert.Contains(t, result, "blueprint-storage_2024-01-15_10-30-00.dat")
	assert.Contains(t, result, "Size: 1.5 MiB")
	assert.Contains(t, result, "Backups kept: 30")
	assert.Contains(t, result, "Backups removed: 2")
	assert.Contains(t, result, "Logs removed: 1")
}

func TestFormatMessage_AlreadyBackedUp(t *testing.T) {
	msg := models.TelegramMessage{
		Success:         true,
		AlreadyBackedUp: true,
		Host:            "gaming-pc",
		StartTime:       time.Now(),
	}

	result := formatMessage(msg)

	assert.Contains(t, result, "Blueprints unchanged")
	assert.Contains(t, result, "nothing was written")
	assert.NotContains(t, result, "Retention")
}

func TestFormatMessage_Failure(t *testing.T) {
	msg := models.TelegramMessage{
		Success:      false,
		Host:         "gaming-pc",
		StartTime:    time.Now(),
		FailedStep:   "backup",
		ErrorMessage: "copying <source>: disk full",
	}

	result := formatMessage(msg)

	assert.Contains(t, result, "Blueprint backup failed")
	assert.Contains(t, result, "Failed step: backup")
	assert.Contains(t, result, "copying &lt;source&gt;: disk full")
}

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"<script>", "&lt;script&gt;"},
		{"a & b", "a &amp; b"},
		{"<>&", "&lt;&gt;&amp;"},
		{`C:\Factorio`, `C:\Factorio`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeHTML(tt.input))
		})
	}
}
