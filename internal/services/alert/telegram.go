package alert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/domain/service"
	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/util"
)

// Config configures the Telegram bot API sender.
type Config struct {
	BotToken   string
	ChatID     string
	BaseURL    string
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

// TelegramDispatcher posts alerts through the Bot API sendMessage method.
type TelegramDispatcher struct {
	cfg    Config
	client *xhttp.Client
	logger *logger.Logger
	sleep  SleepFunc
	now    func() time.Time
}

type Option func(*TelegramDispatcher)

// WithSleep replaces the backoff wait.
func WithSleep(fn SleepFunc) Option {
	return func(d *TelegramDispatcher) { d.sleep = fn }
}

// WithClock replaces the clock used when a record has no timestamp.
func WithClock(now func() time.Time) Option {
	return func(d *TelegramDispatcher) { d.now = now }
}

func NewTelegramDispatcher(cfg Config, log *logger.Logger, opts ...Option) *TelegramDispatcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 6 * time.Second
	}
	d := &TelegramDispatcher{
		cfg:    cfg,
		client: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		logger: log,
		sleep:  sleepCtx,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Configured reports whether both token and chat id are set.
func (d *TelegramDispatcher) Configured() bool {
	return d.cfg.BotToken != "" && d.cfg.ChatID != ""
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Dispatch sends c with up to MaxRetries attempts and linear backoff
// (Backoff * attempt) after each failure. Only HTTP 200 counts as delivered.
func (d *TelegramDispatcher) Dispatch(ctx context.Context, c models.Candidate, ts int64) service.Delivery {
	if !d.Configured() {
		d.logger.Debug("telegram not configured, skipping alert", logger.String("symbol", c.Symbol))
		return service.Delivery{}
	}

	body := sendMessageRequest{
		ChatID:                d.cfg.ChatID,
		Text:                  FormatMessage(c, ts, d.now()),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(d.cfg.BaseURL, "/"), d.cfg.BotToken)

	var (
		lastErr  error
		attempts int
	)
	for attempts < d.cfg.MaxRetries {
		attempts++
		lastErr = d.send(ctx, url, body)
		if lastErr == nil {
			return service.Delivery{Sent: true, Attempts: attempts}
		}
		d.logger.Warn("telegram send failed",
			logger.String("symbol", c.Symbol),
			logger.Int("attempt", attempts),
			logger.Error(lastErr),
		)
		if ctx.Err() != nil {
			break
		}
		d.sleep(ctx, d.cfg.Backoff*time.Duration(attempts))
		if ctx.Err() != nil {
			break
		}
	}

	d.logger.Error("telegram send gave up",
		logger.String("symbol", c.Symbol),
		logger.Int("attempts", attempts),
		logger.Error(lastErr),
	)
	return service.Delivery{Sent: false, Attempts: attempts}
}

func (d *TelegramDispatcher) send(ctx context.Context, url string, body sendMessageRequest) error {
	resp, err := d.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return &xhttp.StatusError{Code: resp.StatusCode, Body: string(msg)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// FormatMessage renders the alert text. The time comes from ts when set,
// otherwise from now.
func FormatMessage(c models.Candidate, ts int64, now time.Time) string {
	reason := c.Reasoning
	if reason == "" {
		reason = "-"
	}
	return fmt.Sprintf("🚨 Signal: %s\nAction: %s  |  Confidence: %d%%\nReason: %s\nTime: %s",
		c.Symbol, c.Side, c.Confidence, reason, util.FormatUnixLocal(ts, now))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
