package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/domain/service"
	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"
)

const (
	systemPrompt = "You are a concise trading assistant."

	suffixUnparseable = " (model-unparseable)"
	suffixUnavailable = " (model-unavailable)"

	ReasonDisabled    = "disabled"
	ReasonOK          = "ok"
	ReasonUnparseable = "unparseable"
	ReasonUnavailable = "unavailable"
)

// Config configures the chat completions client.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// Observer is notified of every confirmation outcome.
type Observer func(degraded bool, reason string)

// OpenAIConfirmer asks an OpenAI-compatible chat completions endpoint to
// confirm or revise a candidate.
type OpenAIConfirmer struct {
	cfg      Config
	client   *xhttp.Client
	validate *validator.Validate
	logger   *logger.Logger
	observe  Observer
}

type Option func(*OpenAIConfirmer)

// WithClient overrides the HTTP client.
func WithClient(c *xhttp.Client) Option {
	return func(o *OpenAIConfirmer) { o.client = c }
}

// WithObserver registers a callback for outcomes, used for metrics.
func WithObserver(fn Observer) Option {
	return func(o *OpenAIConfirmer) { o.observe = fn }
}

func NewOpenAIConfirmer(cfg Config, log *logger.Logger, opts ...Option) *OpenAIConfirmer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	o := &OpenAIConfirmer{
		cfg:      cfg,
		client:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		validate: validator.New(),
		logger:   log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enabled reports whether an API key is configured.
func (o *OpenAIConfirmer) Enabled() bool {
	return strings.TrimSpace(o.cfg.APIKey) != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// decision is the schema the model must answer with. Pointers tell an absent
// or null key apart from a zero value; all four keys are required.
type decision struct {
	Symbol     *string  `json:"symbol" validate:"required"`
	Side       *string  `json:"side" validate:"required,oneof=BUY SELL HOLD"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=100"`
	Reasoning  *string  `json:"reasoning" validate:"required"`
}

// Confirm never fails. Without an API key it returns the candidate untouched
// and makes no request.
func (o *OpenAIConfirmer) Confirm(ctx context.Context, c models.Candidate, agg models.Aggregates) service.Confirmation {
	if !o.Enabled() {
		o.report(false, ReasonDisabled)
		return service.Confirmation{Result: c}
	}

	content, err := o.complete(ctx, c, agg)
	if err != nil {
		reason, suffix := ReasonUnavailable, suffixUnavailable
		if errors.Is(err, xhttp.ErrDecode) {
			reason, suffix = ReasonUnparseable, suffixUnparseable
		}
		o.logger.Warn("confirmation request failed",
			logger.String("symbol", c.Symbol),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return o.degrade(c, reason, suffix)
	}

	d, err := o.parse(content, c.Symbol)
	if err != nil {
		o.logger.Warn("confirmation response unparseable",
			logger.String("symbol", c.Symbol),
			logger.String("content", truncate(content, 200)),
			logger.Error(err),
		)
		return o.degrade(c, ReasonUnparseable, suffixUnparseable)
	}

	out := models.Candidate{
		Symbol:     c.Symbol,
		Side:       models.Side(*d.Side),
		Confidence: models.ClampConfidence(int(*d.Confidence + 0.5)),
		Reasoning:  *d.Reasoning,
	}
	o.report(false, ReasonOK)
	return service.Confirmation{Result: out}
}

func (o *OpenAIConfirmer) complete(ctx context.Context, c models.Candidate, agg models.Aggregates) (string, error) {
	prompt, err := buildPrompt(c, agg)
	if err != nil {
		return "", err
	}

	req := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: 0.0,
	}

	var resp chatResponse
	err = o.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + o.cfg.APIKey,
			"Content-Type":  "application/json",
		},
		Body: req,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("chat completions: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", xhttp.ErrDecode)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parse accepts either a bare JSON object or one embedded in prose or a code
// fence. The answer must be about symbol.
func (o *OpenAIConfirmer) parse(content, symbol string) (decision, error) {
	var d decision
	err := json.Unmarshal([]byte(content), &d)
	if err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return d, fmt.Errorf("no json object in response: %w", err)
		}
		d = decision{}
		if err := json.Unmarshal([]byte(content[start:end+1]), &d); err != nil {
			return d, fmt.Errorf("decode decision: %w", err)
		}
	}
	if d.Side != nil {
		side, _ := models.ParseSide(*d.Side)
		norm := string(side)
		d.Side = &norm
	}
	if err := o.validate.Struct(d); err != nil {
		return d, fmt.Errorf("invalid decision: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(*d.Symbol), symbol) {
		return d, fmt.Errorf("decision for %q, want %q", *d.Symbol, symbol)
	}
	return d, nil
}

func (o *OpenAIConfirmer) degrade(c models.Candidate, reason, suffix string) service.Confirmation {
	c.Reasoning += suffix
	o.report(true, reason)
	return service.Confirmation{Result: c, Degraded: true}
}

func (o *OpenAIConfirmer) report(degraded bool, reason string) {
	if o.observe != nil {
		o.observe(degraded, reason)
	}
}

func buildPrompt(c models.Candidate, agg models.Aggregates) (string, error) {
	cand, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	ctx, err := json.Marshal(agg)
	if err != nil {
		return "", err
	}
	return "Given the candidate and recent aggregates, answer in JSON " +
		`{"symbol":"","side":"BUY|SELL|HOLD","confidence":0-100,"reasoning":"..."}.` +
		"\n\nCandidate: " + string(cand) +
		"\n\nAggregates: " + string(ctx) +
		"\n\nReturn only valid JSON with keys: symbol, side, confidence, reasoning.", nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
