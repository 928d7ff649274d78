package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/yungbote/convoroute-backend/internal/pkg/ctxutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/envutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/httpx"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// Client is the WhatsApp message gateway adapter (Twilio Messaging API).
type Client interface {
	SendWhatsApp(ctx context.Context, to string, body string) (*Message, error)
}

type Config struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	// DefaultFrom is the tenant-agnostic business number; tenants with their
	// own number pass it explicitly.
	DefaultFrom string
	Timeout     time.Duration
	MaxRetries  int
}

func ConfigFromEnv() Config {
	return Config{
		AccountSID:  strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:   strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		BaseURL:     envutil.String("TWILIO_BASE_URL", ""),
		DefaultFrom: envutil.String("TWILIO_WHATSAPP_FROM", ""),
		Timeout:     time.Duration(envutil.Int("TWILIO_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:  envutil.Int("TWILIO_MAX_RETRIES", 4),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("missing TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("missing TWILIO_AUTH_TOKEN")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}

	return &client{
		log:        log.With("client", "TwilioClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type Message struct {
	SID          string  `json:"sid,omitempty"`
	To           string  `json:"to,omitempty"`
	From         string  `json:"from,omitempty"`
	Body         string  `json:"body,omitempty"`
	Status       string  `json:"status,omitempty"`
	ErrorCode    *int    `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

type twilioHTTPError struct {
	StatusCode int
	Body       string
}

func (e *twilioHTTPError) Error() string {
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, e.Body)
}

func (e *twilioHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func ensureWhatsAppPrefix(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (c *client) SendWhatsApp(ctx context.Context, to string, body string) (*Message, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("twilio client unavailable")
	}
	to = ensureWhatsAppPrefix(to)
	if to == "" {
		return nil, fmt.Errorf("twilio: To required")
	}
	from := ensureWhatsAppPrefix(c.cfg.DefaultFrom)
	if from == "" {
		return nil, fmt.Errorf("twilio: missing TWILIO_WHATSAPP_FROM")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("twilio: Body required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg, resp, err := c.postForm(ctx, endpoint, form)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Twilio send retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return nil, lastErr
}

func (c *client) postForm(ctx context.Context, endpoint string, form url.Values) (*Message, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &twilioHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, resp, fmt.Errorf("twilio decode: %w", err)
	}
	return &msg, resp, nil
}
