package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const fast2smsBaseURL = "https://www.fast2sms.com"

// Fast2SMSConfig configures the Fast2SMS bulk API.
type Fast2SMSConfig struct {
	APIKey   string
	SenderID string
	Route    string
	Language string
	BaseURL  string
}

// Fast2SMS sends SMS to Indian national numbers.
type Fast2SMS struct {
	cfg    Fast2SMSConfig
	client *http.Client
}

// NewFast2SMS returns a Fast2SMS channel.
func NewFast2SMS(cfg Fast2SMSConfig, client *http.Client) (*Fast2SMS, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("channel: fast2sms api_key is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	cfg.BaseURL = orDefault(cfg.BaseURL, fast2smsBaseURL)
	cfg.Route = orDefault(cfg.Route, "q")
	cfg.Language = orDefault(cfg.Language, "english")

	return &Fast2SMS{cfg: cfg, client: client}, nil
}

func (f *Fast2SMS) Kind() Kind { return KindSMS }

func (f *Fast2SMS) Provider() string { return ProviderFast2SMS }

type fast2smsResponse struct {
	Return  bool            `json:"return"`
	Message json.RawMessage `json:"message"`
}

func (f *Fast2SMS) Send(ctx context.Context, recipient string, msg Message) (string, error) {
	number := NationalNumber(recipient)
	if number == "" {
		return "", ErrInvalidRecipient
	}

	form := url.Values{}
	form.Set("sender_id", f.cfg.SenderID)
	form.Set("message", msg.Text)
	form.Set("language", f.cfg.Language)
	form.Set("route", f.cfg.Route)
	form.Set("numbers", number)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.BaseURL+"/dev/bulkV2", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", f.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	diag, err := doRequest(ctx, f.client, req)
	if err != nil {
		return diag, err
	}

	// Fast2SMS reports some rejections with a 200 status.
	var resp fast2smsResponse
	if jsonErr := json.Unmarshal([]byte(diag), &resp); jsonErr == nil && !resp.Return {
		return diag, errors.New("provider rejected message")
	}

	return diag, nil
}
