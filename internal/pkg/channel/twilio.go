package channel

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioConfig configures the Twilio Messages API.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	From        string
	CountryCode string
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string
}

// Twilio sends SMS, or WhatsApp when built with NewTwilioWhatsApp.
type Twilio struct {
	cfg      TwilioConfig
	client   *http.Client
	whatsapp bool
}

// NewTwilioSMS returns a Twilio SMS channel.
func NewTwilioSMS(cfg TwilioConfig, client *http.Client) (*Twilio, error) {
	return newTwilio(cfg, client, false)
}

// NewTwilioWhatsApp returns a Twilio WhatsApp channel.
func NewTwilioWhatsApp(cfg TwilioConfig, client *http.Client) (*Twilio, error) {
	return newTwilio(cfg, client, true)
}

func newTwilio(cfg TwilioConfig, client *http.Client, whatsapp bool) (*Twilio, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, errors.New("channel: twilio account_sid, auth_token and from are required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	cfg.BaseURL = orDefault(cfg.BaseURL, twilioBaseURL)

	return &Twilio{cfg: cfg, client: client, whatsapp: whatsapp}, nil
}

func (t *Twilio) Kind() Kind {
	if t.whatsapp {
		return KindWhatsApp
	}
	return KindSMS
}

func (t *Twilio) Provider() string { return ProviderTwilio }

func (t *Twilio) Send(ctx context.Context, recipient string, msg Message) (string, error) {
	to := InternationalNumber(recipient, t.cfg.CountryCode)
	if to == "" {
		return "", ErrInvalidRecipient
	}
	to = "+" + to
	from := t.cfg.From
	if t.whatsapp {
		to = "whatsapp:" + to
		from = "whatsapp:" + strings.TrimPrefix(from, "whatsapp:")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", msg.Text)
	if t.whatsapp && msg.MediaURL != "" {
		form.Set("MediaUrl", msg.MediaURL)
	}

	endpoint := t.cfg.BaseURL + "/2010-04-01/Accounts/" + url.PathEscape(t.cfg.AccountSID) + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return doRequest(ctx, t.client, req)
}
