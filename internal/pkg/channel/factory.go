package channel

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	mailer "github.com/shandysiswandi/entryotp/internal/pkg/mail"
)

const (
	ProviderTwilio   = "twilio"
	ProviderFast2SMS = "fast2sms"
	ProviderMeta     = "meta"
	ProviderSMTP     = "smtp"
	ProviderLog      = "log"
)

// FactoryOptions carries provider settings for NewFromProvider.
type FactoryOptions struct {
	HTTPClient *http.Client
	Twilio     TwilioConfig
	Fast2SMS   Fast2SMSConfig
	Meta       MetaConfig
	Mail       mailer.Mail
}

// NewFromProvider builds the channel named by provider for kind.
func NewFromProvider(kind Kind, provider string, opts FactoryOptions) (Channel, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))

	switch {
	case provider == ProviderLog:
		return NewLog(kind), nil
	case kind == KindSMS && provider == ProviderTwilio:
		return NewTwilioSMS(opts.Twilio, opts.HTTPClient)
	case kind == KindSMS && provider == ProviderFast2SMS:
		return NewFast2SMS(opts.Fast2SMS, opts.HTTPClient)
	case kind == KindWhatsApp && provider == ProviderTwilio:
		return NewTwilioWhatsApp(opts.Twilio, opts.HTTPClient)
	case kind == KindWhatsApp && provider == ProviderMeta:
		return NewMetaWhatsApp(opts.Meta, opts.HTTPClient)
	case kind == KindEmail && provider == ProviderSMTP:
		if opts.Mail == nil {
			return nil, errors.New("channel: smtp provider needs a mail sender")
		}
		return NewEmail(opts.Mail), nil
	default:
		return nil, fmt.Errorf("%w: %s for %s", ErrUnknownProvider, provider, kind)
	}
}
