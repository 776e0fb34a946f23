package usecase

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/shandysiswandi/entryotp/internal/notification/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
)

const (
	qrCodeEndpoint   = "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data="
	verifiedAtLayout = "2006-01-02 15:04:05"
)

const defaultConfirmationTemplate = `Registration Successful!

Hello {{.Name}},

Your registration has been verified successfully!

Registration Details:
Entry Number: {{.EntryNumber}}
Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Verified: {{.VerifiedAt}}

Your QR code is attached below. Keep it safe for future reference.

Thank you for registering with {{.App}}!`

type qrPayload struct {
	EntryNumber string `json:"entry_number"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	VerifiedAt  string `json:"verified_at"`
	App         string `json:"app"`
}

// QRCodeURL links to a rendered QR code carrying the registration details.
func QRCodeURL(r entity.Registration, app string) (string, error) {
	data, err := json.Marshal(qrPayload{
		EntryNumber: r.EntryNumber,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		VerifiedAt:  r.VerifiedAt.UTC().Format(verifiedAtLayout),
		App:         app,
	})
	if err != nil {
		return "", err
	}
	return qrCodeEndpoint + url.QueryEscape(string(data)), nil
}

func (s *Usecase) confirmationMessage(r entity.Registration) (channel.Message, error) {
	app := s.appName()

	qr, err := QRCodeURL(r, app)
	if err != nil {
		return channel.Message{}, err
	}

	tpl := s.cfg.GetString("modules.notification.confirmation_template")
	if tpl == "" {
		tpl = defaultConfirmationTemplate
	}

	text, err := s.renderTemplate("confirmation", tpl, map[string]any{
		"Name":        r.Name,
		"EntryNumber": r.EntryNumber,
		"Email":       r.Email,
		"Phone":       r.Phone,
		"VerifiedAt":  r.VerifiedAt.UTC().Format(verifiedAtLayout),
		"App":         app,
	})
	if err != nil {
		return channel.Message{}, err
	}

	return channel.Message{
		Subject:      fmt.Sprintf("Registration Successful - %s", app),
		Text:         text,
		MediaURL:     qr,
		MediaCaption: "Entry " + r.EntryNumber,
	}, nil
}

func recipientFor(r entity.Registration, kind channel.Kind) string {
	switch kind {
	case channel.KindWhatsApp:
		if r.WhatsApp != "" {
			return r.WhatsApp
		}
		return r.Phone
	case channel.KindSMS:
		return r.Phone
	case channel.KindEmail:
		return r.Email
	default:
		return ""
	}
}

// confirmationChannels defaults to WhatsApp and email.
func (s *Usecase) confirmationChannels() []channel.Kind {
	kinds, err := channel.ParseKinds(s.cfg.GetArray("modules.notification.confirmation_channels"))
	if err != nil || len(kinds) == 0 {
		return []channel.Kind{channel.KindWhatsApp, channel.KindEmail}
	}
	return kinds
}
