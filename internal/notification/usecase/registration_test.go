package usecase

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/entryotp/internal/notification/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodeURL(t *testing.T) {
	// Arrange
	reg := entity.Registration{
		EntryNumber: "LOTDA1B2C3",
		Name:        "Asha Rao",
		Email:       "asha@example.com",
		Phone:       "9876543210",
		VerifiedAt:  time.Date(2026, 3, 14, 9, 30, 5, 0, time.FixedZone("IST", 5*3600+1800)),
	}

	// Act
	link, err := QRCodeURL(reg, "LOTD")

	// Assert
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, qrCodeEndpoint))

	raw, err := url.QueryUnescape(strings.TrimPrefix(link, qrCodeEndpoint))
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, map[string]string{
		"entry_number": "LOTDA1B2C3",
		"name":         "Asha Rao",
		"email":        "asha@example.com",
		"phone":        "9876543210",
		"verified_at":  "2026-03-14 04:00:05",
		"app":          "LOTD",
	}, got)
}

func TestUsecase_confirmationMessage(t *testing.T) {
	t.Run("DefaultTemplate", func(t *testing.T) {
		// Arrange
		h := newHarness(t, "")

		// Act
		msg, err := h.uc.confirmationMessage(entity.Registration{
			EntryNumber: "LOTDA1B2C3",
			Name:        "Asha Rao",
			Phone:       "9876543210",
			VerifiedAt:  h.clock.Now(),
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Registration Successful - LOTD", msg.Subject)
		assert.Contains(t, msg.Text, "Hello Asha Rao,")
		assert.Contains(t, msg.Text, "Entry Number: LOTDA1B2C3")
		assert.Contains(t, msg.Text, "Verified: 2026-03-14 09:30:00")
		assert.Contains(t, msg.Text, "Thank you for registering with LOTD!")
		assert.True(t, strings.HasPrefix(msg.MediaURL, qrCodeEndpoint))
		assert.Equal(t, "Entry LOTDA1B2C3", msg.MediaCaption)
	})

	t.Run("ConfiguredTemplate", func(t *testing.T) {
		// Arrange
		h := newHarness(t, `
app:
  name: Fair
modules:
  notification:
    confirmation_template: "{{.Name}} is {{.EntryNumber}} at {{.App}}"
`)

		// Act
		msg, err := h.uc.confirmationMessage(entity.Registration{EntryNumber: "N1", Name: "Ravi"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Ravi is N1 at Fair", msg.Text)
		assert.Equal(t, "Registration Successful - Fair", msg.Subject)
	})

	t.Run("BrokenTemplate", func(t *testing.T) {
		// Arrange
		h := newHarness(t, `
modules:
  notification:
    confirmation_template: "{{.Name"
`)

		// Act
		_, err := h.uc.confirmationMessage(entity.Registration{EntryNumber: "N1", Name: "Ravi"})

		// Assert
		require.Error(t, err)
	})
}

func Test_recipientFor(t *testing.T) {
	reg := entity.Registration{Email: "a@example.com", Phone: "111", WhatsApp: "222"}

	assert.Equal(t, "222", recipientFor(reg, "whatsapp"))
	assert.Equal(t, "111", recipientFor(reg, "sms"))
	assert.Equal(t, "a@example.com", recipientFor(reg, "email"))
	assert.Empty(t, recipientFor(reg, "pigeon"))

	reg.WhatsApp = ""
	assert.Equal(t, "111", recipientFor(reg, "whatsapp"))
}
