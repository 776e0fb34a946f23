package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
)

// secretKeys maps the name shown to operators to the config key holding the
// secret. Only presence is ever reported.
var secretKeys = map[string]string{
	"hmac_secret":       "hash.hmac.secret",
	"smtp_password":     "mail.password",
	"twilio_auth_token": "channel.twilio.auth_token",
	"fast2sms_api_key":  "channel.fast2sms.api_key",
	"meta_access_token": "channel.meta.access_token",
	"s3_secret_key":     "storage.s3.secret_key",
	"minio_secret_key":  "storage.minio.secret_key",
	"gcs_signer_key":    "storage.gcs.signer_private_key",
}

// SettingsShow returns the effective OTP, limit and channel settings. Values
// come from the same getters the OTP flow uses, defaults included.
func (s *Usecase) SettingsShow(ctx context.Context) (*entity.Settings, error) {
	_, span := s.startSpan(ctx, "SettingsShow")
	defer span.End()

	offered := s.otpChannels()
	chans := make([]entity.ChannelSetting, 0, len(channel.Kinds))
	for _, kind := range channel.Kinds {
		chans = append(chans, entity.ChannelSetting{
			Kind:     string(kind),
			Provider: strings.TrimSpace(s.cfg.GetString(fmt.Sprintf("channel.%s.provider", kind))),
			Enabled:  lo.Contains(offered, kind) && s.gateway.Enabled(kind),
		})
	}

	secrets := make(map[string]bool, len(secretKeys))
	for name, key := range secretKeys {
		secrets[name] = strings.TrimSpace(s.cfg.GetString(key)) != ""
	}

	return &entity.Settings{
		AppName:              s.appName(),
		Channels:             chans,
		OTPTTL:               s.otpTTL(),
		MaxAttempts:          s.maxAttempts(),
		IPIssuePerHour:       s.ipIssueLimit(),
		EntryIssuePerHour:    s.entryIssueLimit(),
		IPVerifyFailures:     s.ipVerifyLimit(),
		IPVerifyWindow:       s.ipVerifyWindow(),
		ExportURLTTL:         s.exportURLTTL(),
		MaintenanceEndpoints: s.cfg.GetArray("app.maintenance.endpoints"),
		SecretsConfigured:    secrets,
	}, nil
}
