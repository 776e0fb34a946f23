package entity

import "time"

// ChannelSetting describes one delivery kind as the running process sees it.
type ChannelSetting struct {
	Kind     string
	Provider string
	// Enabled is true when the kind is offered for OTP delivery and a sender
	// was built for it at startup.
	Enabled bool
}

// Settings is the effective configuration shown to operators. Secrets are
// reported only as present or absent.
type Settings struct {
	AppName  string
	Channels []ChannelSetting

	OTPTTL      time.Duration
	MaxAttempts int

	IPIssuePerHour       int64
	EntryIssuePerHour    int64
	IPVerifyFailures     int64
	IPVerifyWindow       time.Duration
	ExportURLTTL         time.Duration
	MaintenanceEndpoints []string
	SecretsConfigured    map[string]bool
}
