package usecase

import (
	"time"

	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
)

const (
	defaultOTPTTL           = 10 * time.Minute
	defaultMaxAttempts      = 3
	defaultIPIssueLimit     = 10
	defaultEntryIssueLimit  = 5
	defaultIssueWindow      = time.Hour
	defaultIPVerifyLimit    = 5
	defaultIPVerifyWindow   = 15 * time.Minute
	defaultExportURLTTL     = time.Hour
	defaultIssueLockTimeout = 30 * time.Second
	defaultAppName          = "LOTD"
)

// Limits are read on every call so a config reload applies immediately.

func (s *Usecase) otpTTL() time.Duration {
	return orDuration(s.cfg.GetSecond("modules.entry.otp.ttl_seconds"), defaultOTPTTL)
}

func (s *Usecase) maxAttempts() int {
	return orInt(s.cfg.GetInt("modules.entry.otp.max_attempts"), defaultMaxAttempts)
}

func (s *Usecase) ipIssueLimit() int64 {
	return int64(orInt(s.cfg.GetInt("modules.entry.limit.ip_issue_per_hour"), defaultIPIssueLimit))
}

func (s *Usecase) entryIssueLimit() int64 {
	return int64(orInt(s.cfg.GetInt("modules.entry.limit.entry_issue_per_hour"), defaultEntryIssueLimit))
}

func (s *Usecase) ipVerifyLimit() int64 {
	return int64(orInt(s.cfg.GetInt("modules.entry.limit.ip_verify_failures"), defaultIPVerifyLimit))
}

func (s *Usecase) ipVerifyWindow() time.Duration {
	return orDuration(s.cfg.GetMinute("modules.entry.limit.ip_verify_window_minutes"), defaultIPVerifyWindow)
}

func (s *Usecase) exportURLTTL() time.Duration {
	return orDuration(s.cfg.GetMinute("modules.entry.export.url_ttl_minutes"), defaultExportURLTTL)
}

func (s *Usecase) appName() string {
	if v := s.cfg.GetString("app.name"); v != "" {
		return v
	}
	return defaultAppName
}

// otpChannels returns the configured delivery kinds, all kinds when unset.
func (s *Usecase) otpChannels() []channel.Kind {
	kinds, err := channel.ParseKinds(s.cfg.GetArray("modules.entry.otp.channels"))
	if err != nil || len(kinds) == 0 {
		return channel.Kinds
	}
	return kinds
}

// pageOffset widens before multiplying; page is at least 1.
func pageOffset(page, size int32) int64 {
	return int64(page-1) * int64(size)
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
