package inbound

import (
	"time"

	"github.com/shandysiswandi/entryotp/internal/pkg/storage"
	"github.com/shandysiswandi/entryotp/internal/pkg/valueobject"
)

type OTPSendRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
}

type OTPResendRequest struct {
	EntryID int64 `json:"entry_id,string"`
}

type OTPIssueResponse struct {
	EntryID     int64           `json:"entry_id,string"`
	EntryNumber string          `json:"entry_number"`
	Delivered   map[string]bool `json:"delivered"`
	ExpiresIn   int64           `json:"expires_in"`
}

func (OTPIssueResponse) Message() string {
	return "OTP sent successfully."
}

type OTPVerifyRequest struct {
	EntryID int64  `json:"entry_id,string"`
	Code    string `json:"otp"`
}

type OTPVerifyResponse struct {
	EntryID         int64     `json:"entry_id,string"`
	EntryNumber     string    `json:"entry_number"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone"`
	VerifiedAt      time.Time `json:"verified_at"`
	AlreadyVerified bool      `json:"already_verified"`
}

func (r OTPVerifyResponse) Message() string {
	if r.AlreadyVerified {
		return "Entry is already verified."
	}
	return "Verification successful!"
}

type StatsResponse struct {
	TotalEntries       int64 `json:"total_entries"`
	VerifiedEntries    int64 `json:"verified_entries"`
	PendingEntries     int64 `json:"pending_entries"`
	TodayEntries       int64 `json:"today_entries"`
	TodayOTPsIssued    int64 `json:"today_otps_issued"`
	TodayFailedVerify  int64 `json:"today_failed_verify"`
	NotificationSent   int64 `json:"notification_sent"`
	NotificationFailed int64 `json:"notification_failed"`
}

type EntryResponse struct {
	ID          int64      `json:"id,string"`
	EntryNumber string     `json:"entry_number"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	WhatsApp    string     `json:"whatsapp,omitempty"`
	Email       string     `json:"email,omitempty"`
	IsVerified  bool       `json:"is_verified"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type EntriesResponse struct {
	total int64
	size  int32
	page  int32

	Entries []EntryResponse `json:"entries"`
}

func (r EntriesResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
		"size":  r.size,
		"page":  r.page,
	}
}

type EntryDeleteResponse struct{}

func (EntryDeleteResponse) Message() string {
	return "Entry deleted."
}

type EntryBulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type EntryBulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

func (EntryBulkDeleteResponse) Message() string {
	return "Entries deleted."
}

type EntryExportRequest struct {
	Search string `json:"search"`
	Status string `json:"status"`
}

type EntryExportResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (EntryExportResponse) Message() string {
	return "Export created."
}

type EntryExportsResponse struct {
	Exports []storage.ObjectInfo `json:"exports"`
}

type AttemptResponse struct {
	ID         int64               `json:"id,string"`
	EntryID    *int64              `json:"entry_id,omitempty,string"`
	SourceIP   string              `json:"source_ip"`
	Kind       string              `json:"kind"`
	Successful bool                `json:"successful"`
	Outcome    string              `json:"outcome"`
	Detail     valueobject.JSONMap `json:"detail,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

type AttemptsResponse struct {
	total int64
	size  int32
	page  int32

	Attempts []AttemptResponse `json:"attempts"`
}

func (r AttemptsResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
		"size":  r.size,
		"page":  r.page,
	}
}

type ChannelSettingResponse struct {
	Kind     string `json:"kind"`
	Provider string `json:"provider"`
	Enabled  bool   `json:"enabled"`
}

type OTPSettingsResponse struct {
	TTLSeconds  int64 `json:"ttl_seconds"`
	MaxAttempts int   `json:"max_attempts"`
}

type LimitSettingsResponse struct {
	IPIssuePerHour        int64 `json:"ip_issue_per_hour"`
	EntryIssuePerHour     int64 `json:"entry_issue_per_hour"`
	IPVerifyFailures      int64 `json:"ip_verify_failures"`
	IPVerifyWindowMinutes int64 `json:"ip_verify_window_minutes"`
}

// SettingsResponse never carries secret values, only whether each is set.
type SettingsResponse struct {
	AppName              string                   `json:"app_name"`
	Channels             []ChannelSettingResponse `json:"channels"`
	OTP                  OTPSettingsResponse      `json:"otp"`
	Limits               LimitSettingsResponse    `json:"limits"`
	ExportURLTTLMinutes  int64                    `json:"export_url_ttl_minutes"`
	MaintenanceEndpoints []string                 `json:"maintenance_endpoints"`
	Secrets              map[string]bool          `json:"secrets_configured"`
}
