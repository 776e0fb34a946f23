package inbound

import "time"

type LogResponse struct {
	ID          int64     `json:"id,string"`
	EntryID     *int64    `json:"entry_id,omitempty,string"`
	EntryNumber string    `json:"entry_number,omitempty"`
	Channel     string    `json:"channel"`
	Purpose     string    `json:"purpose"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject,omitempty"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	Diagnostic  string    `json:"diagnostic,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type LogsResponse struct {
	total int64
	size  int32
	page  int32

	Logs []LogResponse `json:"logs"`
}

func (r LogsResponse) Meta() map[string]any {
	return map[string]any{
		"total": r.total,
		"size":  r.size,
		"page":  r.page,
	}
}

type LogClearResponse struct {
	Deleted int64 `json:"deleted"`
}

func (LogClearResponse) Message() string {
	return "Logs cleared successfully"
}

type ChannelCheckRequest struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
}

type ChannelCheckResponse struct {
	Channel    string `json:"channel"`
	Provider   string `json:"provider"`
	Success    bool   `json:"success"`
	Diagnostic string `json:"diagnostic,omitempty"`
	QRCodeURL  string `json:"qr_code_url"`
}

func (r ChannelCheckResponse) Message() string {
	if r.Success {
		return "Test message sent!"
	}
	return "Failed to send test message"
}
