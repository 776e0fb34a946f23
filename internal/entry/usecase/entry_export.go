package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/storage"
)

const (
	entryExportPageSize int32 = 1_000
	entryExportPrefix         = "exports/"
)

type EntryExportInput struct {
	Search string
	Status string
}

type EntryExportOutput struct {
	Key       string
	URL       string
	Count     int
	ExpiresAt time.Time
}

type exportRecord struct {
	ID          int64      `json:"id,string"`
	EntryNumber string     `json:"entry_number"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	WhatsApp    string     `json:"whatsapp"`
	Email       string     `json:"email"`
	IsVerified  bool       `json:"is_verified"`
	VerifiedAt  *time.Time `json:"verified_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EntryExport writes matching entries as JSON Lines to object storage and
// returns a time limited download link.
func (s *Usecase) EntryExport(ctx context.Context, in EntryExportInput) (*EntryExportOutput, error) {
	ctx, span := s.startSpan(ctx, "EntryExport")
	defer span.End()

	filter := entity.EntryListFilter{
		Search: strings.TrimSpace(in.Search),
		Status: entity.ParseEntryStatus(in.Status),
		Limit:  entryExportPageSize,
	}

	var (
		buf   bytes.Buffer
		count int
	)
	enc := json.NewEncoder(&buf)

	for {
		entries, total, err := s.repoDB.GetEntryList(ctx, filter)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo export entries", "offset", filter.Offset, "error", err)
			return nil, goerror.NewServer(err)
		}

		for _, e := range entries {
			if err := enc.Encode(exportRecord{
				ID:          e.ID,
				EntryNumber: e.EntryNumber,
				Name:        e.Name,
				Phone:       e.Phone,
				WhatsApp:    e.WhatsApp,
				Email:       e.Email,
				IsVerified:  e.IsVerified,
				VerifiedAt:  e.VerifiedAt,
				CreatedAt:   e.CreatedAt,
			}); err != nil {
				slog.ErrorContext(ctx, "failed to encode export record", "entry_id", e.ID, "error", err)
				return nil, goerror.NewServer(err)
			}
		}
		count += len(entries)

		if len(entries) == 0 || int64(count) >= total {
			break
		}
		filter.Offset += int64(entryExportPageSize)
	}

	now := s.clock.Now()
	key := entryExportPrefix + "entries-" + now.Format("20060102T150405Z") + "-" + s.uuid.Generate() + ".jsonl"

	if _, err := s.storage.Put(ctx, key, &buf, storage.PutOptions{
		Size:        int64(buf.Len()),
		ContentType: "application/x-ndjson",
		Metadata:    map[string]string{"records": strconv.Itoa(count)},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to storage put export", "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	ttl := s.exportURLTTL()
	url, err := s.storage.PresignGet(ctx, key, ttl)
	if err != nil {
		slog.ErrorContext(ctx, "failed to storage presign export", "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &EntryExportOutput{Key: key, URL: url, Count: count, ExpiresAt: now.Add(ttl)}, nil
}

// EntryExportList returns the most recent export objects.
func (s *Usecase) EntryExportList(ctx context.Context) ([]storage.ObjectInfo, error) {
	ctx, span := s.startSpan(ctx, "EntryExportList")
	defer span.End()

	objects, err := s.storage.List(ctx, entryExportPrefix, 100)
	if err != nil {
		slog.ErrorContext(ctx, "failed to storage list exports", "error", err)
		return nil, goerror.NewServer(err)
	}

	return objects, nil
}
