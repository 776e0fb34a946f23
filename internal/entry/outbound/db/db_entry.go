package db

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

const entryColumns = `id, entry_number, name, phone, whatsapp, email, is_verified, verified_at, created_at, updated_at`

func scanEntry(row pgx.Row) (*entity.Entry, error) {
	var (
		e          entity.Entry
		verifiedAt pgtype.Timestamptz
	)
	if err := row.Scan(&e.ID, &e.EntryNumber, &e.Name, &e.Phone, &e.WhatsApp, &e.Email,
		&e.IsVerified, &verifiedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		e.VerifiedAt = &t
	}
	return &e, nil
}

func (s *DB) GetEntryByID(ctx context.Context, id int64) (_ *entity.Entry, err error) {
	ctx, span := s.startSpan(ctx, "GetEntryByID")
	defer func() { s.endSpan(span, err) }()

	e, err := scanEntry(s.conn.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}
	return e, nil
}

// GetEntryByContact returns the newest entry sharing the phone, the
// whatsapp number or the email.
func (s *DB) GetEntryByContact(ctx context.Context, c entity.Contact) (_ *entity.Entry, err error) {
	ctx, span := s.startSpan(ctx, "GetEntryByContact")
	defer func() { s.endSpan(span, err) }()

	e, err := scanEntry(s.conn.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE phone = $1
		   OR ($2 <> '' AND whatsapp = $2)
		   OR ($3 <> '' AND email = $3)
		ORDER BY created_at DESC
		LIMIT 1`, c.Phone, c.WhatsApp, c.Email))
	if err != nil {
		return nil, s.mapError(err)
	}
	return e, nil
}

func (s *DB) CreateEntry(ctx context.Context, in entity.NewEntry) (err error) {
	ctx, span := s.startSpan(ctx, "CreateEntry")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO entries (id, entry_number, name, phone, whatsapp, email)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		in.ID, in.EntryNumber, in.Contact.Name, in.Contact.Phone, in.Contact.WhatsApp, in.Contact.Email)
	return s.mapError(err)
}

func (s *DB) UpdateEntryContact(ctx context.Context, id int64, c entity.Contact) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateEntryContact")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE entries
		SET name = $2, phone = $3, whatsapp = $4, email = $5, updated_at = NOW()
		WHERE id = $1`, id, c.Name, c.Phone, c.WhatsApp, c.Email)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}

func (s *DB) DeleteEntry(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteEntry")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}

func (s *DB) DeleteEntries(ctx context.Context, ids []int64) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteEntries")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM entries WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *DB) GetEntryList(ctx context.Context, filter entity.EntryListFilter) (_ []entity.Entry, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "GetEntryList")
	defer func() { s.endSpan(span, err) }()

	where, args := entryListWhere(filter)

	var total int64
	if err := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, s.mapError(err)
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.conn.Query(ctx, `SELECT `+entryColumns+` FROM entries`+where+
		` ORDER BY created_at DESC, id DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	entries := make([]entity.Entry, 0, filter.Limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, s.mapError(err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, s.mapError(err)
	}

	return entries, total, nil
}

func entryListWhere(filter entity.EntryListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		p := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(name ILIKE "+p+" OR email ILIKE "+p+" OR phone ILIKE "+p+" OR entry_number ILIKE "+p+")")
	}

	switch filter.Status {
	case entity.EntryStatusVerified:
		conds = append(conds, "is_verified")
	case entity.EntryStatusPending:
		conds = append(conds, "NOT is_verified")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *DB) GetStats(ctx context.Context, dayStart time.Time) (_ *entity.Stats, err error) {
	ctx, span := s.startSpan(ctx, "GetStats")
	defer func() { s.endSpan(span, err) }()

	var st entity.Stats
	err = s.conn.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entries),
			(SELECT COUNT(*) FROM entries WHERE is_verified),
			(SELECT COUNT(*) FROM entries WHERE created_at >= $1),
			(SELECT COUNT(*) FROM otp_attempts WHERE kind = 'issue' AND outcome = 'issued' AND created_at >= $1),
			(SELECT COUNT(*) FROM otp_attempts WHERE kind = 'verify' AND NOT successful AND created_at >= $1),
			(SELECT COUNT(*) FROM notification_logs WHERE status = 'sent'),
			(SELECT COUNT(*) FROM notification_logs WHERE status = 'failed')`, dayStart).
		Scan(&st.TotalEntries, &st.VerifiedEntries, &st.TodayEntries, &st.TodayOTPsIssued,
			&st.TodayFailedVerify, &st.NotificationSent, &st.NotificationFailed)
	if err != nil {
		return nil, s.mapError(err)
	}
	st.PendingEntries = st.TotalEntries - st.VerifiedEntries

	return &st, nil
}
