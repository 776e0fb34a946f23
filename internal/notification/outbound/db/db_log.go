package db

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/entryotp/internal/notification/entity"
)

func (s *DB) CreateLog(ctx context.Context, in entity.Log) (err error) {
	ctx, span := s.startSpan(ctx, "CreateLog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO notification_logs (id, entry_id, channel, purpose, recipient, subject, message, status, diagnostic, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		in.ID, in.EntryID, in.Channel, in.Purpose.String(), in.Recipient, in.Subject, in.Message,
		in.Status.String(), in.Diagnostic, in.CreatedAt)
	return s.mapError(err)
}

func (s *DB) ListLogs(ctx context.Context, filter entity.LogListFilter) (_ []entity.Log, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "ListLogs")
	defer func() { s.endSpan(span, err) }()

	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.Channel != "" {
		add("n.channel = ?", filter.Channel)
	}
	if filter.Status != entity.DeliveryStatusUnknown {
		add("n.status = ?", filter.Status.String())
	}
	if filter.Purpose != "" {
		add("n.purpose = ?", filter.Purpose.String())
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err = s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM notification_logs n `+where, args...).Scan(&total); err != nil {
		return nil, 0, s.mapError(err)
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.conn.Query(ctx, `
		SELECT n.id, n.entry_id, COALESCE(e.entry_number, ''), n.channel, n.purpose, n.recipient,
		       n.subject, n.message, n.status, n.diagnostic, n.created_at
		FROM notification_logs n
		LEFT JOIN entries e ON e.id = n.entry_id
		`+where+`
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, s.mapError(err)
	}

	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Log, error) {
		var (
			l               entity.Log
			purpose, status string
		)
		err := row.Scan(&l.ID, &l.EntryID, &l.EntryNumber, &l.Channel, &purpose, &l.Recipient,
			&l.Subject, &l.Message, &status, &l.Diagnostic, &l.CreatedAt)
		l.Purpose = entity.Purpose(purpose)
		l.Status = entity.DeliveryStatus(status)
		return l, err
	})
	if err != nil {
		return nil, 0, s.mapError(err)
	}

	return logs, total, nil
}

// DeleteLogs removes logs created before the given instant, or every log
// when before is nil.
func (s *DB) DeleteLogs(ctx context.Context, before *time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteLogs")
	defer func() { s.endSpan(span, err) }()

	query, args := `DELETE FROM notification_logs`, []any(nil)
	if before != nil {
		query += ` WHERE created_at < $1`
		args = append(args, *before)
	}

	tag, err := s.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}
