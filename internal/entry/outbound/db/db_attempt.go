package db

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/entryotp/internal/entry/entity"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertAttempt(ctx context.Context, db execer, a entity.Attempt) error {
	_, err := db.Exec(ctx, `
		INSERT INTO otp_attempts (id, entry_id, source_ip, kind, successful, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.EntryID, a.SourceIP, string(a.Kind), a.Successful, string(a.Outcome), a.Detail, a.CreatedAt)
	return err
}

func (s *DB) CreateAttempt(ctx context.Context, in entity.Attempt) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAttempt")
	defer func() { s.endSpan(span, err) }()

	return s.mapError(insertAttempt(ctx, s.conn, in))
}

func (s *DB) CountAttempts(ctx context.Context, filter entity.AttemptCountFilter) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "CountAttempts")
	defer func() { s.endSpan(span, err) }()

	conds := []string{"created_at > $1"}
	args := []any{filter.Since}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.SourceIP != "" {
		add("source_ip = ?", filter.SourceIP)
	}
	if filter.EntryID != 0 {
		add("entry_id = ?", filter.EntryID)
	}
	if filter.Kind != "" {
		add("kind = ?", string(filter.Kind))
	}
	if len(filter.Outcomes) > 0 {
		outcomes := make([]string, 0, len(filter.Outcomes))
		for _, o := range filter.Outcomes {
			outcomes = append(outcomes, string(o))
		}
		add("outcome = ANY(?)", outcomes)
	}

	var count int64
	err = s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM otp_attempts WHERE `+strings.Join(conds, " AND "), args...).Scan(&count)
	if err != nil {
		return 0, s.mapError(err)
	}
	return count, nil
}

func (s *DB) GetAttemptList(ctx context.Context, filter entity.AttemptListFilter) (_ []entity.Attempt, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "GetAttemptList")
	defer func() { s.endSpan(span, err) }()

	var (
		conds []string
		args  []any
	)
	if filter.SourceIP != "" {
		args = append(args, filter.SourceIP)
		conds = append(conds, "source_ip = $"+strconv.Itoa(len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		conds = append(conds, "kind = $"+strconv.Itoa(len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM otp_attempts`+where, args...).Scan(&total); err != nil {
		return nil, 0, s.mapError(err)
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.conn.Query(ctx, `
		SELECT id, entry_id, source_ip, kind, successful, outcome, detail, created_at
		FROM otp_attempts`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	attempts := make([]entity.Attempt, 0, filter.Limit)
	for rows.Next() {
		var (
			a       entity.Attempt
			kind    string
			outcome string
		)
		if err := rows.Scan(&a.ID, &a.EntryID, &a.SourceIP, &kind, &a.Successful, &outcome, &a.Detail, &a.CreatedAt); err != nil {
			return nil, 0, s.mapError(err)
		}
		a.Kind = entity.AttemptKind(kind)
		a.Outcome = entity.Outcome(outcome)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, s.mapError(err)
	}

	return attempts, total, nil
}

func (s *DB) CreateNotificationLog(ctx context.Context, in entity.NotificationLog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateNotificationLog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO notification_logs (id, entry_id, channel, purpose, recipient, subject, message, status, diagnostic, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		in.ID, in.EntryID, in.Channel, in.Purpose, in.Recipient, in.Subject, in.Message, in.Status, in.Diagnostic, in.CreatedAt)
	return s.mapError(err)
}
