package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/valueobject"
)

// lockEntry takes the row lock that serializes issuance and verification
// of one entry.
func lockEntry(ctx context.Context, tx pgx.Tx, id int64) (*entity.Entry, error) {
	return scanEntry(tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1 FOR UPDATE`, id))
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
		slog.ErrorContext(ctx, "failed to rolback", "error", rErr)
	}
}

func (s *DB) ReplaceOTP(ctx context.Context, otp entity.OTP) (err error) {
	ctx, span := s.startSpan(ctx, "ReplaceOTP")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	if _, err := lockEntry(ctx, tx, otp.EntryID); err != nil {
		return s.mapError(err)
	}

	if _, err := tx.Exec(ctx, `UPDATE otps SET is_used = TRUE WHERE entry_id = $1 AND NOT is_used`, otp.EntryID); err != nil {
		return s.mapError(err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO otps (id, entry_id, code_hash, issued_at, expires_at, is_used, attempt_count)
		VALUES ($1, $2, $3, $4, $5, FALSE, 0)`,
		otp.ID, otp.EntryID, otp.CodeHash, otp.IssuedAt, otp.ExpiresAt); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// ApplyVerification commits the decision and the attempt record together.
// Failed outcomes are committed as well; only storage errors roll back.
func (s *DB) ApplyVerification(ctx context.Context, attempt entity.Attempt, decide func(otp *entity.OTP) entity.VerifyDecision) (_ *entity.VerifyResult, err error) {
	ctx, span := s.startSpan(ctx, "ApplyVerification")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	entry, err := lockEntry(ctx, tx, *attempt.EntryID)
	if err != nil {
		return nil, s.mapError(err)
	}

	if entry.IsVerified {
		return &entity.VerifyResult{
			Decision:        entity.VerifyDecision{Outcome: entity.OutcomeVerified},
			Entry:           *entry,
			AlreadyVerified: true,
		}, nil
	}

	otp, err := activeOTP(ctx, tx, entry.ID, attempt.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	decision := decide(otp)
	res := &entity.VerifyResult{Decision: decision, Entry: *entry}
	if otp != nil {
		res.AttemptCount = otp.AttemptCount
	}

	if decision.IncrementAttempt {
		if err := tx.QueryRow(ctx, `UPDATE otps SET attempt_count = attempt_count + 1 WHERE id = $1 RETURNING attempt_count`,
			otp.ID).Scan(&res.AttemptCount); err != nil {
			return nil, s.mapError(err)
		}
	}

	if decision.MarkUsed {
		if _, err := tx.Exec(ctx, `UPDATE otps SET is_used = TRUE WHERE id = $1`, otp.ID); err != nil {
			return nil, s.mapError(err)
		}
	}

	if decision.VerifyEntry {
		verifiedAt := attempt.CreatedAt
		if _, err := tx.Exec(ctx, `UPDATE entries SET is_verified = TRUE, verified_at = $2, updated_at = NOW() WHERE id = $1`,
			entry.ID, verifiedAt); err != nil {
			return nil, s.mapError(err)
		}
		res.Entry.IsVerified = true
		res.Entry.VerifiedAt = &verifiedAt
	}

	attempt.Outcome = decision.Outcome
	attempt.Successful = decision.Successful()
	if otp != nil {
		attempt.Detail = valueobject.JSONMap{"otp_id": otp.ID, "attempt_count": res.AttemptCount}
	}
	if err := insertAttempt(ctx, tx, attempt); err != nil {
		return nil, s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, s.mapError(err)
	}

	return res, nil
}

func activeOTP(ctx context.Context, tx pgx.Tx, entryID int64, now time.Time) (*entity.OTP, error) {
	var o entity.OTP
	err := tx.QueryRow(ctx, `
		SELECT id, entry_id, code_hash, issued_at, expires_at, is_used, attempt_count
		FROM otps
		WHERE entry_id = $1 AND NOT is_used AND expires_at > $2
		ORDER BY issued_at DESC
		LIMIT 1`, entryID, now).
		Scan(&o.ID, &o.EntryID, &o.CodeHash, &o.IssuedAt, &o.ExpiresAt, &o.IsUsed, &o.AttemptCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
