package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"roadbook/internal/payroll/models"
	id "roadbook/pkg/domain"
	"roadbook/pkg/platform/sentinel"
	txcontext "roadbook/pkg/platform/tx"
)

// Schema is the payments table. Deployments apply it through their
// migration tooling; integration tests execute it directly. The partial
// unique index is what makes per-diem generation idempotent at the
// storage level.
const Schema = `
CREATE TABLE IF NOT EXISTS payments (
	id               UUID PRIMARY KEY,
	reference        TEXT NOT NULL,
	payee_id         UUID NOT NULL,
	payee_name       TEXT NOT NULL,
	tour_id          UUID,
	kind             TEXT NOT NULL,
	amount           NUMERIC(14,4) NOT NULL,
	currency         TEXT NOT NULL,
	status           TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	per_diem_date    DATE,
	submitted_at     TIMESTAMPTZ,
	approved_at      TIMESTAMPTZ,
	approved_by      UUID,
	rejected_at      TIMESTAMPTZ,
	rejection_reason TEXT NOT NULL DEFAULT '',
	scheduled_at     TIMESTAMPTZ,
	scheduled_for    TIMESTAMPTZ,
	paid_at          TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS payments_reference_key ON payments (reference);

CREATE UNIQUE INDEX IF NOT EXISTS payments_per_diem_key
	ON payments (payee_id, tour_id, per_diem_date)
	WHERE kind = 'per_diem';
`

const uniqueViolation = pq.ErrorCode("23505")

const paymentColumns = `id, reference, payee_id, payee_name, tour_id, kind, amount, currency, status,
	description, per_diem_date, submitted_at, approved_at, approved_by, rejected_at,
	rejection_reason, scheduled_at, scheduled_for, paid_at, created_at, updated_at`

// PostgresPaymentStore persists payments in PostgreSQL. Every method
// joins an ambient transaction when the context carries one, so callers
// can bundle payment writes with their own statements and commit or roll
// back as a unit.
type PostgresPaymentStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed payment store.
func NewPostgresStore(db *sql.DB) *PostgresPaymentStore {
	return &PostgresPaymentStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresPaymentStore) execer(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresPaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(payment.ID),
		payment.Reference,
		uuid.UUID(payment.PayeeID),
		payment.PayeeName,
		nullUUID(uuid.UUID(payment.TourID)),
		string(payment.Kind),
		payment.Amount,
		string(payment.Currency),
		string(payment.Status),
		payment.Description,
		nullDate(payment.PerDiemDate),
		nullTime(payment.SubmittedAt),
		nullTime(payment.ApprovedAt),
		nullUUID(uuid.UUID(payment.ApprovedBy)),
		nullTime(payment.RejectedAt),
		payment.RejectionReason,
		nullTime(payment.ScheduledAt),
		nullTime(payment.ScheduledFor),
		nullTime(payment.PaidAt),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "payments_per_diem_key" {
				return fmt.Errorf("per diem already recorded: %w", sentinel.ErrDuplicate)
			}
			return fmt.Errorf("payment conflict on %s: %w", pqErr.Constraint, sentinel.ErrConflict)
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *PostgresPaymentStore) FindByID(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, uuid.UUID(paymentID))
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find payment by id: %w", err)
	}
	return payment, nil
}

func (s *PostgresPaymentStore) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment reference %s not found: %w", reference, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find payment by reference: %w", err)
	}
	return payment, nil
}

func (s *PostgresPaymentStore) HasPerDiem(ctx context.Context, payeeID id.PersonID, tourID id.TourID, date time.Time) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE kind = 'per_diem' AND payee_id = $1 AND tour_id = $2 AND per_diem_date = $3
		)
	`, uuid.UUID(payeeID), uuid.UUID(tourID), models.CivilDate(date).Format("2006-01-02")).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing per diem: %w", err)
	}
	return exists, nil
}

// Execute loads the payment with FOR UPDATE, runs validate then mutate,
// and writes the mutable columns back in the same transaction. The row
// lock serializes concurrent transitions on one payment. An ambient
// transaction is joined rather than nested, and its owner keeps the
// commit/rollback decision.
func (s *PostgresPaymentStore) Execute(ctx context.Context, paymentID id.PaymentID, validate func(*models.Payment) error, mutate func(*models.Payment)) (*models.Payment, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return s.executeLocked(ctx, tx, paymentID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment transaction: %w", err)
	}
	payment, err := s.executeLocked(ctx, tx, paymentID, validate, mutate)
	if err != nil {
		_ = tx.Rollback()
		return payment, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment update: %w", err)
	}
	return payment, nil
}

func (s *PostgresPaymentStore) executeLocked(ctx context.Context, tx *sql.Tx, paymentID id.PaymentID, validate func(*models.Payment) error, mutate func(*models.Payment)) (*models.Payment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, uuid.UUID(paymentID))
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load payment for update: %w", err)
	}

	if err := validate(payment); err != nil {
		// Record returned alongside the error so callers can inspect the
		// state that blocked them.
		return payment, err
	}
	mutate(payment)

	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET
			status = $2,
			submitted_at = $3,
			approved_at = $4,
			approved_by = $5,
			rejected_at = $6,
			rejection_reason = $7,
			scheduled_at = $8,
			scheduled_for = $9,
			paid_at = $10,
			updated_at = $11
		WHERE id = $1
	`,
		uuid.UUID(payment.ID),
		string(payment.Status),
		nullTime(payment.SubmittedAt),
		nullTime(payment.ApprovedAt),
		nullUUID(uuid.UUID(payment.ApprovedBy)),
		nullTime(payment.RejectedAt),
		payment.RejectionReason,
		nullTime(payment.ScheduledAt),
		nullTime(payment.ScheduledFor),
		nullTime(payment.PaidAt),
		payment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	return payment, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		p          models.Payment
		paymentID  uuid.UUID
		payeeID    uuid.UUID
		tourID     uuid.NullUUID
		approvedBy uuid.NullUUID
		perDiem    sql.NullTime
		submitted  sql.NullTime
		approved   sql.NullTime
		rejected   sql.NullTime
		scheduled  sql.NullTime
		payDate    sql.NullTime
		paid       sql.NullTime
	)
	err := row.Scan(
		&paymentID,
		&p.Reference,
		&payeeID,
		&p.PayeeName,
		&tourID,
		(*string)(&p.Kind),
		&p.Amount,
		(*string)(&p.Currency),
		(*string)(&p.Status),
		&p.Description,
		&perDiem,
		&submitted,
		&approved,
		&approvedBy,
		&rejected,
		&p.RejectionReason,
		&scheduled,
		&payDate,
		&paid,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ID = id.PaymentID(paymentID)
	p.PayeeID = id.PersonID(payeeID)
	if tourID.Valid {
		p.TourID = id.TourID(tourID.UUID)
	}
	if approvedBy.Valid {
		p.ApprovedBy = id.PersonID(approvedBy.UUID)
	}
	if perDiem.Valid {
		// DATE comes back at midnight in the session zone; renormalize.
		date := models.CivilDate(perDiem.Time)
		p.PerDiemDate = &date
	}
	p.SubmittedAt = timePtr(submitted)
	p.ApprovedAt = timePtr(approved)
	p.RejectedAt = timePtr(rejected)
	p.ScheduledAt = timePtr(scheduled)
	p.ScheduledFor = timePtr(payDate)
	p.PaidAt = timePtr(paid)
	return &p, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullDate renders a civil date as text so the cast to DATE never goes
// through the session time zone.
func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format("2006-01-02"), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	copied := t.Time
	return &copied
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
