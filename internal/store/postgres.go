package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// Schema is the SQL DDL for the tip_rows table. Execute it via
// [PostgresSink.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS tip_rows (
    shift_date  DATE NOT NULL,
    shift_code  TEXT NOT NULL,
    employee    TEXT NOT NULL,
    role        TEXT NOT NULL,
    category    TEXT NOT NULL,
    amount      NUMERIC(12,2) NOT NULL,
    food_sales  NUMERIC(12,2),
    record_id   TEXT NOT NULL,
    pay_period  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (shift_date, shift_code, employee, role)
);
CREATE INDEX IF NOT EXISTS idx_tip_rows_pay_period ON tip_rows(pay_period);
`

// DB is the database interface used by [PostgresSink]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink is a [Sink] backed by a PostgreSQL tip_rows table, one row
// per payout.
type PostgresSink struct {
	db DB
}

var _ Sink = (*PostgresSink)(nil)

// NewPostgresSink creates a [PostgresSink] on db. The caller is responsible
// for calling [PostgresSink.Migrate] before the first Save.
func NewPostgresSink(db DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Migrate executes the [Schema] DDL.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

const upsertRow = `
	INSERT INTO tip_rows (
		shift_date, shift_code, employee, role, category,
		amount, food_sales, record_id, pay_period
	) VALUES ($1::date, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9)
	ON CONFLICT (shift_date, shift_code, employee, role) DO UPDATE SET
		category = EXCLUDED.category,
		amount = EXCLUDED.amount,
		food_sales = EXCLUDED.food_sales,
		record_id = EXCLUDED.record_id,
		pay_period = EXCLUDED.pay_period,
		updated_at = now()`

// Save upserts one row per payout, then removes rows of the same shift for
// employees the record no longer pays.
func (s *PostgresSink) Save(ctx context.Context, rec *shift.Record) error {
	rows := rec.Rows()
	keep := make([]string, 0, len(rows))
	for _, r := range rows {
		var sales *string
		if r.FoodSales != nil {
			v := r.FoodSales.StringFixed(2)
			sales = &v
		}
		_, err := s.db.Exec(ctx, upsertRow,
			r.Date, string(r.ShiftCode), r.Employee, string(r.Role), string(r.Category),
			r.Amount.StringFixed(2), sales, rec.ID, rec.Context.PayPeriod.ID,
		)
		if err != nil {
			return fmt.Errorf("store: save %s %s %s: %w", r.Date, r.ShiftCode, r.Employee, err)
		}
		keep = append(keep, r.Employee+"/"+string(r.Role))
	}

	const prune = `
		DELETE FROM tip_rows
		WHERE shift_date = $1::date AND shift_code = $2
		  AND NOT ((employee || '/' || role) = ANY($3))`
	if _, err := s.db.Exec(ctx, prune, rec.Context.DateString(), string(rec.Context.Code), keep); err != nil {
		return fmt.Errorf("store: prune %s %s: %w", rec.Context.DateString(), rec.Context.Code, err)
	}
	return nil
}

// Rows returns the stored rows of one shift, servers first then by name.
// A shift that was never saved yields an empty slice.
func (s *PostgresSink) Rows(ctx context.Context, date string, code shift.Code) ([]shift.Row, error) {
	const query = `
		SELECT shift_date::text, shift_code, employee, role, category,
		       amount::text, food_sales::text
		FROM tip_rows
		WHERE shift_date = $1::date AND shift_code = $2
		ORDER BY category DESC, employee`

	rows, err := s.db.Query(ctx, query, date, string(code))
	if err != nil {
		return nil, fmt.Errorf("store: rows %s %s: %w", date, code, err)
	}
	defer rows.Close()

	out := []shift.Row{}
	for rows.Next() {
		var (
			r                    shift.Row
			shiftCode, role, cat string
			amount               string
			sales                *string
		)
		if err := rows.Scan(&r.Date, &shiftCode, &r.Employee, &role, &cat, &amount, &sales); err != nil {
			return nil, fmt.Errorf("store: rows scan: %w", err)
		}
		r.ShiftCode, r.Role, r.Category = shift.Code(shiftCode), shift.Role(role), shift.Category(cat)
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("store: rows amount %q: %w", amount, err)
		}
		if sales != nil {
			v, err := decimal.NewFromString(*sales)
			if err != nil {
				return nil, fmt.Errorf("store: rows food_sales %q: %w", *sales, err)
			}
			r.FoodSales = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return out, nil
}
