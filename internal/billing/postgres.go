package billing

import (
	"context"
	"fmt"
	"time"

	"registrydash/internal/db"

	"github.com/jackc/pgx/v5"
)

// Repository reads the finance collections from Postgres.
type Repository struct {
	q db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Sources exposes the repository through the data provider contract.
func (r *Repository) Sources() Sources {
	return Sources{
		Transactions:  SourceFunc[Transaction](r.Transactions),
		FloatLedgers:  SourceFunc[FloatLedger](r.FloatLedgers),
		FloatRequests: SourceFunc[FloatRequest](r.FloatRequests),
	}
}

// limitArg maps "no limit" to SQL NULL, which Postgres reads as LIMIT ALL.
func limitArg(q Query) any {
	if q.Limit == 0 {
		return nil
	}
	return q.Limit
}

func (r *Repository) Transactions(ctx context.Context, q Query) ([]Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		select id, amount, description
		from billing_transactions
		order by id
		limit $1 offset $2
	`, limitArg(q), q.Offset())
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transaction, error) {
		var t Transaction
		err := row.Scan(&t.ID, &t.Amount, &t.Description)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) FloatLedgers(ctx context.Context, q Query) ([]FloatLedger, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		select entry_id, entry_date, description, amount, balance
		from float_ledger_entries
		order by entry_date, seq
		limit $1 offset $2
	`, limitArg(q), q.Offset())
	if err != nil {
		return nil, fmt.Errorf("query float ledgers: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (FloatLedger, error) {
		var e FloatLedger
		err := row.Scan(&e.ID, &e.Date, &e.Description, &e.Amount, &e.Balance)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan float ledgers: %w", err)
	}
	return out, nil
}

func (r *Repository) FloatRequests(ctx context.Context, q Query) ([]FloatRequest, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		select id, date_requested, amount, status, branch_id
		from float_requests
		order by id
		limit $1 offset $2
	`, limitArg(q), q.Offset())
	if err != nil {
		return nil, fmt.Errorf("query float requests: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (FloatRequest, error) {
		var fr FloatRequest
		var status string
		if err := row.Scan(&fr.ID, &fr.DateRequested, &fr.Amount, &status, &fr.BranchID); err != nil {
			return fr, err
		}
		fr.Status = FloatStatus(status)
		if !fr.Status.Valid() {
			return fr, fmt.Errorf("float request %d: unknown status %q", fr.ID, status)
		}
		return fr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan float requests: %w", err)
	}
	return out, nil
}

// Seed replaces the finance tables' contents with the given datasets.
func Seed(ctx context.Context, tx pgx.Tx, txs []Transaction, ledgers []FloatLedger, reqs []FloatRequest) error {
	for _, stmt := range []string{
		`delete from billing_transactions`,
		`delete from float_ledger_entries`,
		`delete from float_requests`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	}
	for _, t := range txs {
		if _, err := tx.Exec(ctx,
			`insert into billing_transactions (id, amount, description) values ($1, $2, $3)`,
			t.ID, t.Amount, t.Description); err != nil {
			return fmt.Errorf("insert transaction %d: %w", t.ID, err)
		}
	}
	for i, e := range ledgers {
		if _, err := tx.Exec(ctx,
			`insert into float_ledger_entries (seq, entry_id, entry_date, description, amount, balance) values ($1, $2, $3, $4, $5, $6)`,
			i+1, e.ID, e.Date, e.Description, e.Amount, e.Balance); err != nil {
			return fmt.Errorf("insert float ledger entry %d: %w", i+1, err)
		}
	}
	for _, fr := range reqs {
		if _, err := tx.Exec(ctx,
			`insert into float_requests (id, date_requested, amount, status, branch_id) values ($1, $2, $3, $4, $5)`,
			fr.ID, fr.DateRequested, fr.Amount, string(fr.Status), fr.BranchID); err != nil {
			return fmt.Errorf("insert float request %d: %w", fr.ID, err)
		}
	}
	return nil
}
