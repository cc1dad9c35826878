// Package billing holds the finance collections shown on the ledger and
// finances pages: wallet transactions, float ledger entries and float requests.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidQuery = errors.New("invalid query")

type Transaction struct {
	ID          int64  `json:"id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type FloatLedger struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Balance     int64     `json:"balance"`
}

type FloatStatus string

const (
	StatusPending  FloatStatus = "Pending"
	StatusApproved FloatStatus = "Approved"
	StatusRejected FloatStatus = "Rejected"
)

func (s FloatStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type FloatRequest struct {
	ID            int64       `json:"id"`
	DateRequested time.Time   `json:"date_requested"`
	Amount        int64       `json:"amount"`
	Status        FloatStatus `json:"status"`
	BranchID      int64       `json:"branch_id"`
}

// Query pages through a collection. Zero Limit means no limit; Page starts at 1.
type Query struct {
	Limit int
	Page  int
}

const MaxLimit = 500

func (q Query) Validate() error {
	if q.Limit < 0 || q.Limit > MaxLimit {
		return fmt.Errorf("%w: limit %d outside 0..%d", ErrInvalidQuery, q.Limit, MaxLimit)
	}
	if q.Page < 0 {
		return fmt.Errorf("%w: page %d", ErrInvalidQuery, q.Page)
	}
	return nil
}

// Offset of the first item of the page.
func (q Query) Offset() int {
	if q.Page <= 1 || q.Limit == 0 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Source is the data provider contract: fetch one page of a collection.
type Source[T any] interface {
	Fetch(ctx context.Context, q Query) ([]T, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context, q Query) ([]T, error)

func (f SourceFunc[T]) Fetch(ctx context.Context, q Query) ([]T, error) { return f(ctx, q) }

// Sources bundles the three collections a Store reads.
type Sources struct {
	Transactions  Source[Transaction]
	FloatLedgers  Source[FloatLedger]
	FloatRequests Source[FloatRequest]
}
