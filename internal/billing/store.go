package billing

import (
	"context"
	"fmt"
	"sync"

	"registrydash/internal/logging"
)

// TransactionSet is one fetched page of transactions with the totals derived
// from it.
type TransactionSet struct {
	Transactions []Transaction `json:"transactions"`
	TotalAmount  int64         `json:"total_amount"`
	TotalBalance int64         `json:"total_balance"`
}

// Store is one session's finance view state. Fetches replace a collection
// wholesale and hand back what they stored; a failed fetch keeps what was there.
type Store struct {
	src Sources

	mu            sync.RWMutex
	transactions  []Transaction
	totalAmount   int64
	totalBalance  int64
	floatLedgers  []FloatLedger
	floatRequests []FloatRequest
}

func NewStore(src Sources) *Store {
	return &Store{src: src}
}

// FetchTransactions loads transactions and recomputes the totals: the sum of
// the fetched amounts, and the balance of the latest float ledger entry held.
func (s *Store) FetchTransactions(ctx context.Context, q Query) (TransactionSet, error) {
	txs, err := s.src.Transactions.Fetch(ctx, q)
	if err != nil {
		logging.From(ctx).Warn("billing.fetch", "collection", "transactions", "err", err)
		return TransactionSet{}, fmt.Errorf("fetch transactions: %w", err)
	}
	var total int64
	for _, t := range txs {
		total += t.Amount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = txs
	s.totalAmount = total
	s.totalBalance = latestBalance(s.floatLedgers)
	return TransactionSet{
		Transactions: append([]Transaction(nil), txs...),
		TotalAmount:  total,
		TotalBalance: s.totalBalance,
	}, nil
}

func (s *Store) FetchFloatLedgers(ctx context.Context, q Query) ([]FloatLedger, error) {
	entries, err := s.src.FloatLedgers.Fetch(ctx, q)
	if err != nil {
		logging.From(ctx).Warn("billing.fetch", "collection", "float_ledgers", "err", err)
		return nil, fmt.Errorf("fetch float ledgers: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floatLedgers = entries
	s.totalBalance = latestBalance(entries)
	return append([]FloatLedger(nil), entries...), nil
}

func (s *Store) FetchFloatRequests(ctx context.Context, q Query) ([]FloatRequest, error) {
	reqs, err := s.src.FloatRequests.Fetch(ctx, q)
	if err != nil {
		logging.From(ctx).Warn("billing.fetch", "collection", "float_requests", "err", err)
		return nil, fmt.Errorf("fetch float requests: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floatRequests = reqs
	return append([]FloatRequest(nil), reqs...), nil
}

// RefreshAll fetches every collection with q, stopping at the first failure.
func (s *Store) RefreshAll(ctx context.Context, q Query) error {
	if _, err := s.FetchFloatLedgers(ctx, q); err != nil {
		return err
	}
	if _, err := s.FetchTransactions(ctx, q); err != nil {
		return err
	}
	_, err := s.FetchFloatRequests(ctx, q)
	return err
}

// TransactionSet returns the stored transactions with their totals, as of the
// last successful fetch.
func (s *Store) TransactionSet() TransactionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TransactionSet{
		Transactions: append([]Transaction(nil), s.transactions...),
		TotalAmount:  s.totalAmount,
		TotalBalance: s.totalBalance,
	}
}

func (s *Store) FloatLedgers() []FloatLedger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]FloatLedger(nil), s.floatLedgers...)
}

func (s *Store) FloatRequests() []FloatRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]FloatRequest(nil), s.floatRequests...)
}

func latestBalance(entries []FloatLedger) int64 {
	if len(entries) == 0 {
		return 0
	}
	latest := entries[0]
	for _, e := range entries[1:] {
		if !e.Date.Before(latest.Date) {
			latest = e
		}
	}
	return latest.Balance
}
