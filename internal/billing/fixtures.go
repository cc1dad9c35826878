package billing

import (
	"context"
	"time"
)

// Static serves a fixed slice, paged by Query.
type Static[T any] struct {
	Items []T
}

func (s Static[T]) Fetch(ctx context.Context, q Query) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	start := q.Offset()
	if start >= len(s.Items) {
		return []T{}, nil
	}
	end := len(s.Items)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	out := make([]T, end-start)
	copy(out, s.Items[start:end])
	return out, nil
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Fixture datasets used until the registry backend serves real data.
var (
	FixtureTransactions = []Transaction{
		{ID: 1, Amount: 100, Description: "Sample Transaction 1"},
		{ID: 2, Amount: 200, Description: "Sample Transaction 2"},
		{ID: 3, Amount: 300, Description: "Sample Transaction 3"},
	}

	FixtureFloatLedgers = []FloatLedger{
		{ID: 1, Date: day("2021-09-01"), Description: "Recharge", Amount: 15000000, Balance: 15000000},
		{ID: 1, Date: day("2021-09-01"), Description: "Service Fee", Amount: -25000, Balance: 5000000},
		{ID: 2, Date: day("2021-09-02"), Description: "Recharge", Amount: 500000, Balance: 5500000},
		{ID: 3, Date: day("2021-09-03"), Description: "Service Fee", Amount: -40000, Balance: 5460000},
		{ID: 4, Date: day("2021-09-04"), Description: "Service Fee", Amount: -30000, Balance: 5430000},
	}

	FixtureFloatRequests = []FloatRequest{
		{ID: 1, DateRequested: day("2021-09-01"), Amount: 15000000, Status: StatusPending, BranchID: 1},
		{ID: 2, DateRequested: day("2021-09-02"), Amount: 500000, Status: StatusApproved, BranchID: 2},
		{ID: 3, DateRequested: day("2021-09-03"), Amount: 40000, Status: StatusRejected, BranchID: 3},
		{ID: 4, DateRequested: day("2021-09-04"), Amount: 30000, Status: StatusPending, BranchID: 4},
	}
)

// Fixtures returns sources backed by the fixture datasets.
func Fixtures() Sources {
	return Sources{
		Transactions:  Static[Transaction]{Items: FixtureTransactions},
		FloatLedgers:  Static[FloatLedger]{Items: FixtureFloatLedgers},
		FloatRequests: Static[FloatRequest]{Items: FixtureFloatRequests},
	}
}
