package view

import (
	"context"
	"testing"

	"registrydash/internal/billing"
	"registrydash/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCatalog struct{ catalog.API }

func TestFactory_New(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		factory     Factory
		wantCatalog bool
	}{
		{name: "without registry", factory: Factory{InitialBalance: 100, Billing: billing.Fixtures()}},
		{name: "with registry", factory: Factory{InitialBalance: 100, Billing: billing.Fixtures(), Catalog: nopCatalog{}}, wantCatalog: true},
	}

	for _, tc := range tests {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := tt.factory.New()
			require.NotNil(t, v.Balance)
			require.NotNil(t, v.Billing)
			assert.Equal(t, int64(100), v.Balance.Snapshot().Current)
			assert.Equal(t, tt.wantCatalog, v.Catalog != nil)
		})
	}
}

func TestRegistry_SessionsDoNotShareState(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(Factory{InitialBalance: 100, Billing: billing.Fixtures()})
	a, b := reg.For("sess-a"), reg.For("sess-b")

	a.Balance.Increase(50)
	_, err := a.Billing.FetchFloatLedgers(context.Background(), billing.Query{})
	require.NoError(t, err)

	assert.Equal(t, int64(100), b.Balance.Snapshot().Current)
	assert.Empty(t, b.Billing.FloatLedgers())
	assert.NotEmpty(t, a.Billing.FloatLedgers())
	assert.Len(t, BillingStores(reg)(), 2)

	reg.Drop("sess-a")
	assert.Equal(t, []*billing.Store{b.Billing}, BillingStores(reg)())
}
