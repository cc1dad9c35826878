// Package view holds the state one signed-in session renders from.
package view

import (
	"registrydash/internal/billing"
	"registrydash/internal/catalog"
	"registrydash/internal/ledger"
	"registrydash/internal/session"
)

// View is one session's balance ledger, billing cache and catalog cache.
// Catalog is nil when no registry is configured.
type View struct {
	Balance *ledger.Ledger
	Billing *billing.Store
	Catalog *catalog.Store
}

// Factory builds a fresh View for each new session.
type Factory struct {
	InitialBalance int64
	Billing        billing.Sources
	Catalog        catalog.API
}

func (f Factory) New() *View {
	v := &View{
		Balance: ledger.New(f.InitialBalance),
		Billing: billing.NewStore(f.Billing),
	}
	if f.Catalog != nil {
		v.Catalog = catalog.NewStore(f.Catalog)
	}
	return v
}

// NewRegistry keys Views by session ID, building them lazily from f.
func NewRegistry(f Factory, opts ...session.RegistryOption) *session.Registry[*View] {
	return session.NewRegistry(f.New, opts...)
}

// BillingStores lists the billing store of every live View.
func BillingStores(reg *session.Registry[*View]) func() []*billing.Store {
	return func() []*billing.Store {
		views := reg.Values()
		out := make([]*billing.Store, 0, len(views))
		for _, v := range views {
			out = append(out, v.Billing)
		}
		return out
	}
}
