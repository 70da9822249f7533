// Package query serves read-only scans and searches over the ledger:
// rich queries by discriminator tag, lexicographic key ranges and per-key
// mutation history. Results are lazy forward-only sequences; consumers
// either drain them with ledger.Drain or close them explicitly.
package query

import (
	"trafficledger/assets"
	"trafficledger/identity"
	"trafficledger/ledger"
	"trafficledger/policy"
)

// Facade exposes the read-only query surface. It never mutates state.
type Facade struct {
	store  ledger.Store
	policy *policy.AccessPolicy
}

// New builds a facade over store guarded by pol.
func New(store ledger.Store, pol *policy.AccessPolicy) *Facade {
	return &Facade{store: store, policy: pol}
}

// AllOfType runs a rich query for every record tagged with tag.
// collection selects the private partition; empty queries public state.
func (f *Facade) AllOfType(ctx identity.Context, collection string, tag assets.Type) (ledger.Iterator[ledger.Entry], error) {
	if err := f.policy.Authorize(policy.OpQueryAssets, ctx.CallerOrganization()); err != nil {
		return nil, err
	}
	selector, err := assets.Selector(tag, nil)
	if err != nil {
		return nil, err
	}
	if collection != "" {
		return f.store.GetPrivateDataQueryResult(collection, selector)
	}
	return f.store.GetQueryResult(selector)
}

// Range scans keys in [start, end) in lexical order. collection selects
// the private partition; empty scans public state.
func (f *Facade) Range(ctx identity.Context, collection, start, end string) (ledger.Iterator[ledger.Entry], error) {
	if err := f.policy.Authorize(policy.OpQueryAssets, ctx.CallerOrganization()); err != nil {
		return nil, err
	}
	if collection != "" {
		return f.store.GetPrivateDataByRange(collection, start, end)
	}
	return f.store.GetStateByRange(start, end)
}

// History returns the committed versions of key in the order produced by
// the substrate, each carrying the transaction ID and timestamp.
func (f *Facade) History(ctx identity.Context, key string) (ledger.Iterator[ledger.Modification], error) {
	if err := f.policy.Authorize(policy.OpQueryAssets, ctx.CallerOrganization()); err != nil {
		return nil, err
	}
	return f.store.GetHistoryForKey(key)
}
