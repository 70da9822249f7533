// Package identity carries the per-invocation caller context: the
// substrate-verified organization identity, the transaction identifier and
// the out-of-band transient field set. A Context is built exactly once per
// invocation and never mutated afterwards; every access decision and every
// private-data extraction works from this one immutable snapshot.
package identity

// Context is the immutable invocation context.
type Context struct {
	org       string
	txID      string
	transient map[string][]byte
}

// New builds a Context from the verified caller organization, the
// transaction ID and the transient field set. The transient map is copied
// so later mutation by the caller cannot leak into access decisions.
func New(org, txID string, transient map[string][]byte) Context {
	copied := make(map[string][]byte, len(transient))
	for name, value := range transient {
		copied[name] = append([]byte(nil), value...)
	}
	return Context{org: org, txID: txID, transient: copied}
}

// CallerOrganization returns the MSP identifier of the invoking
// organization. It is ground truth for all authorization decisions.
func (c Context) CallerOrganization() string { return c.org }

// TxID returns the substrate transaction identifier for this invocation.
func (c Context) TxID() string { return c.txID }

// TransientField returns the named out-of-band field and whether it was
// supplied. The returned slice is a copy.
func (c Context) TransientField(name string) ([]byte, bool) {
	value, ok := c.transient[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), value...), true
}

// HasTransient reports whether any transient field was supplied.
func (c Context) HasTransient() bool { return len(c.transient) > 0 }
