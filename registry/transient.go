package registry

import (
	"fmt"

	lederrors "trafficledger/errors"
	"trafficledger/identity"
)

// FieldSet holds privacy-sensitive creation fields extracted from the
// invocation's transient data.
type FieldSet map[string]string

// Get returns the named field, or "" when absent.
func (f FieldSet) Get(name string) string { return f[name] }

// RequireTransient extracts the named fields from the invocation context
// and fails with ErrMissingField before any write is staged when one is
// absent. Field values never appear in the returned error.
func RequireTransient(ctx identity.Context, names ...string) (FieldSet, error) {
	if !ctx.HasTransient() {
		return nil, fmt.Errorf("%w: transient data not supplied", lederrors.ErrMissingField)
	}
	fields := make(FieldSet, len(names))
	for _, name := range names {
		value, ok := ctx.TransientField(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", lederrors.ErrMissingField, name)
		}
		fields[name] = string(value)
	}
	return fields, nil
}
