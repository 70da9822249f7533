// Package registry implements the generic create/exists/read/update
// contract shared by every asset type. A Registry is parameterized by the
// record variant, its storage partition (public state or a named private
// collection) and the transient fields a private create requires.
//
// Operation order is fixed: authorization, then existence, then field
// validation, then the tagged write. Authorization runs before any ledger
// read so a denied caller learns nothing about what exists.
package registry

import (
	"fmt"

	"trafficledger/assets"
	lederrors "trafficledger/errors"
	"trafficledger/identity"
	"trafficledger/ledger"
	"trafficledger/policy"
)

// Ops names the policy operations guarding a registry's methods.
type Ops struct {
	Create policy.Operation
	Read   policy.Operation
	Update policy.Operation
}

// Registry is the generic asset contract over one record variant. T must
// be the pointer form of an assets record.
type Registry[T assets.Record] struct {
	store      ledger.Store
	policy     *policy.AccessPolicy
	collection string // empty means public state
	required   []string
	ops        Ops
	newRecord  func() T
}

// New builds a registry. collection selects the private partition; leave
// it empty for public-state assets. required lists the transient fields a
// private create must carry.
func New[T assets.Record](store ledger.Store, pol *policy.AccessPolicy, collection string, required []string, ops Ops, newRecord func() T) *Registry[T] {
	return &Registry[T]{
		store:      store,
		policy:     pol,
		collection: collection,
		required:   required,
		ops:        ops,
		newRecord:  newRecord,
	}
}

func (r *Registry[T]) private() bool { return r.collection != "" }

// Exists reports key presence without exposing content: private assets
// are probed through their content hash, public assets through state
// presence.
func (r *Registry[T]) Exists(key string) (bool, error) {
	if r.private() {
		hash, err := r.store.GetPrivateDataHash(r.collection, key)
		if err != nil {
			return false, err
		}
		return len(hash) > 0, nil
	}
	raw, err := r.store.GetState(key)
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

// Create validates and persists a new record under key. build receives
// the extracted transient fields for private assets and nil for public
// ones, and returns the record to store; the registry stamps the
// discriminator tag before writing, discarding any caller-supplied tag.
func (r *Registry[T]) Create(ctx identity.Context, key string, build func(FieldSet) (T, error)) (T, error) {
	var zero T
	if err := r.policy.Authorize(r.ops.Create, ctx.CallerOrganization()); err != nil {
		return zero, err
	}
	exists, err := r.Exists(key)
	if err != nil {
		return zero, err
	}
	if exists {
		return zero, fmt.Errorf("%w: %s %s", lederrors.ErrAlreadyExists, r.kind(), key)
	}
	var fields FieldSet
	if r.private() {
		fields, err = RequireTransient(ctx, r.required...)
		if err != nil {
			return zero, err
		}
	}
	rec, err := build(fields)
	if err != nil {
		return zero, err
	}
	if err := r.write(key, rec); err != nil {
		return zero, err
	}
	return rec, nil
}

// Read authorizes, checks existence and returns the decoded record.
func (r *Registry[T]) Read(ctx identity.Context, key string) (T, error) {
	var zero T
	if err := r.policy.Authorize(r.ops.Read, ctx.CallerOrganization()); err != nil {
		return zero, err
	}
	return r.load(key)
}

// Update applies mutate to the stored record and persists the result.
// The mutation is staged inside the invocation's unit of work; other
// invocations never observe a partial update.
func (r *Registry[T]) Update(ctx identity.Context, key string, mutate func(T) error) (T, error) {
	var zero T
	if err := r.policy.Authorize(r.ops.Update, ctx.CallerOrganization()); err != nil {
		return zero, err
	}
	rec, err := r.load(key)
	if err != nil {
		return zero, err
	}
	if err := mutate(rec); err != nil {
		return zero, err
	}
	if err := r.write(key, rec); err != nil {
		return zero, err
	}
	return rec, nil
}

// load fetches and decodes the record at key. Callers have already been
// authorized.
func (r *Registry[T]) load(key string) (T, error) {
	var zero T
	exists, err := r.Exists(key)
	if err != nil {
		return zero, err
	}
	if !exists {
		return zero, fmt.Errorf("%w: %s %s", lederrors.ErrNotFound, r.kind(), key)
	}
	var raw []byte
	if r.private() {
		raw, err = r.store.GetPrivateData(r.collection, key)
	} else {
		raw, err = r.store.GetState(key)
	}
	if err != nil {
		return zero, err
	}
	rec := r.newRecord()
	if err := assets.Unmarshal(raw, rec); err != nil {
		return zero, err
	}
	return rec, nil
}

func (r *Registry[T]) write(key string, rec T) error {
	raw, err := assets.Marshal(rec)
	if err != nil {
		return err
	}
	if r.private() {
		return r.store.PutPrivateData(r.collection, key, raw)
	}
	return r.store.PutState(key, raw)
}

func (r *Registry[T]) kind() assets.Type { return r.newRecord().Kind() }

// Collection returns the private collection name, or "" for public
// assets.
func (r *Registry[T]) Collection() string { return r.collection }
