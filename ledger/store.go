package ledger

import "time"

// Entry is a single key/value pair yielded by a range scan or rich query.
type Entry struct {
	Key   string
	Value []byte
}

// Modification is one committed version of a key as reported by the
// substrate's history index.
type Modification struct {
	TxID      string
	Timestamp time.Time
	Value     []byte
	IsDelete  bool
}

// Store is the narrow surface the contract core uses to reach the
// replicated ledger. All reads and writes issued through one Store belong
// to the same atomic unit of work: the substrate commits them together or
// not at all. Absent keys are reported as a nil value with a nil error.
//
// Implementations carry no policy. Authorization, partitioning decisions
// and record validation live above this interface.
type Store interface {
	// GetState returns the public-state value for key, or nil when absent.
	GetState(key string) ([]byte, error)
	// PutState stages a public-state write for key.
	PutState(key string, value []byte) error

	// GetPrivateData returns the value for key inside the named private
	// collection, or nil when absent.
	GetPrivateData(collection, key string) ([]byte, error)
	// PutPrivateData stages a private write for key inside collection.
	PutPrivateData(collection, key string, value []byte) error
	// GetPrivateDataHash returns the content hash of a private value
	// without exposing the value itself, or nil when the key is absent.
	// This is the only private-partition read available to organizations
	// outside the collection's membership.
	GetPrivateDataHash(collection, key string) ([]byte, error)

	// GetStateByRange scans public state over [start, end) in lexical key
	// order. Empty bounds scan from the first or to the last key.
	GetStateByRange(start, end string) (Iterator[Entry], error)
	// GetPrivateDataByRange scans a private collection over [start, end).
	GetPrivateDataByRange(collection, start, end string) (Iterator[Entry], error)

	// GetQueryResult runs a JSON selector query against public state.
	GetQueryResult(selector string) (Iterator[Entry], error)
	// GetPrivateDataQueryResult runs a JSON selector query against the
	// named private collection.
	GetPrivateDataQueryResult(collection, selector string) (Iterator[Entry], error)

	// GetHistoryForKey returns the committed versions of a public-state
	// key in the order produced by the substrate, most recent first.
	GetHistoryForKey(key string) (Iterator[Modification], error)
}
