// Package fabricstate adapts a Fabric chaincode stub to the ledger.Store
// contract. It is a pure translation layer: no policy, no validation.
package fabricstate

import (
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"

	"trafficledger/ledger"
)

// Store wraps the per-invocation chaincode stub.
type Store struct {
	stub shim.ChaincodeStubInterface
}

// New builds a Store over the stub of the current invocation.
func New(stub shim.ChaincodeStubInterface) *Store {
	return &Store{stub: stub}
}

func (s *Store) GetState(key string) ([]byte, error) {
	return s.stub.GetState(key)
}

func (s *Store) PutState(key string, value []byte) error {
	return s.stub.PutState(key, value)
}

func (s *Store) GetPrivateData(collection, key string) ([]byte, error) {
	return s.stub.GetPrivateData(collection, key)
}

func (s *Store) PutPrivateData(collection, key string, value []byte) error {
	return s.stub.PutPrivateData(collection, key, value)
}

func (s *Store) GetPrivateDataHash(collection, key string) ([]byte, error) {
	return s.stub.GetPrivateDataHash(collection, key)
}

func (s *Store) GetStateByRange(start, end string) (ledger.Iterator[ledger.Entry], error) {
	it, err := s.stub.GetStateByRange(start, end)
	if err != nil {
		return nil, err
	}
	return &entryIterator{it: it}, nil
}

func (s *Store) GetPrivateDataByRange(collection, start, end string) (ledger.Iterator[ledger.Entry], error) {
	it, err := s.stub.GetPrivateDataByRange(collection, start, end)
	if err != nil {
		return nil, err
	}
	return &entryIterator{it: it}, nil
}

func (s *Store) GetQueryResult(selector string) (ledger.Iterator[ledger.Entry], error) {
	it, err := s.stub.GetQueryResult(selector)
	if err != nil {
		return nil, err
	}
	return &entryIterator{it: it}, nil
}

func (s *Store) GetPrivateDataQueryResult(collection, selector string) (ledger.Iterator[ledger.Entry], error) {
	it, err := s.stub.GetPrivateDataQueryResult(collection, selector)
	if err != nil {
		return nil, err
	}
	return &entryIterator{it: it}, nil
}

func (s *Store) GetHistoryForKey(key string) (ledger.Iterator[ledger.Modification], error) {
	it, err := s.stub.GetHistoryForKey(key)
	if err != nil {
		return nil, err
	}
	return &historyIterator{it: it}, nil
}

// entryIterator adapts a Fabric state query iterator. The substrate-side
// cursor stays open until Close.
type entryIterator struct {
	it shim.StateQueryIteratorInterface
}

func (e *entryIterator) Next() (ledger.Entry, bool, error) {
	if !e.it.HasNext() {
		return ledger.Entry{}, false, nil
	}
	kv, err := e.it.Next()
	if err != nil {
		return ledger.Entry{}, false, err
	}
	return kvEntry(kv), true, nil
}

func (e *entryIterator) Close() error { return e.it.Close() }

func kvEntry(kv *queryresult.KV) ledger.Entry {
	return ledger.Entry{Key: kv.GetKey(), Value: kv.GetValue()}
}

type historyIterator struct {
	it shim.HistoryQueryIteratorInterface
}

func (h *historyIterator) Next() (ledger.Modification, bool, error) {
	if !h.it.HasNext() {
		return ledger.Modification{}, false, nil
	}
	mod, err := h.it.Next()
	if err != nil {
		return ledger.Modification{}, false, err
	}
	return ledger.Modification{
		TxID:      mod.GetTxId(),
		Timestamp: mod.GetTimestamp().AsTime(),
		Value:     mod.GetValue(),
		IsDelete:  mod.GetIsDelete(),
	}, true, nil
}

func (h *historyIterator) Close() error { return h.it.Close() }
