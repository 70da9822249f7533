package fabricstate

import (
	"testing"
	"time"

	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"

	"trafficledger/ledger"
)

type fakeEntryIterator struct {
	items  []*queryresult.KV
	pos    int
	closed bool
}

func (f *fakeEntryIterator) HasNext() bool { return f.pos < len(f.items) }

func (f *fakeEntryIterator) Next() (*queryresult.KV, error) {
	kv := f.items[f.pos]
	f.pos++
	return kv, nil
}

func (f *fakeEntryIterator) Close() error {
	f.closed = true
	return nil
}

type fakeHistoryIterator struct {
	items  []*queryresult.KeyModification
	pos    int
	closed bool
}

func (f *fakeHistoryIterator) HasNext() bool { return f.pos < len(f.items) }

func (f *fakeHistoryIterator) Next() (*queryresult.KeyModification, error) {
	mod := f.items[f.pos]
	f.pos++
	return mod, nil
}

func (f *fakeHistoryIterator) Close() error {
	f.closed = true
	return nil
}

func TestEntryIteratorTranslatesKVs(t *testing.T) {
	fake := &fakeEntryIterator{items: []*queryresult.KV{
		{Key: "VEH1", Value: []byte(`{"a":1}`)},
		{Key: "VEH2", Value: []byte(`{"a":2}`)},
	}}
	it := &entryIterator{it: fake}

	entries, err := ledger.Drain(it)
	require.NoError(t, err)
	require.Equal(t, []ledger.Entry{
		{Key: "VEH1", Value: []byte(`{"a":1}`)},
		{Key: "VEH2", Value: []byte(`{"a":2}`)},
	}, entries)
	require.True(t, fake.closed)
}

func TestEntryIteratorEmpty(t *testing.T) {
	it := &entryIterator{it: &fakeEntryIterator{}}
	_, ok, err := it.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, it.Close())
}

func TestHistoryIteratorTranslatesModifications(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeHistoryIterator{items: []*queryresult.KeyModification{
		{TxId: "tx2", Timestamp: timestamppb.New(stamp), Value: []byte(`{"v":2}`)},
		{TxId: "tx1", Timestamp: timestamppb.New(stamp.Add(-time.Minute)), Value: nil, IsDelete: true},
	}}
	it := &historyIterator{it: fake}

	mods, err := ledger.Drain(it)
	require.NoError(t, err)
	require.Len(t, mods, 2)

	require.Equal(t, "tx2", mods[0].TxID)
	require.True(t, stamp.Equal(mods[0].Timestamp))
	require.Equal(t, []byte(`{"v":2}`), mods[0].Value)
	require.False(t, mods[0].IsDelete)

	require.Equal(t, "tx1", mods[1].TxID)
	require.True(t, mods[1].IsDelete)
	require.Empty(t, mods[1].Value)
	require.True(t, fake.closed)
}
