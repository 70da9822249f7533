package query_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trafficledger/assets"
	"trafficledger/identity"
	"trafficledger/ledger"
	"trafficledger/ledger/memledger"
	"trafficledger/policy"
	"trafficledger/query"
)

const collection = "ViolationCollection"

func seed(t *testing.T, led *memledger.Ledger) {
	t.Helper()
	tx := led.Begin("seed", nil)
	for _, rec := range []*assets.Vehicle{
		{VehicleID: "VEH1", RegistrationNumber: "REG1"},
		{VehicleID: "VEH2", RegistrationNumber: "REG2"},
	} {
		raw, err := assets.Marshal(rec)
		require.NoError(t, err)
		require.NoError(t, tx.PutPrivateData(collection, rec.VehicleID, raw))
	}
	violation, err := assets.Marshal(&assets.Violation{ViolationID: "V1", VehicleID: "VEH1", RegistrationNumber: "REG1"})
	require.NoError(t, err)
	require.NoError(t, tx.PutPrivateData(collection, "V1", violation))

	report, err := assets.Marshal(&assets.AccidentReport{AccidentID: "A1", RegistrationNumber: "REG1"})
	require.NoError(t, err)
	require.NoError(t, tx.PutState("A1", report))
	require.NoError(t, tx.Commit())
}

func facadeFor(led *memledger.Ledger, org string) (*query.Facade, identity.Context, *memledger.Tx) {
	tx := led.Begin(org, nil)
	return query.New(tx, policy.New(policy.DefaultRoles())), identity.New(tx.Org(), tx.ID(), tx.Transient()), tx
}

func TestAllOfTypeFiltersByTag(t *testing.T) {
	led := memledger.New(memledger.NewMemDB())
	defer led.Close()
	seed(t, led)

	facade, ctx, _ := facadeFor(led, "AnyMSP")
	it, err := facade.AllOfType(ctx, collection, assets.TypeVehicle)
	require.NoError(t, err)
	entries, err := ledger.Drain(it)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "VEH1", entries[0].Key)
	require.Equal(t, "VEH2", entries[1].Key)
	require.Zero(t, led.OpenIterators())
}

func TestAllOfTypePublicPartition(t *testing.T) {
	led := memledger.New(memledger.NewMemDB())
	defer led.Close()
	seed(t, led)

	facade, ctx, _ := facadeFor(led, "AnyMSP")
	it, err := facade.AllOfType(ctx, "", assets.TypeAccidentReport)
	require.NoError(t, err)
	entries, err := ledger.Drain(it)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "A1", entries[0].Key)
}

func TestRangeScan(t *testing.T) {
	led := memledger.New(memledger.NewMemDB())
	defer led.Close()
	seed(t, led)

	facade, ctx, _ := facadeFor(led, "AnyMSP")
	it, err := facade.Range(ctx, collection, "VEH1", "VEH2")
	require.NoError(t, err)
	entries, err := ledger.Drain(it)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "VEH1", entries[0].Key)
	require.Zero(t, led.OpenIterators())
}

func TestHistorySequence(t *testing.T) {
	led := memledger.New(memledger.NewMemDB())
	defer led.Close()

	for _, value := range []string{`{"n":1}`, `{"n":2}`} {
		tx := led.Begin("seed", nil)
		require.NoError(t, tx.PutState("K1", []byte(value)))
		require.NoError(t, tx.Commit())
	}

	facade, ctx, _ := facadeFor(led, "AnyMSP")
	it, err := facade.History(ctx, "K1")
	require.NoError(t, err)
	mods, err := ledger.Drain(it)
	require.NoError(t, err)
	require.Len(t, mods, 2)
	require.NotEmpty(t, mods[0].TxID)
	require.False(t, mods[0].Timestamp.IsZero())
	require.Zero(t, led.OpenIterators())
}

func TestEarlyTerminationReleasesIterator(t *testing.T) {
	led := memledger.New(memledger.NewMemDB())
	defer led.Close()
	seed(t, led)

	facade, ctx, _ := facadeFor(led, "AnyMSP")
	it, err := facade.AllOfType(ctx, collection, assets.TypeVehicle)
	require.NoError(t, err)
	err = ledger.ForEach(it, func(ledger.Entry) (bool, error) { return true, nil })
	require.NoError(t, err)
	require.Zero(t, led.OpenIterators())
}
