package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextAccessors(t *testing.T) {
	ctx := New("MVDMSP", "tx-1", map[string][]byte{"vehicleId": []byte("VEH1")})

	require.Equal(t, "MVDMSP", ctx.CallerOrganization())
	require.Equal(t, "tx-1", ctx.TxID())
	require.True(t, ctx.HasTransient())

	value, ok := ctx.TransientField("vehicleId")
	require.True(t, ok)
	require.Equal(t, []byte("VEH1"), value)

	_, ok = ctx.TransientField("ownerName")
	require.False(t, ok)
}

func TestContextIsolatedFromCallerMutation(t *testing.T) {
	transient := map[string][]byte{"vehicleId": []byte("VEH1")}
	ctx := New("MVDMSP", "tx-1", transient)

	transient["vehicleId"][0] = 'X'
	transient["ownerName"] = []byte("late addition")

	value, ok := ctx.TransientField("vehicleId")
	require.True(t, ok)
	require.Equal(t, []byte("VEH1"), value)
	_, ok = ctx.TransientField("ownerName")
	require.False(t, ok)

	// Mutating a returned field value must not change the context either.
	value[0] = 'Y'
	again, _ := ctx.TransientField("vehicleId")
	require.Equal(t, []byte("VEH1"), again)
}

func TestEmptyTransient(t *testing.T) {
	ctx := New("MVDMSP", "tx-1", nil)
	require.False(t, ctx.HasTransient())
}
