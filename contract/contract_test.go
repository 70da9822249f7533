package contract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trafficledger/assets"
	"trafficledger/config"
	lederrors "trafficledger/errors"
	"trafficledger/identity"
	"trafficledger/ledger"
	"trafficledger/ledger/memledger"
	"trafficledger/policy"
	"trafficledger/registry"
)

// harness runs the wired contract core over the simulated substrate,
// standing in for the Fabric transaction context.
type harness struct {
	t   *testing.T
	led *memledger.Ledger
	pol *policy.AccessPolicy
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	led := memledger.New(memledger.NewMemDB())
	t.Cleanup(func() { led.Close() })
	return &harness{t: t, led: led, pol: policy.New(policy.DefaultRoles())}
}

// invoke wires the services for one invocation and commits on success,
// mirroring the substrate's all-or-nothing unit of work.
func (h *harness) invoke(org string, transient map[string][]byte, fn func(*services) error) error {
	h.t.Helper()
	tx := h.led.Begin(org, transient)
	app := newServices(tx, h.pol, config.DefaultCollection, identity.New(org, tx.ID(), transient))
	if err := fn(app); err != nil {
		tx.Discard()
		return err
	}
	require.NoError(h.t, tx.Commit())
	return nil
}

func vehicleTransient(vehicleID, owner, registration, model string) map[string][]byte {
	return map[string][]byte{
		"vehicleId":          []byte(vehicleID),
		"ownerName":          []byte(owner),
		"registrationNumber": []byte(registration),
		"model":              []byte(model),
	}
}

func violationTransient(violationID, vehicleID, registration, description string) map[string][]byte {
	return map[string][]byte{
		"violationId":        []byte(violationID),
		"vehicleId":          []byte(vehicleID),
		"registrationNumber": []byte(registration),
		"description":        []byte(description),
	}
}

func (h *harness) createVehicle(vehicleID, owner, registration, model string) error {
	return h.invoke(policy.DefaultMotorVehicleDeptMSP, vehicleTransient(vehicleID, owner, registration, model), func(app *services) error {
		_, err := app.vehicles.Create(app.ctx, vehicleID, func(fields registry.FieldSet) (*assets.Vehicle, error) {
			return &assets.Vehicle{
				VehicleID:          fields.Get("vehicleId"),
				OwnerName:          fields.Get("ownerName"),
				RegistrationNumber: fields.Get("registrationNumber"),
				Model:              fields.Get("model"),
				Status:             assets.VehicleActive,
			}, nil
		})
		return err
	})
}

func (h *harness) createViolation(violationID, vehicleID, registration, description string) error {
	return h.invoke(policy.DefaultTrafficManagementMSP, violationTransient(violationID, vehicleID, registration, description), func(app *services) error {
		_, err := app.violations.Create(app.ctx, violationID, func(fields registry.FieldSet) (*assets.Violation, error) {
			return &assets.Violation{
				ViolationID:        fields.Get("violationId"),
				VehicleID:          fields.Get("vehicleId"),
				RegistrationNumber: fields.Get("registrationNumber"),
				Description:        fields.Get("description"),
				Status:             assets.ViolationPending,
			}, nil
		})
		return err
	})
}

func (h *harness) readVehicle(org, vehicleID string) (*assets.Vehicle, error) {
	var vehicle *assets.Vehicle
	err := h.invoke(org, nil, func(app *services) error {
		var err error
		vehicle, err = app.vehicles.Read(app.ctx, vehicleID)
		return err
	})
	return vehicle, err
}

func TestCreateVehicleThenRead(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.createVehicle("VEH1", "Asha", "REG1", "Sedan"))

	vehicle, err := h.readVehicle("AnyMSP", "VEH1")
	require.NoError(t, err)
	require.Equal(t, &assets.Vehicle{
		AssetType:          assets.TypeVehicle,
		VehicleID:          "VEH1",
		OwnerName:          "Asha",
		RegistrationNumber: "REG1",
		Model:              "Sedan",
		Status:             assets.VehicleActive,
	}, vehicle)

	require.ErrorIs(t, h.createVehicle("VEH1", "Asha", "REG1", "Sedan"), lederrors.ErrAlreadyExists)
}

func TestCreateVehicleUnauthorizedNoWrite(t *testing.T) {
	h := newHarness(t)
	err := h.invoke(policy.DefaultInsuranceCompanyMSP, vehicleTransient("VEH1", "Asha", "REG1", "Sedan"), func(app *services) error {
		_, err := app.vehicles.Create(app.ctx, "VEH1", func(fields registry.FieldSet) (*assets.Vehicle, error) {
			return &assets.Vehicle{VehicleID: fields.Get("vehicleId")}, nil
		})
		return err
	})
	require.ErrorIs(t, err, lederrors.ErrUnauthorized)

	_, err = h.readVehicle("AnyMSP", "VEH1")
	require.ErrorIs(t, err, lederrors.ErrNotFound)
}

func TestViolationMatchFlow(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.createViolation("V1", "VEH1", "REG1", "speeding"))
	require.NoError(t, h.createVehicle("VEH1", "Asha", "REG1", "Sedan"))

	err := h.invoke(policy.DefaultMotorVehicleDeptMSP, nil, func(app *services) error {
		outcome, err := app.engine.MatchViolation(app.ctx, "VEH1", "V1", "100")
		if err != nil {
			return err
		}
		require.True(t, outcome.Matched)
		return nil
	})
	require.NoError(t, err)

	err = h.invoke("AnyMSP", nil, func(app *services) error {
		violation, err := app.violations.Read(app.ctx, "V1")
		if err != nil {
			return err
		}
		require.Equal(t, assets.ViolationFineIssued, violation.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestInsuranceGrantFlow(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.createVehicle("VEH1", "Asha", "REG1", "Sedan"))

	err := h.invoke(policy.DefaultTrafficManagementMSP, nil, func(app *services) error {
		_, err := app.reports.Create(app.ctx, "A1", func(registry.FieldSet) (*assets.AccidentReport, error) {
			return &assets.AccidentReport{
				AccidentID:         "A1",
				RegistrationNumber: "REG1",
				AccidentDetails:    "collision",
			}, nil
		})
		return err
	})
	require.NoError(t, err)

	err = h.invoke(policy.DefaultInsuranceCompanyMSP, nil, func(app *services) error {
		outcome, err := app.engine.GrantInsuranceForAccident(app.ctx, "A1", "REG1")
		if err != nil {
			return err
		}
		require.True(t, outcome.Granted)
		require.Len(t, outcome.Record.MatchedVehicles, 1)
		return nil
	})
	require.NoError(t, err)

	err = h.invoke("AnyMSP", nil, func(app *services) error {
		record, err := app.insurance.Read(app.ctx, assets.InsuranceKey("REG1", "A1"))
		if err != nil {
			return err
		}
		require.Equal(t, assets.InsuranceGranted, record.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestVehicleHistoryThroughFacade(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.createVehicle("VEH1", "Asha", "REG1", "Sedan"))

	for i := 0; i < 2; i++ {
		err := h.invoke(policy.DefaultMotorVehicleDeptMSP, nil, func(app *services) error {
			_, err := app.vehicles.Update(app.ctx, "VEH1", func(v *assets.Vehicle) error {
				if v.Status == assets.VehicleActive {
					v.Status = assets.VehicleInactive
				} else {
					v.Status = assets.VehicleActive
				}
				return nil
			})
			return err
		})
		require.NoError(t, err)
	}

	err := h.invoke("AnyMSP", nil, func(app *services) error {
		it, err := app.queries.History(app.ctx, "VEH1")
		if err != nil {
			return err
		}
		mods, err := ledger.Drain(it)
		if err != nil {
			return err
		}
		require.Len(t, mods, 3)
		for _, mod := range mods {
			require.NotEmpty(t, mod.TxID)
			require.False(t, mod.Timestamp.IsZero())
		}
		return nil
	})
	require.NoError(t, err)
	require.Zero(t, h.led.OpenIterators())
}

func TestQueryAllVehiclesScopedToTag(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.createVehicle("VEH1", "Asha", "REG1", "Sedan"))
	require.NoError(t, h.createViolation("V1", "VEH1", "REG1", "speeding"))

	err := h.invoke("AnyMSP", nil, func(app *services) error {
		it, err := app.queries.AllOfType(app.ctx, config.DefaultCollection, assets.TypeVehicle)
		if err != nil {
			return err
		}
		entries, err := ledger.Drain(it)
		if err != nil {
			return err
		}
		require.Len(t, entries, 1)
		require.Equal(t, "VEH1", entries[0].Key)
		return nil
	})
	require.NoError(t, err)
}
