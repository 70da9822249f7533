// Package contract exposes the traffic network operations as a Fabric
// smart contract. Each invocation builds one immutable identity context,
// wires the asset registries, matching engine and query facade over the
// invocation's stub, and maps the shared error taxonomy onto the
// chaincode response.
package contract

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"trafficledger/assets"
	"trafficledger/config"
	lederrors "trafficledger/errors"
	"trafficledger/identity"
	"trafficledger/ledger"
	"trafficledger/ledger/fabricstate"
	"trafficledger/matching"
	"trafficledger/observability/logging"
	"trafficledger/observability/metrics"
	"trafficledger/policy"
	"trafficledger/query"
	"trafficledger/registry"
)

// Transient fields required by the private-partition creates.
var (
	vehicleFields   = []string{"vehicleId", "ownerName", "registrationNumber", "model"}
	violationFields = []string{"violationId", "vehicleId", "registrationNumber", "description"}
)

// TrafficContract is the chaincode entrypoint. It carries only immutable
// configuration; all per-invocation state lives in the services wired for
// that invocation.
type TrafficContract struct {
	contractapi.Contract
	policy     *policy.AccessPolicy
	collection string
	log        *slog.Logger
	metrics    *metrics.ContractMetrics
}

// New builds the contract from deployment configuration.
func New(cfg *config.Config, log *slog.Logger) *TrafficContract {
	if log == nil {
		log = slog.Default()
	}
	return &TrafficContract{
		policy:     policy.New(cfg.PolicyRoles()),
		collection: cfg.CollectionName,
		log:        log,
		metrics:    metrics.Contract(),
	}
}

// services is the per-invocation wiring of the contract core.
type services struct {
	ctx        identity.Context
	vehicles   *registry.Registry[*assets.Vehicle]
	violations *registry.Registry[*assets.Violation]
	reports    *registry.Registry[*assets.AccidentReport]
	insurance  *registry.Registry[*assets.InsuranceRecord]
	engine     *matching.Engine
	queries    *query.Facade
}

// newServices wires the contract core over any store implementation. The
// fabric adapter plugs in here in production; tests plug in the
// simulator.
func newServices(store ledger.Store, pol *policy.AccessPolicy, collection string, ctx identity.Context) *services {
	vehicles := registry.New(store, pol, collection, vehicleFields, registry.Ops{
		Create: policy.OpCreateVehicle,
		Read:   policy.OpReadVehicle,
		Update: policy.OpCreateVehicle,
	}, func() *assets.Vehicle { return &assets.Vehicle{} })
	violations := registry.New(store, pol, collection, violationFields, registry.Ops{
		Create: policy.OpCreateViolation,
		Read:   policy.OpReadViolation,
		Update: policy.OpMatchViolation,
	}, func() *assets.Violation { return &assets.Violation{} })
	reports := registry.New(store, pol, "", nil, registry.Ops{
		Create: policy.OpCreateAccidentReport,
		Read:   policy.OpReadAccidentReport,
	}, func() *assets.AccidentReport { return &assets.AccidentReport{} })
	insurance := registry.New(store, pol, "", nil, registry.Ops{
		Create: policy.OpGrantInsurance,
		Read:   policy.OpQueryAssets,
	}, func() *assets.InsuranceRecord { return &assets.InsuranceRecord{} })
	return &services{
		ctx:        ctx,
		vehicles:   vehicles,
		violations: violations,
		reports:    reports,
		insurance:  insurance,
		engine:     matching.New(store, pol, vehicles, violations, reports, insurance),
		queries:    query.New(store, pol),
	}
}

// app resolves the invocation context from the Fabric transaction and
// wires the contract core over the invocation's stub.
func (c *TrafficContract) app(ctx contractapi.TransactionContextInterface) (*services, error) {
	stub := ctx.GetStub()
	org, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return nil, fmt.Errorf("contract: resolve caller organization: %w", err)
	}
	transient, err := stub.GetTransient()
	if err != nil {
		return nil, fmt.Errorf("contract: read transient data: %w", err)
	}
	ic := identity.New(org, stub.GetTxID(), transient)
	return newServices(fabricstate.New(stub), c.policy, c.collection, ic), nil
}

// observe records the outcome of one invocation in logs and metrics.
func (c *TrafficContract) observe(op policy.Operation, ctx identity.Context, key string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, lederrors.ErrUnauthorized):
		outcome = "denied"
		c.metrics.ObserveDenial(string(op))
	case errors.Is(err, lederrors.ErrAlreadyExists):
		outcome = "already_exists"
	case errors.Is(err, lederrors.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, lederrors.ErrMissingField):
		outcome = "missing_field"
	case err != nil:
		outcome = "error"
	}
	c.metrics.ObserveOperation(string(op), outcome)
	attrs := []any{
		slog.String("operation", string(op)),
		slog.String("org", ctx.CallerOrganization()),
		slog.String("txId", ctx.TxID()),
		slog.String("outcome", outcome),
		logging.MaskField("key", key),
	}
	if err != nil {
		c.log.Warn("operation rejected", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	c.log.Info("operation completed", attrs...)
}

// CreateVehicle registers a vehicle. The record fields are sourced from
// the transient data set, never from the public arguments, so they stay
// out of the public transaction payload.
func (c *TrafficContract) CreateVehicle(ctx contractapi.TransactionContextInterface, vehicleID, ownerName, registrationNumber, model string) (*assets.Vehicle, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	vehicle, err := app.vehicles.Create(app.ctx, vehicleID, func(fields registry.FieldSet) (*assets.Vehicle, error) {
		if err := assets.ValidateRegistration(fields.Get("registrationNumber")); err != nil {
			return nil, err
		}
		return &assets.Vehicle{
			VehicleID:          fields.Get("vehicleId"),
			OwnerName:          fields.Get("ownerName"),
			RegistrationNumber: fields.Get("registrationNumber"),
			Model:              fields.Get("model"),
			Status:             assets.VehicleActive,
		}, nil
	})
	c.observe(policy.OpCreateVehicle, app.ctx, vehicleID, err)
	return vehicle, err
}

// ReadVehicle returns the stored vehicle record.
func (c *TrafficContract) ReadVehicle(ctx contractapi.TransactionContextInterface, vehicleID string) (*assets.Vehicle, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	vehicle, err := app.vehicles.Read(app.ctx, vehicleID)
	c.observe(policy.OpReadVehicle, app.ctx, vehicleID, err)
	return vehicle, err
}

// CreateTrafficViolation files a violation in Pending status. Fields are
// sourced from transient data.
func (c *TrafficContract) CreateTrafficViolation(ctx contractapi.TransactionContextInterface, violationID, vehicleID, registrationNumber, description string) (*assets.Violation, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	violation, err := app.violations.Create(app.ctx, violationID, func(fields registry.FieldSet) (*assets.Violation, error) {
		if err := assets.ValidateRegistration(fields.Get("registrationNumber")); err != nil {
			return nil, err
		}
		return &assets.Violation{
			ViolationID:        fields.Get("violationId"),
			VehicleID:          fields.Get("vehicleId"),
			RegistrationNumber: fields.Get("registrationNumber"),
			Description:        fields.Get("description"),
			Status:             assets.ViolationPending,
		}, nil
	})
	c.observe(policy.OpCreateViolation, app.ctx, violationID, err)
	return violation, err
}

// ReadViolation returns the stored violation record.
func (c *TrafficContract) ReadViolation(ctx contractapi.TransactionContextInterface, violationID string) (*assets.Violation, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	violation, err := app.violations.Read(app.ctx, violationID)
	c.observe(policy.OpReadViolation, app.ctx, violationID, err)
	return violation, err
}

// MatchViolation issues a fine when the vehicle matches the violation.
func (c *TrafficContract) MatchViolation(ctx contractapi.TransactionContextInterface, vehicleID, violationID, fineAmount string) (*matching.MatchOutcome, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	outcome, err := app.engine.MatchViolation(app.ctx, vehicleID, violationID, fineAmount)
	c.observe(policy.OpMatchViolation, app.ctx, violationID, err)
	if err != nil {
		return nil, err
	}
	if outcome.Matched {
		c.metrics.ObserveMatch("violation", "match")
	} else {
		c.metrics.ObserveMatch("violation", "no_match")
	}
	return &outcome, nil
}

// CreateAccidentReport files an accident report on public state.
func (c *TrafficContract) CreateAccidentReport(ctx contractapi.TransactionContextInterface, accidentID, registrationNumber, accidentDetails string) (*assets.AccidentReport, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	report, err := app.reports.Create(app.ctx, accidentID, func(registry.FieldSet) (*assets.AccidentReport, error) {
		if err := assets.ValidateRegistration(registrationNumber); err != nil {
			return nil, err
		}
		return &assets.AccidentReport{
			AccidentID:         accidentID,
			RegistrationNumber: registrationNumber,
			AccidentDetails:    accidentDetails,
			Status:             assets.AccidentReported,
		}, nil
	})
	c.observe(policy.OpCreateAccidentReport, app.ctx, accidentID, err)
	return report, err
}

// ReadAccidentReport returns the stored accident report.
func (c *TrafficContract) ReadAccidentReport(ctx contractapi.TransactionContextInterface, accidentID string) (*assets.AccidentReport, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	report, err := app.reports.Read(app.ctx, accidentID)
	c.observe(policy.OpReadAccidentReport, app.ctx, accidentID, err)
	return report, err
}

// SearchAccidentReport checks whether the stored report concerns the
// queried registration number. Law enforcement only; read-only.
func (c *TrafficContract) SearchAccidentReport(ctx contractapi.TransactionContextInterface, accidentID, registrationNumber string) (*matching.SearchOutcome, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	outcome, err := app.engine.SearchAccidentReport(app.ctx, accidentID, registrationNumber)
	c.observe(policy.OpSearchAccidentReport, app.ctx, accidentID, err)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// GrantInsuranceForAccident creates the insurance determination for a
// matched accident.
func (c *TrafficContract) GrantInsuranceForAccident(ctx contractapi.TransactionContextInterface, accidentID, registrationNumber string) (*matching.GrantOutcome, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	outcome, err := app.engine.GrantInsuranceForAccident(app.ctx, accidentID, registrationNumber)
	c.observe(policy.OpGrantInsurance, app.ctx, accidentID, err)
	if err != nil {
		return nil, err
	}
	if outcome.Granted {
		c.metrics.ObserveMatch("insurance", "match")
	} else {
		c.metrics.ObserveMatch("insurance", "no_match")
	}
	return &outcome, nil
}
