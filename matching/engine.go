// Package matching cross-references asset registries to resolve fine
// issuance for traffic violations and insurance grants for accident
// reports. Business-rule mismatches are reported as typed outcomes, not
// errors: callers can distinguish a denial from a no-match from a missing
// asset programmatically.
package matching

import (
	"fmt"

	"trafficledger/assets"
	lederrors "trafficledger/errors"
	"trafficledger/identity"
	"trafficledger/ledger"
	"trafficledger/policy"
	"trafficledger/registry"
)

// Engine wires the violation and insurance matching flows to the asset
// registries and the store's rich-query surface. It holds no state of its
// own across invocations.
type Engine struct {
	store      ledger.Store
	policy     *policy.AccessPolicy
	vehicles   *registry.Registry[*assets.Vehicle]
	violations *registry.Registry[*assets.Violation]
	reports    *registry.Registry[*assets.AccidentReport]
	insurance  *registry.Registry[*assets.InsuranceRecord]
}

// New assembles a matching engine over the four asset registries.
func New(
	store ledger.Store,
	pol *policy.AccessPolicy,
	vehicles *registry.Registry[*assets.Vehicle],
	violations *registry.Registry[*assets.Violation],
	reports *registry.Registry[*assets.AccidentReport],
	insurance *registry.Registry[*assets.InsuranceRecord],
) *Engine {
	return &Engine{
		store:      store,
		policy:     pol,
		vehicles:   vehicles,
		violations: violations,
		reports:    reports,
		insurance:  insurance,
	}
}

// MatchOutcome is the typed result of MatchViolation.
type MatchOutcome struct {
	Matched   bool              `json:"matched"`
	Message   string            `json:"message"`
	Violation *assets.Violation `json:"violation,omitempty"`
}

// MatchViolation issues a fine for a violation when the referenced
// vehicle matches. The predicate requires equal vehicle IDs and the
// vehicle registration number to sort lexicographically at or before the
// violation's. The registration comparison is preserved from the original
// network agreement; its business intent is undocumented, so it must not
// be changed without a network-wide policy decision.
//
// On match the violation transitions Pending to Fine Issued exactly once;
// a violation already fined fails with ErrAlreadyExists.
func (e *Engine) MatchViolation(ctx identity.Context, vehicleID, violationID, fineAmount string) (MatchOutcome, error) {
	if err := e.policy.Authorize(policy.OpMatchViolation, ctx.CallerOrganization()); err != nil {
		return MatchOutcome{}, err
	}
	vehicle, err := e.vehicles.Read(ctx, vehicleID)
	if err != nil {
		return MatchOutcome{}, err
	}
	violation, err := e.violations.Read(ctx, violationID)
	if err != nil {
		return MatchOutcome{}, err
	}
	if vehicle.VehicleID != violation.VehicleID || vehicle.RegistrationNumber > violation.RegistrationNumber {
		return MatchOutcome{
			Matched: false,
			Message: "Violation does not match the vehicle specifications",
		}, nil
	}
	if violation.Status == assets.ViolationFineIssued {
		return MatchOutcome{}, fmt.Errorf("%w: fine already issued for violation %s", lederrors.ErrAlreadyExists, violationID)
	}
	updated, err := e.violations.Update(ctx, violationID, func(v *assets.Violation) error {
		v.Status = assets.ViolationFineIssued
		return nil
	})
	if err != nil {
		return MatchOutcome{}, err
	}
	return MatchOutcome{
		Matched:   true,
		Message:   fmt.Sprintf("Vehicle %s is fined with %s", vehicleID, fineAmount),
		Violation: updated,
	}, nil
}

// GrantOutcome is the typed result of GrantInsuranceForAccident.
type GrantOutcome struct {
	Granted bool                    `json:"granted"`
	Message string                  `json:"message"`
	Record  *assets.InsuranceRecord `json:"record,omitempty"`
}

// GrantInsuranceForAccident creates the insurance determination for an
// accident. The stored report's registration number must equal the
// supplied one, and a rich query over the private partition must find at
// least one vehicle with that registration number. Every candidate is
// embedded in the record; ambiguous matches are preserved, not resolved.
func (e *Engine) GrantInsuranceForAccident(ctx identity.Context, accidentID, registrationNumber string) (GrantOutcome, error) {
	if err := e.policy.Authorize(policy.OpGrantInsurance, ctx.CallerOrganization()); err != nil {
		return GrantOutcome{}, err
	}
	if err := assets.ValidateRegistration(registrationNumber); err != nil {
		return GrantOutcome{}, err
	}
	report, err := e.reports.Read(ctx, accidentID)
	if err != nil {
		return GrantOutcome{}, err
	}
	if report.RegistrationNumber != registrationNumber {
		return GrantOutcome{
			Granted: false,
			Message: fmt.Sprintf("accident report %s is registered to a different vehicle", accidentID),
		}, nil
	}
	candidates, err := e.vehicleCandidates(registrationNumber)
	if err != nil {
		return GrantOutcome{}, err
	}
	if len(candidates) == 0 {
		return GrantOutcome{
			Granted: false,
			Message: fmt.Sprintf("no vehicle with registration number %s is known to the network", registrationNumber),
		}, nil
	}
	key := assets.InsuranceKey(registrationNumber, accidentID)
	record, err := e.insurance.Create(ctx, key, func(registry.FieldSet) (*assets.InsuranceRecord, error) {
		return &assets.InsuranceRecord{
			RegistrationNumber: registrationNumber,
			AccidentID:         accidentID,
			Status:             assets.InsuranceGranted,
			AccidentReport:     *report,
			MatchedVehicles:    candidates,
		}, nil
	})
	if err != nil {
		return GrantOutcome{}, err
	}
	return GrantOutcome{
		Granted: true,
		Message: fmt.Sprintf("insurance granted for accident %s", accidentID),
		Record:  record,
	}, nil
}

// SearchOutcome is the typed result of SearchAccidentReport.
type SearchOutcome struct {
	Found   bool                   `json:"found"`
	Message string                 `json:"message"`
	Report  *assets.AccidentReport `json:"report,omitempty"`
}

// SearchAccidentReport is the law-enforcement read that checks whether a
// stored accident report concerns the queried registration number. It
// never mutates state.
func (e *Engine) SearchAccidentReport(ctx identity.Context, accidentID, registrationNumber string) (SearchOutcome, error) {
	if err := e.policy.Authorize(policy.OpSearchAccidentReport, ctx.CallerOrganization()); err != nil {
		return SearchOutcome{}, err
	}
	report, err := e.reports.Read(ctx, accidentID)
	if err != nil {
		return SearchOutcome{}, err
	}
	if report.RegistrationNumber != registrationNumber {
		return SearchOutcome{
			Found:   false,
			Message: fmt.Sprintf("accident %s does not involve registration number %s", accidentID, registrationNumber),
		}, nil
	}
	return SearchOutcome{
		Found:   true,
		Message: fmt.Sprintf("accident %s involves registration number %s", accidentID, registrationNumber),
		Report:  report,
	}, nil
}

// vehicleCandidates runs the rich query for vehicles carrying the given
// registration number. Results arrive in substrate order, which is
// deterministic across executors.
func (e *Engine) vehicleCandidates(registrationNumber string) ([]assets.Vehicle, error) {
	selector, err := assets.Selector(assets.TypeVehicle, map[string]string{
		"registrationNumber": registrationNumber,
	})
	if err != nil {
		return nil, err
	}
	var it ledger.Iterator[ledger.Entry]
	if collection := e.vehicles.Collection(); collection != "" {
		it, err = e.store.GetPrivateDataQueryResult(collection, selector)
	} else {
		it, err = e.store.GetQueryResult(selector)
	}
	if err != nil {
		return nil, err
	}
	var candidates []assets.Vehicle
	err = ledger.ForEach(it, func(entry ledger.Entry) (bool, error) {
		var vehicle assets.Vehicle
		if err := assets.Unmarshal(entry.Value, &vehicle); err != nil {
			return false, err
		}
		candidates = append(candidates, vehicle)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
