// Package assets defines the closed set of record variants stored on the
// traffic network ledger. Every stored record carries a discriminating
// assetType tag which is stamped by the registry on write and is never
// trusted from caller input.
package assets

import (
	"fmt"
	"strings"
)

// Type is the discriminator tag stored with every record.
type Type string

const (
	TypeVehicle         Type = "vehicle"
	TypeViolation       Type = "violation"
	TypeAccidentReport  Type = "accidentReport"
	TypeInsuranceRecord Type = "insuranceRecord"
)

// Valid reports whether the tag names a known record variant.
func (t Type) Valid() bool {
	switch t {
	case TypeVehicle, TypeViolation, TypeAccidentReport, TypeInsuranceRecord:
		return true
	default:
		return false
	}
}

// VehicleStatus is the lifecycle state of a registered vehicle.
type VehicleStatus string

const (
	VehicleActive   VehicleStatus = "Active"
	VehicleInactive VehicleStatus = "Inactive"
)

// ViolationStatus is the lifecycle state of a traffic violation. The
// Pending to FineIssued transition happens at most once, driven by the
// matching engine.
type ViolationStatus string

const (
	ViolationPending    ViolationStatus = "Pending"
	ViolationFineIssued ViolationStatus = "Fine Issued"
)

// Accident reports and insurance records have a single lifecycle state
// each.
const (
	AccidentReported = "Reported"
	InsuranceGranted = "Insurance Granted"
)

// Vehicle is registered by the motor vehicle department and lives in the
// private partition.
type Vehicle struct {
	AssetType          Type          `json:"assetType"`
	VehicleID          string        `json:"vehicleId"`
	OwnerName          string        `json:"ownerName"`
	RegistrationNumber string        `json:"registrationNumber"`
	Model              string        `json:"model"`
	Status             VehicleStatus `json:"status"`
}

// Violation is filed by the traffic management authority and lives in the
// private partition.
type Violation struct {
	AssetType          Type            `json:"assetType"`
	ViolationID        string          `json:"violationId"`
	VehicleID          string          `json:"vehicleId"`
	RegistrationNumber string          `json:"registrationNumber"`
	Description        string          `json:"description"`
	Status             ViolationStatus `json:"status"`
}

// AccidentReport is filed by the traffic management authority on public
// state.
type AccidentReport struct {
	AssetType          Type   `json:"assetType"`
	AccidentID         string `json:"accidentId"`
	RegistrationNumber string `json:"registrationNumber"`
	AccidentDetails    string `json:"accidentDetails"`
	Status             string `json:"status"`
}

// InsuranceRecord is the append-only insurance determination produced by
// a successful accident match. It embeds a snapshot of the accident
// report and every vehicle candidate the rich query returned; ambiguous
// matches are preserved rather than resolved.
type InsuranceRecord struct {
	AssetType          Type           `json:"assetType"`
	RegistrationNumber string         `json:"registrationNumber"`
	AccidentID         string         `json:"accidentId"`
	Status             string         `json:"status"`
	AccidentReport     AccidentReport `json:"accidentReport"`
	MatchedVehicles    []Vehicle      `json:"matchedVehicleDetails"`
}

// InsuranceKey derives the deterministic public-state key for an
// insurance record.
func InsuranceKey(registrationNumber, accidentID string) string {
	return fmt.Sprintf("insurance_%s_%s", registrationNumber, accidentID)
}

// Record is implemented by the pointer form of every asset variant. Stamp
// normalizes the record for storage: it sets the discriminator tag and
// fills status defaults, discarding whatever tag the caller supplied.
type Record interface {
	Kind() Type
	Stamp()
}

func (v *Vehicle) Kind() Type { return TypeVehicle }

func (v *Vehicle) Stamp() {
	v.AssetType = TypeVehicle
	if v.Status == "" {
		v.Status = VehicleActive
	}
}

func (v *Violation) Kind() Type { return TypeViolation }

func (v *Violation) Stamp() {
	v.AssetType = TypeViolation
	if v.Status == "" {
		v.Status = ViolationPending
	}
}

func (r *AccidentReport) Kind() Type { return TypeAccidentReport }

func (r *AccidentReport) Stamp() {
	r.AssetType = TypeAccidentReport
	if r.Status == "" {
		r.Status = AccidentReported
	}
}

func (r *InsuranceRecord) Kind() Type { return TypeInsuranceRecord }

func (r *InsuranceRecord) Stamp() {
	r.AssetType = TypeInsuranceRecord
	if r.Status == "" {
		r.Status = InsuranceGranted
	}
}

// Clone returns a deep copy so callers can mutate the copy without
// touching the stored instance.
func (r *InsuranceRecord) Clone() *InsuranceRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.MatchedVehicles = append([]Vehicle(nil), r.MatchedVehicles...)
	return &clone
}

// ValidateRegistration rejects blank registration numbers early, before
// any write is staged.
func ValidateRegistration(registrationNumber string) error {
	if strings.TrimSpace(registrationNumber) == "" {
		return fmt.Errorf("assets: registration number must not be blank")
	}
	return nil
}
