// Package policy decides which organization may invoke which contract
// operation. The table is static for the lifetime of the process and is
// evaluated before any ledger access, so a denial never produces side
// effects and never leaks whether an asset exists.
package policy

import (
	"fmt"
	"strings"

	lederrors "trafficledger/errors"
)

// Operation names one invocable contract operation for authorization
// purposes.
type Operation string

const (
	OpCreateVehicle        Operation = "createVehicle"
	OpReadVehicle          Operation = "readVehicle"
	OpCreateViolation      Operation = "createViolation"
	OpReadViolation        Operation = "readViolation"
	OpMatchViolation       Operation = "matchViolation"
	OpCreateAccidentReport Operation = "createAccidentReport"
	OpReadAccidentReport   Operation = "readAccidentReport"
	OpSearchAccidentReport Operation = "searchAccidentReport"
	OpGrantInsurance       Operation = "grantInsurance"
	OpQueryAssets          Operation = "queryAssets"
)

// Default MSP identifiers for the four network roles. Deployments with
// different MSP naming override these through Roles.
const (
	DefaultMotorVehicleDeptMSP  = "MVDMSP"
	DefaultTrafficManagementMSP = "TrafficManagementMSP"
	DefaultInsuranceCompanyMSP  = "InsuranceCompanyMSP"
	DefaultLawEnforcementMSP    = "LawEnforcementMSP"
)

// Roles maps the four network roles onto concrete MSP identifiers.
type Roles struct {
	MotorVehicleDept  string
	TrafficManagement string
	InsuranceCompany  string
	LawEnforcement    string
}

// DefaultRoles returns the canonical MSP assignment.
func DefaultRoles() Roles {
	return Roles{
		MotorVehicleDept:  DefaultMotorVehicleDeptMSP,
		TrafficManagement: DefaultTrafficManagementMSP,
		InsuranceCompany:  DefaultInsuranceCompanyMSP,
		LawEnforcement:    DefaultLawEnforcementMSP,
	}
}

// Normalize fills empty role slots with the default MSP identifiers.
func (r Roles) Normalize() Roles {
	if strings.TrimSpace(r.MotorVehicleDept) == "" {
		r.MotorVehicleDept = DefaultMotorVehicleDeptMSP
	}
	if strings.TrimSpace(r.TrafficManagement) == "" {
		r.TrafficManagement = DefaultTrafficManagementMSP
	}
	if strings.TrimSpace(r.InsuranceCompany) == "" {
		r.InsuranceCompany = DefaultInsuranceCompanyMSP
	}
	if strings.TrimSpace(r.LawEnforcement) == "" {
		r.LawEnforcement = DefaultLawEnforcementMSP
	}
	return r
}

type rule struct {
	anyOrg bool
	orgs   map[string]struct{}
}

// AccessPolicy is the static (operation, organization) authorization
// table. Evaluation is pure and total: operations absent from the table
// are denied.
type AccessPolicy struct {
	rules map[Operation]rule
}

// New builds the access table for the given role assignment.
func New(roles Roles) *AccessPolicy {
	roles = roles.Normalize()
	only := func(orgs ...string) rule {
		set := make(map[string]struct{}, len(orgs))
		for _, org := range orgs {
			set[org] = struct{}{}
		}
		return rule{orgs: set}
	}
	anyone := rule{anyOrg: true}
	return &AccessPolicy{rules: map[Operation]rule{
		OpCreateVehicle:        only(roles.MotorVehicleDept),
		OpReadVehicle:          anyone,
		OpCreateViolation:      only(roles.TrafficManagement),
		OpReadViolation:        anyone,
		OpMatchViolation:       only(roles.MotorVehicleDept),
		OpCreateAccidentReport: only(roles.TrafficManagement),
		OpReadAccidentReport:   anyone,
		OpSearchAccidentReport: only(roles.LawEnforcement),
		OpGrantInsurance:       only(roles.InsuranceCompany),
		OpQueryAssets:          anyone,
	}}
}

// Authorize returns nil when org may invoke op and ErrUnauthorized
// otherwise. Unknown operations are denied.
func (p *AccessPolicy) Authorize(op Operation, org string) error {
	if p == nil {
		return fmt.Errorf("%w: no policy configured", lederrors.ErrUnauthorized)
	}
	r, ok := p.rules[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %s", lederrors.ErrUnauthorized, op)
	}
	if r.anyOrg {
		return nil
	}
	if _, ok := r.orgs[org]; !ok {
		return fmt.Errorf("%w: organization %s may not invoke %s", lederrors.ErrUnauthorized, org, op)
	}
	return nil
}
