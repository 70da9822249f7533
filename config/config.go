package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"trafficledger/policy"
)

// DefaultCollection is the private collection holding vehicle and
// violation records when the config does not name one.
const DefaultCollection = "ViolationCollection"

// Config carries the deployment-time settings of the chaincode process.
type Config struct {
	// CollectionName is the private data collection for vehicle and
	// violation records.
	CollectionName string `toml:"CollectionName"`
	// Environment tags log lines (for example "dev", "prod").
	Environment string `toml:"Environment"`
	// MetricsAddress, when set, exposes prometheus metrics on that
	// listen address.
	MetricsAddress string `toml:"MetricsAddress"`
	// Roles overrides the MSP identifier for each network role.
	Roles RolesConfig `toml:"Roles"`
}

// RolesConfig mirrors policy.Roles for TOML decoding.
type RolesConfig struct {
	MotorVehicleDept  string `toml:"MotorVehicleDept"`
	TrafficManagement string `toml:"TrafficManagement"`
	InsuranceCompany  string `toml:"InsuranceCompany"`
	LawEnforcement    string `toml:"LawEnforcement"`
}

// Load reads the configuration from the given path. A missing file yields
// the defaults; unknown keys are rejected so typos fail fast.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg.normalize(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg.normalize(), nil
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %s in %s", undecoded[0], path)
	}
	return cfg.normalize(), nil
}

func (c *Config) normalize() *Config {
	if strings.TrimSpace(c.CollectionName) == "" {
		c.CollectionName = DefaultCollection
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	return c
}

// PolicyRoles converts the configured role overrides to the policy
// package's representation, filling blanks with the defaults.
func (c *Config) PolicyRoles() policy.Roles {
	return policy.Roles{
		MotorVehicleDept:  c.Roles.MotorVehicleDept,
		TrafficManagement: c.Roles.TrafficManagement,
		InsuranceCompany:  c.Roles.InsuranceCompany,
		LawEnforcement:    c.Roles.LawEnforcement,
	}.Normalize()
}
