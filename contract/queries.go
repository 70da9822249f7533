package contract

import (
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"trafficledger/assets"
	"trafficledger/ledger"
	"trafficledger/policy"
)

// KeyedVehicle pairs a ledger key with its decoded vehicle record.
type KeyedVehicle struct {
	Key    string          `json:"key"`
	Record *assets.Vehicle `json:"record"`
}

// KeyedViolation pairs a ledger key with its decoded violation record.
type KeyedViolation struct {
	Key    string            `json:"key"`
	Record *assets.Violation `json:"record"`
}

// VehicleHistoryEntry is one committed version of a vehicle key.
type VehicleHistoryEntry struct {
	TxID      string          `json:"txId"`
	Timestamp string          `json:"timestamp"`
	Record    *assets.Vehicle `json:"record,omitempty"`
	IsDelete  bool            `json:"isDelete"`
}

// QueryAllVehicles returns every vehicle record in the private
// collection.
func (c *TrafficContract) QueryAllVehicles(ctx contractapi.TransactionContextInterface) ([]KeyedVehicle, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	results, err := collectVehicles(app, func() (ledger.Iterator[ledger.Entry], error) {
		return app.queries.AllOfType(app.ctx, c.collection, assets.TypeVehicle)
	})
	c.observe(policy.OpQueryAssets, app.ctx, "", err)
	return results, err
}

// QueryAllViolations returns every violation record in the private
// collection.
func (c *TrafficContract) QueryAllViolations(ctx contractapi.TransactionContextInterface) ([]KeyedViolation, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	it, err := app.queries.AllOfType(app.ctx, c.collection, assets.TypeViolation)
	if err != nil {
		c.observe(policy.OpQueryAssets, app.ctx, "", err)
		return nil, err
	}
	var results []KeyedViolation
	err = ledger.ForEach(it, func(entry ledger.Entry) (bool, error) {
		violation := &assets.Violation{}
		if err := assets.Unmarshal(entry.Value, violation); err != nil {
			return false, err
		}
		results = append(results, KeyedViolation{Key: entry.Key, Record: violation})
		return false, nil
	})
	c.observe(policy.OpQueryAssets, app.ctx, "", err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetVehiclesByRange scans vehicle keys in [startKey, endKey) in lexical
// order.
func (c *TrafficContract) GetVehiclesByRange(ctx contractapi.TransactionContextInterface, startKey, endKey string) ([]KeyedVehicle, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	results, err := collectVehicles(app, func() (ledger.Iterator[ledger.Entry], error) {
		return app.queries.Range(app.ctx, c.collection, startKey, endKey)
	})
	c.observe(policy.OpQueryAssets, app.ctx, "", err)
	return results, err
}

// GetVehicleHistory returns the committed versions of a vehicle key in
// the order produced by the substrate, each carrying the transaction ID
// and timestamp.
func (c *TrafficContract) GetVehicleHistory(ctx contractapi.TransactionContextInterface, vehicleID string) ([]VehicleHistoryEntry, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	it, err := app.queries.History(app.ctx, vehicleID)
	if err != nil {
		c.observe(policy.OpQueryAssets, app.ctx, vehicleID, err)
		return nil, err
	}
	var entries []VehicleHistoryEntry
	err = ledger.ForEach(it, func(mod ledger.Modification) (bool, error) {
		entry := VehicleHistoryEntry{
			TxID:      mod.TxID,
			Timestamp: mod.Timestamp.UTC().Format(time.RFC3339Nano),
			IsDelete:  mod.IsDelete,
		}
		if len(mod.Value) > 0 {
			vehicle := &assets.Vehicle{}
			if decodeErr := assets.Unmarshal(mod.Value, vehicle); decodeErr == nil {
				entry.Record = vehicle
			}
		}
		entries = append(entries, entry)
		return false, nil
	})
	c.observe(policy.OpQueryAssets, app.ctx, vehicleID, err)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func collectVehicles(app *services, open func() (ledger.Iterator[ledger.Entry], error)) ([]KeyedVehicle, error) {
	it, err := open()
	if err != nil {
		return nil, err
	}
	var results []KeyedVehicle
	err = ledger.ForEach(it, func(entry ledger.Entry) (bool, error) {
		// Range scans cover the whole partition; other asset types
		// sharing the key space are skipped, not errors.
		tag, err := assets.TagOf(entry.Value)
		if err != nil || tag != assets.TypeVehicle {
			return false, nil
		}
		vehicle := &assets.Vehicle{}
		if err := assets.Unmarshal(entry.Value, vehicle); err != nil {
			return false, err
		}
		results = append(results, KeyedVehicle{Key: entry.Key, Record: vehicle})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
