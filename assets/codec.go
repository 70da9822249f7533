package assets

import (
	"encoding/json"
	"fmt"
)

// Marshal serializes a record, stamping it first so an untagged payload
// can never reach the ledger.
func Marshal(rec Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("assets: nil record")
	}
	rec.Stamp()
	return json.Marshal(rec)
}

// Unmarshal decodes raw into rec and verifies the stored discriminator
// matches the expected variant.
func Unmarshal(raw []byte, rec Record) error {
	if err := json.Unmarshal(raw, rec); err != nil {
		return fmt.Errorf("assets: decode %s: %w", rec.Kind(), err)
	}
	var tag struct {
		AssetType Type `json:"assetType"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return err
	}
	if tag.AssetType != rec.Kind() {
		return fmt.Errorf("assets: stored record is %q, want %q", tag.AssetType, rec.Kind())
	}
	return nil
}

// TagOf reads the discriminator tag of a stored record without decoding
// the full payload.
func TagOf(raw []byte) (Type, error) {
	var tag struct {
		AssetType Type `json:"assetType"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return "", fmt.Errorf("assets: read tag: %w", err)
	}
	return tag.AssetType, nil
}

// Selector renders the JSON rich-query selector matching every record of
// the given type, optionally constrained by additional equality fields.
func Selector(tag Type, fields map[string]string) (string, error) {
	selector := map[string]any{"assetType": string(tag)}
	for name, value := range fields {
		selector[name] = value
	}
	raw, err := json.Marshal(map[string]any{"selector": selector})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
