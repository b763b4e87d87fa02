package services

import (
	"errors"
	"fmt"
	"io"

	"github.com/pointmart/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// CatalogManifest is the YAML file accepted by the index command.
//
//	entries:
//	  - asset_id: "2301326979"
//	    content_handle: BQACAgUAAxkBAAI
//	    display_name: shutterstock_2301326979.jpg
type CatalogManifest struct {
	Entries []models.CatalogEntry `yaml:"entries"`
}

// LoadManifest decodes a manifest. Unknown keys are rejected.
func LoadManifest(r io.Reader) ([]models.CatalogEntry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m CatalogManifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, models.NewValidationError("manifest", "empty document")
		}
		return nil, models.NewValidationError("manifest", err.Error())
	}
	if len(m.Entries) == 0 {
		return nil, models.NewValidationError("manifest", "no entries")
	}
	for i, e := range m.Entries {
		if e.AssetID == "" || e.ContentHandle == "" {
			return nil, models.NewValidationError(fmt.Sprintf("entries[%d]", i), "asset_id and content_handle are required")
		}
	}
	return m.Entries, nil
}
