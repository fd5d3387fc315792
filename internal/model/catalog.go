package model

import "github.com/google/uuid"

// CatalogEntry is a saved material with its stock sheet dimensions.
type CatalogEntry struct {
	ID          string  `json:"id"`
	MaterialID  string  `json:"material_id"`
	Description string  `json:"description,omitempty"`
	SheetLength float64 `json:"sheet_length"`
	SheetWidth  float64 `json:"sheet_width"`
}

// NewCatalogEntry creates a CatalogEntry with a generated ID.
func NewCatalogEntry(materialID, description string, length, width float64) CatalogEntry {
	return CatalogEntry{
		ID:          uuid.New().String()[:8],
		MaterialID:  materialID,
		Description: description,
		SheetLength: length,
		SheetWidth:  width,
	}
}

// Sheet converts the entry into a row of the materials table.
func (e CatalogEntry) Sheet() MaterialSheet {
	return MaterialSheet{
		MaterialID:  e.MaterialID,
		SheetLength: e.SheetLength,
		SheetWidth:  e.SheetWidth,
	}
}

// MaterialCatalog holds the user's saved materials. It stands in for the
// materials table when an estimate is run without one.
type MaterialCatalog struct {
	Entries []CatalogEntry `json:"entries"`
}

// DefaultCatalog returns a catalog populated with common sheet goods.
func DefaultCatalog() MaterialCatalog {
	return MaterialCatalog{
		Entries: []CatalogEntry{
			NewCatalogEntry("Plywood", "Plywood 2440x1220 (8'x4')", 2440, 1220),
			NewCatalogEntry("MDF", "MDF 2440x1220 (8'x4')", 2440, 1220),
			NewCatalogEntry("Chipboard", "Laminated chipboard 2800x2070", 2800, 2070),
			NewCatalogEntry("Acrylic", "Acrylic 600x400", 600, 400),
			NewCatalogEntry("Aluminium", "Aluminium 600x300", 600, 300),
		},
	}
}

// Sheets returns the catalog as a materials table, in catalog order.
func (c MaterialCatalog) Sheets() []MaterialSheet {
	sheets := make([]MaterialSheet, len(c.Entries))
	for i, e := range c.Entries {
		sheets[i] = e.Sheet()
	}
	return sheets
}

// FindByID returns a pointer to the entry with the given ID, or nil.
func (c *MaterialCatalog) FindByID(id string) *CatalogEntry {
	for i := range c.Entries {
		if c.Entries[i].ID == id {
			return &c.Entries[i]
		}
	}
	return nil
}

// FindByMaterial returns a pointer to the first entry for a material id, or nil.
func (c *MaterialCatalog) FindByMaterial(materialID string) *CatalogEntry {
	for i := range c.Entries {
		if c.Entries[i].MaterialID == materialID {
			return &c.Entries[i]
		}
	}
	return nil
}
