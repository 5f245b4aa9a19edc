package service

import (
	"tenantdocs-backend/models"
)

// AttorneyDirectory is the firm's shared read-only attorney lookup table.
// It is built once and injected into whichever component needs it.
type AttorneyDirectory struct {
	entries []models.Attorney
	byKey   map[string]models.Attorney
}

// NewAttorneyDirectory builds a directory from the given entries
func NewAttorneyDirectory(entries []models.Attorney) *AttorneyDirectory {
	d := &AttorneyDirectory{
		entries: make([]models.Attorney, len(entries)),
		byKey:   make(map[string]models.Attorney, len(entries)),
	}
	copy(d.entries, entries)
	for _, a := range entries {
		d.byKey[a.Key] = a
	}
	return d
}

// DefaultAttorneyDirectory returns the firm's current attorney roster
func DefaultAttorneyDirectory() *AttorneyDirectory {
	return NewAttorneyDirectory([]models.Attorney{
		{
			Key:       "m-alvarez",
			Name:      "Maria Alvarez",
			BarNumber: "284117",
			FirmName:  "Alvarez Tenant Law Group",
			Email:     "malvarez@alvareztenantlaw.com",
		},
		{
			Key:       "d-okafor",
			Name:      "David Okafor",
			BarNumber: "301562",
			FirmName:  "Alvarez Tenant Law Group",
			Email:     "dokafor@alvareztenantlaw.com",
		},
		{
			Key:       "s-nguyen",
			Name:      "Sarah Nguyen",
			BarNumber: "297430",
			FirmName:  "Alvarez Tenant Law Group",
			Email:     "snguyen@alvareztenantlaw.com",
		},
	})
}

// Lookup returns the attorney for a directory key
func (d *AttorneyDirectory) Lookup(key string) (models.Attorney, bool) {
	a, ok := d.byKey[key]
	return a, ok
}

// All returns the directory entries in roster order
func (d *AttorneyDirectory) All() []models.Attorney {
	out := make([]models.Attorney, len(d.entries))
	copy(out, d.entries)
	return out
}
