package address

import "strings"

// Record is one row returned by the lookup service for a given level.
// Implementations are plain values and must not be mutated after decoding.
type Record interface {
	// Level is the hierarchy position this record belongs to.
	Level() Level
	// Key is the stable identifying code: code, istat_code or id.
	Key() string
	// Label is the record's name, falling back to its display name.
	Label() string
	// Display is the canonical text written into a field on selection.
	Display() string
	// Detail is an optional secondary caption shown under suggestions.
	Detail() string
}

// AncestorDisplayer is implemented by records that embed a display value for
// one of their ancestor levels (a street carries its municipality name).
type AncestorDisplayer interface {
	AncestorDisplay(l Level) string
}

// Region is a top-level Italian region (regione).
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (r Region) Level() Level    { return LevelRegion }
func (r Region) Key() string     { return r.Code }
func (r Region) Label() string   { return r.Name }
func (r Region) Display() string { return r.Name }
func (r Region) Detail() string  { return "" }

// Province is a province (provincia) inside a region.
type Province struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	RegionCode   string `json:"region_code,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty"` // "RM", "MI"
}

func (p Province) Level() Level    { return LevelProvince }
func (p Province) Key() string     { return p.Code }
func (p Province) Label() string   { return p.Name }
func (p Province) Display() string { return p.Name }
func (p Province) Detail() string  { return p.Abbreviation }

// Municipality is a comune, identified by its ISTAT code.
type Municipality struct {
	IstatCode    string `json:"istat_code"`
	Name         string `json:"name"`
	ProvinceCode string `json:"province_code,omitempty"`
	Province     string `json:"province,omitempty"` // display abbreviation
}

func (m Municipality) Level() Level    { return LevelMunicipality }
func (m Municipality) Key() string     { return m.IstatCode }
func (m Municipality) Label() string   { return m.Name }
func (m Municipality) Display() string { return m.Name }
func (m Municipality) Detail() string  { return m.Province }

// Street is an ANNCSU street (odonimo).
type Street struct {
	ID                  string `json:"id"`
	Name                string `json:"name,omitempty"`
	DisplayName         string `json:"display_name,omitempty"`
	DisplayStreetType   string `json:"display_street_type,omitempty"` // "Via", "Piazza"
	IstatCode           string `json:"istat_code,omitempty"`
	Municipality        string `json:"municipality,omitempty"`
	DisplayMunicipality string `json:"display_municipality,omitempty"`
}

func (s Street) Level() Level { return LevelStreet }
func (s Street) Key() string  { return s.ID }

func (s Street) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.DisplayName
}

func (s Street) Display() string {
	if s.DisplayStreetType == "" {
		return s.Label()
	}
	return strings.TrimSpace(s.DisplayStreetType + " " + s.Label())
}

func (s Street) Detail() string { return s.DisplayMunicipality }

// AncestorDisplay returns the embedded municipality name for LevelMunicipality.
func (s Street) AncestorDisplay(l Level) string {
	if l == LevelMunicipality {
		return s.DisplayMunicipality
	}
	return ""
}

// AddressDetails is a single geocoded address (civic number on a street).
type AddressDetails struct {
	ID          string   `json:"id"`
	StreetID    string   `json:"street_id,omitempty"`
	IstatCode   string   `json:"istat_code,omitempty"`
	HouseNumber string   `json:"house_number,omitempty"`
	PostalCode  string   `json:"postal_code,omitempty"`
	FullAddress string   `json:"full_address,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}
