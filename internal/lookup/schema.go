package lookup

import (
	"database/sql"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/addrcascade/internal/address"
)

// ddl creates the mirror tables. Text columns are NOT NULL so rows scan
// straight into the address records.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS regions (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS provinces (
		code         TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		region_code  TEXT NOT NULL REFERENCES regions(code),
		abbreviation TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS provinces_region_code ON provinces(region_code)`,
	`CREATE TABLE IF NOT EXISTS municipalities (
		istat_code    TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		province_code TEXT NOT NULL REFERENCES provinces(code),
		province      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS municipalities_province_code ON municipalities(province_code)`,
	`CREATE TABLE IF NOT EXISTS streets (
		id                   TEXT PRIMARY KEY,
		name                 TEXT NOT NULL,
		display_name         TEXT NOT NULL DEFAULT '',
		display_street_type  TEXT NOT NULL DEFAULT '',
		istat_code           TEXT NOT NULL REFERENCES municipalities(istat_code),
		municipality         TEXT NOT NULL DEFAULT '',
		display_municipality TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS streets_istat_code ON streets(istat_code)`,
	`CREATE TABLE IF NOT EXISTS address_details (
		id           TEXT PRIMARY KEY,
		street_id    TEXT NOT NULL REFERENCES streets(id),
		istat_code   TEXT NOT NULL,
		house_number TEXT NOT NULL DEFAULT '',
		postal_code  TEXT NOT NULL DEFAULT '',
		full_address TEXT NOT NULL DEFAULT '',
		latitude     REAL,
		longitude    REAL
	)`,
}

// endpoint describes one mirror resource: the table behind it, the columns
// it returns (and accepts in filters and order clauses), and how to scan a
// row.
type endpoint struct {
	name    string
	table   string
	columns []string
	key     string
	scan    func(*entsql.Rows) (any, error)
}

func (e endpoint) hasColumn(col string) bool {
	for _, c := range e.columns {
		if c == col {
			return true
		}
	}
	return false
}

var streetColumns = []string{
	"id", "name", "display_name", "display_street_type",
	"istat_code", "municipality", "display_municipality",
}

var endpoints = map[string]endpoint{
	"regions": {
		name:    "regions",
		table:   "regions",
		columns: []string{"code", "name"},
		key:     "code",
		scan: func(rows *entsql.Rows) (any, error) {
			var r address.Region
			err := rows.Scan(&r.Code, &r.Name)
			return r, err
		},
	},
	"provinces": {
		name:    "provinces",
		table:   "provinces",
		columns: []string{"code", "name", "region_code", "abbreviation"},
		key:     "code",
		scan: func(rows *entsql.Rows) (any, error) {
			var p address.Province
			err := rows.Scan(&p.Code, &p.Name, &p.RegionCode, &p.Abbreviation)
			return p, err
		},
	},
	"municipalities": {
		name:    "municipalities",
		table:   "municipalities",
		columns: []string{"istat_code", "name", "province_code", "province"},
		key:     "istat_code",
		scan: func(rows *entsql.Rows) (any, error) {
			var m address.Municipality
			err := rows.Scan(&m.IstatCode, &m.Name, &m.ProvinceCode, &m.Province)
			return m, err
		},
	},
	"streets": {
		name:    "streets",
		table:   "streets",
		columns: streetColumns,
		key:     "id",
		scan:    scanStreet,
	},
	// streets_full serves the same rows; clients use it for searches not
	// scoped to a municipality.
	"streets_full": {
		name:    "streets_full",
		table:   "streets",
		columns: streetColumns,
		key:     "id",
		scan:    scanStreet,
	},
	"address_details": {
		name:  "address_details",
		table: "address_details",
		columns: []string{
			"id", "street_id", "istat_code", "house_number",
			"postal_code", "full_address", "latitude", "longitude",
		},
		key: "id",
		scan: func(rows *entsql.Rows) (any, error) {
			var (
				d        address.AddressDetails
				lat, lon sql.NullFloat64
			)
			err := rows.Scan(&d.ID, &d.StreetID, &d.IstatCode, &d.HouseNumber,
				&d.PostalCode, &d.FullAddress, &lat, &lon)
			if lat.Valid {
				d.Latitude = &lat.Float64
			}
			if lon.Valid {
				d.Longitude = &lon.Float64
			}
			return d, err
		},
	},
}

func scanStreet(rows *entsql.Rows) (any, error) {
	var s address.Street
	err := rows.Scan(&s.ID, &s.Name, &s.DisplayName, &s.DisplayStreetType,
		&s.IstatCode, &s.Municipality, &s.DisplayMunicipality)
	return s, err
}
