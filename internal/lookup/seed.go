package lookup

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/addrcascade/internal/address"
)

// Dataset is a batch of mirror rows.
type Dataset struct {
	Regions        []address.Region
	Provinces      []address.Province
	Municipalities []address.Municipality
	Streets        []address.Street
	AddressDetails []address.AddressDetails
}

// Load inserts ds in a single transaction.
func (s *Store) Load(ctx context.Context, ds Dataset) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("lookup: begin: %w", err)
	}
	if err := insertDataset(ctx, tx, ds); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.log.Error("lookup: rollback failed", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lookup: commit: %w", err)
	}
	return nil
}

// Seed loads SampleData unless the mirror already has regions.
func (s *Store) Seed(ctx context.Context) error {
	n, err := s.count(ctx, "regions")
	if err != nil {
		return fmt.Errorf("lookup: seed: %w", err)
	}
	if n > 0 {
		s.log.Info("lookup: mirror already populated, skipping seed", "regions", n)
		return nil
	}
	if err := s.Load(ctx, SampleData()); err != nil {
		return fmt.Errorf("lookup: seed: %w", err)
	}
	s.log.Info("lookup: mirror seeded")
	return nil
}

func insertDataset(ctx context.Context, tx dialect.ExecQuerier, ds Dataset) error {
	b := entsql.Dialect(dialect.SQLite)

	if len(ds.Regions) > 0 {
		ins := b.Insert("regions").Columns("code", "name")
		for _, r := range ds.Regions {
			ins.Values(r.Code, r.Name)
		}
		if err := execInsert(ctx, tx, "regions", ins); err != nil {
			return err
		}
	}
	if len(ds.Provinces) > 0 {
		ins := b.Insert("provinces").Columns("code", "name", "region_code", "abbreviation")
		for _, p := range ds.Provinces {
			ins.Values(p.Code, p.Name, p.RegionCode, p.Abbreviation)
		}
		if err := execInsert(ctx, tx, "provinces", ins); err != nil {
			return err
		}
	}
	if len(ds.Municipalities) > 0 {
		ins := b.Insert("municipalities").Columns("istat_code", "name", "province_code", "province")
		for _, m := range ds.Municipalities {
			ins.Values(m.IstatCode, m.Name, m.ProvinceCode, m.Province)
		}
		if err := execInsert(ctx, tx, "municipalities", ins); err != nil {
			return err
		}
	}
	if len(ds.Streets) > 0 {
		ins := b.Insert("streets").Columns(streetColumns...)
		for _, st := range ds.Streets {
			ins.Values(st.ID, st.Name, st.DisplayName, st.DisplayStreetType,
				st.IstatCode, st.Municipality, st.DisplayMunicipality)
		}
		if err := execInsert(ctx, tx, "streets", ins); err != nil {
			return err
		}
	}
	if len(ds.AddressDetails) > 0 {
		ins := b.Insert("address_details").Columns(endpoints["address_details"].columns...)
		for _, d := range ds.AddressDetails {
			ins.Values(d.ID, d.StreetID, d.IstatCode, d.HouseNumber,
				d.PostalCode, d.FullAddress, d.Latitude, d.Longitude)
		}
		if err := execInsert(ctx, tx, "address_details", ins); err != nil {
			return err
		}
	}
	return nil
}

func execInsert(ctx context.Context, tx dialect.ExecQuerier, table string, ins *entsql.InsertBuilder) error {
	query, args := ins.Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("lookup: insert %s: %w", table, err)
	}
	return nil
}

func ptr(f float64) *float64 { return &f }

// SampleData is a small real-world slice of the hierarchy: three regions
// with a handful of municipalities and streets each.
func SampleData() Dataset {
	return Dataset{
		Regions: []address.Region{
			{Code: "03", Name: "Lombardia"},
			{Code: "12", Name: "Lazio"},
			{Code: "15", Name: "Campania"},
		},
		Provinces: []address.Province{
			{Code: "015", Name: "Milano", RegionCode: "03", Abbreviation: "MI"},
			{Code: "016", Name: "Bergamo", RegionCode: "03", Abbreviation: "BG"},
			{Code: "058", Name: "Roma", RegionCode: "12", Abbreviation: "RM"},
			{Code: "059", Name: "Latina", RegionCode: "12", Abbreviation: "LT"},
			{Code: "063", Name: "Napoli", RegionCode: "15", Abbreviation: "NA"},
		},
		Municipalities: []address.Municipality{
			{IstatCode: "015146", Name: "Milano", ProvinceCode: "015", Province: "MI"},
			{IstatCode: "015209", Name: "Sesto San Giovanni", ProvinceCode: "015", Province: "MI"},
			{IstatCode: "016024", Name: "Bergamo", ProvinceCode: "016", Province: "BG"},
			{IstatCode: "058091", Name: "Roma", ProvinceCode: "058", Province: "RM"},
			{IstatCode: "058120", Name: "Fiumicino", ProvinceCode: "058", Province: "RM"},
			{IstatCode: "059011", Name: "Latina", ProvinceCode: "059", Province: "LT"},
			{IstatCode: "063049", Name: "Napoli", ProvinceCode: "063", Province: "NA"},
		},
		Streets: []address.Street{
			{ID: "mi-0001", Name: "Roma", DisplayStreetType: "Via", IstatCode: "015146", Municipality: "MILANO", DisplayMunicipality: "Milano"},
			{ID: "mi-0002", Name: "Buenos Aires", DisplayStreetType: "Corso", IstatCode: "015146", Municipality: "MILANO", DisplayMunicipality: "Milano"},
			{ID: "mi-0003", Name: "del Duomo", DisplayStreetType: "Piazza", IstatCode: "015146", Municipality: "MILANO", DisplayMunicipality: "Milano"},
			{ID: "ss-0001", Name: "Roma", DisplayStreetType: "Viale", IstatCode: "015209", Municipality: "SESTO SAN GIOVANNI", DisplayMunicipality: "Sesto San Giovanni"},
			{ID: "bg-0001", Name: "XX Settembre", DisplayStreetType: "Via", IstatCode: "016024", Municipality: "BERGAMO", DisplayMunicipality: "Bergamo"},
			{ID: "rm-0001", Name: "Roma", DisplayStreetType: "Via", IstatCode: "058091", Municipality: "ROMA", DisplayMunicipality: "Roma"},
			{ID: "rm-0002", Name: "del Corso", DisplayStreetType: "Via", IstatCode: "058091", Municipality: "ROMA", DisplayMunicipality: "Roma"},
			{ID: "rm-0003", Name: "Navona", DisplayStreetType: "Piazza", IstatCode: "058091", Municipality: "ROMA", DisplayMunicipality: "Roma"},
			{ID: "fi-0001", Name: "Portuense", DisplayStreetType: "Via", IstatCode: "058120", Municipality: "FIUMICINO", DisplayMunicipality: "Fiumicino"},
			{ID: "lt-0001", Name: "del Popolo", DisplayStreetType: "Piazza", IstatCode: "059011", Municipality: "LATINA", DisplayMunicipality: "Latina"},
			{ID: "na-0001", Name: "Toledo", DisplayStreetType: "Via", IstatCode: "063049", Municipality: "NAPOLI", DisplayMunicipality: "Napoli"},
			{ID: "na-0002", DisplayName: "Roma", DisplayStreetType: "Via", IstatCode: "063049", Municipality: "NAPOLI", DisplayMunicipality: "Napoli"},
		},
		AddressDetails: []address.AddressDetails{
			{ID: "mi-0001-1", StreetID: "mi-0001", IstatCode: "015146", HouseNumber: "1", PostalCode: "20122", FullAddress: "Via Roma 1, 20122 Milano (MI)", Latitude: ptr(45.4642), Longitude: ptr(9.19)},
			{ID: "rm-0003-12", StreetID: "rm-0003", IstatCode: "058091", HouseNumber: "12", PostalCode: "00186", FullAddress: "Piazza Navona 12, 00186 Roma (RM)", Latitude: ptr(41.8992), Longitude: ptr(12.4731)},
			{ID: "na-0001-5", StreetID: "na-0001", IstatCode: "063049", HouseNumber: "5", PostalCode: "80134", FullAddress: "Via Toledo 5, 80134 Napoli (NA)"},
		},
	}
}
