package inventory

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"carestock/m/domain"
)

const drugSearchLimit = 25

// SearchDrugs looks up the shared drug catalog by name, generic name or NDC.
func (s *Service) SearchDrugs(ctx context.Context, query string) ([]domain.Drug, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Drug{}, nil
	}
	drugs, err := s.store.SearchDrugs(ctx, query, drugSearchLimit)
	if err != nil {
		return nil, persistence("search drugs", err)
	}
	if drugs == nil {
		drugs = []domain.Drug{}
	}
	return drugs, nil
}

// DrugInput describes a catalog entry for find-or-create at check-in.
type DrugInput struct {
	Name         string  `json:"name"`
	GenericName  string  `json:"generic_name"`
	Strength     float64 `json:"strength"`
	StrengthUnit string  `json:"strength_unit"`
	Form         string  `json:"form"`
	NDC          string  `json:"ndc"`
}

// FindOrCreateDrug returns the catalog entry for the given NDC, creating it
// if absent. The catalog is shared across clinics and never mutated once
// written.
func (s *Service) FindOrCreateDrug(ctx context.Context, in DrugInput) (*domain.Drug, error) {
	if in.Name == "" || in.NDC == "" {
		return nil, validationf("name and ndc are required")
	}
	if in.Strength <= 0 || in.StrengthUnit == "" {
		return nil, validationf("strength and strength_unit are required")
	}

	existing, err := s.store.FindDrugByNDC(ctx, in.NDC)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, persistence("lookup drug", err)
	}

	drug := domain.Drug{
		ID:           NewID(),
		Name:         in.Name,
		GenericName:  in.GenericName,
		Strength:     in.Strength,
		StrengthUnit: in.StrengthUnit,
		Form:         in.Form,
		NDC:          in.NDC,
	}
	if err := s.store.InsertDrug(ctx, &drug); err != nil {
		return nil, persistence("create drug", err)
	}
	return &drug, nil
}

// CreateLocation adds a storage place for the clinic.
func (s *Service) CreateLocation(ctx context.Context, name, kind string, clinicID int64) (*domain.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationf("name is required")
	}
	if kind != domain.LocationRefrigerated && kind != domain.LocationRoomTemp {
		return nil, validationf("kind must be refrigerated or room_temperature")
	}
	loc := domain.Location{
		ID:        NewID(),
		ClinicID:  clinicID,
		Name:      name,
		Kind:      kind,
		CreatedAt: Now(),
	}
	if err := s.store.InsertLocation(ctx, &loc); err != nil {
		return nil, persistence("create location", err)
	}
	return &loc, nil
}

// ListLocations returns the clinic's storage places.
func (s *Service) ListLocations(ctx context.Context, clinicID int64) ([]domain.Location, error) {
	locations, err := s.store.ListLocations(ctx, clinicID)
	if err != nil {
		return nil, persistence("list locations", err)
	}
	if locations == nil {
		locations = []domain.Location{}
	}
	return locations, nil
}

// UpdateLocation renames or re-kinds a storage place.
func (s *Service) UpdateLocation(ctx context.Context, id string, clinicID int64, name, kind string) (*domain.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationf("name is required")
	}
	if kind != domain.LocationRefrigerated && kind != domain.LocationRoomTemp {
		return nil, validationf("kind must be refrigerated or room_temperature")
	}
	if _, err := s.store.GetLocation(ctx, id, clinicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "location", ID: id}
		}
		return nil, persistence("fetch location", err)
	}
	if err := s.store.UpdateLocation(ctx, id, clinicID, name, kind); err != nil {
		return nil, persistence("update location", err)
	}
	return s.store.GetLocation(ctx, id, clinicID)
}

// CreateLotInput describes a donation batch.
type CreateLotInput struct {
	LocationID  string  `json:"location_id"`
	Source      string  `json:"source"`
	Note        *string `json:"note,omitempty"`
	MaxCapacity *int64  `json:"max_capacity,omitempty"`
}

// CreateLot registers a donation batch under a storage location.
func (s *Service) CreateLot(ctx context.Context, in CreateLotInput, clinicID int64) (*domain.Lot, error) {
	if strings.TrimSpace(in.Source) == "" {
		return nil, validationf("source is required")
	}
	if in.MaxCapacity != nil && *in.MaxCapacity <= 0 {
		return nil, validationf("max_capacity must be positive when set")
	}
	if _, err := s.store.GetLocation(ctx, in.LocationID, clinicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "location", ID: in.LocationID}
		}
		return nil, persistence("fetch location", err)
	}

	lot := domain.Lot{
		ID:          NewID(),
		ClinicID:    clinicID,
		LocationID:  in.LocationID,
		Source:      in.Source,
		Note:        in.Note,
		MaxCapacity: in.MaxCapacity,
		CreatedAt:   Now(),
	}
	if err := s.store.InsertLot(ctx, &lot); err != nil {
		return nil, persistence("create lot", err)
	}
	return &lot, nil
}

// LotSummary is a lot with its computed current capacity.
type LotSummary struct {
	domain.Lot
	CurrentCapacity int64 `json:"current_capacity"`
}

// ListLots returns the clinic's lots, newest first, each with the sum of its
// member units' total quantity.
func (s *Service) ListLots(ctx context.Context, clinicID int64) ([]LotSummary, error) {
	lots, err := s.store.ListLots(ctx, clinicID)
	if err != nil {
		return nil, persistence("list lots", err)
	}
	summaries := make([]LotSummary, 0, len(lots))
	for _, lot := range lots {
		current, err := s.store.LotTotalQuantity(ctx, lot.ID, clinicID)
		if err != nil {
			return nil, persistence("compute lot capacity", err)
		}
		summaries = append(summaries, LotSummary{Lot: lot, CurrentCapacity: current})
	}
	return summaries, nil
}

// UpdateLot edits a lot's descriptive fields or capacity ceiling. Lowering
// max_capacity below the current total is allowed and takes effect for
// future check-ins only; existing units are not re-validated.
func (s *Service) UpdateLot(ctx context.Context, id string, clinicID int64, upd LotUpdate) (*domain.Lot, error) {
	if upd.MaxCapacity != nil && *upd.MaxCapacity <= 0 {
		return nil, validationf("max_capacity must be positive when set")
	}
	if _, err := s.store.GetLot(ctx, id, clinicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "lot", ID: id}
		}
		return nil, persistence("fetch lot", err)
	}
	if upd.LocationID != nil {
		if _, err := s.store.GetLocation(ctx, *upd.LocationID, clinicID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, &NotFoundError{Resource: "location", ID: *upd.LocationID}
			}
			return nil, persistence("fetch location", err)
		}
	}
	if err := s.store.UpdateLot(ctx, id, clinicID, upd); err != nil {
		return nil, persistence("update lot", err)
	}
	return s.store.GetLot(ctx, id, clinicID)
}
