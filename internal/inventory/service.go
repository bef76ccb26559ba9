package inventory

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"carestock/m/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	searchMinLength = 2
	searchLimit     = 20
)

// Service implements the inventory operations over a record-level Store.
// The Store offers no multi-statement atomicity, so multi-step writes
// (the FEFO walk) compensate manually on failure.
type Service struct {
	store Store
}

// NewService constructs a Service around the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Page is a paginated unit listing.
type Page struct {
	Units    []domain.UnitDetail `json:"units"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// CreateUnitInput is the check-in request for one physical unit.
type CreateUnitInput struct {
	DrugID            string  `json:"drug_id"`
	LotID             string  `json:"lot_id"`
	TotalQuantity     int64   `json:"total_quantity"`
	AvailableQuantity *int64  `json:"available_quantity,omitempty"`
	ExpiryDate        string  `json:"expiry_date"`
	PatientID         *string `json:"patient_id,omitempty"`
	Notes             *string `json:"notes,omitempty"`
	LotNumber         *string `json:"lot_number,omitempty"`
}

// CreateUnit checks a unit into a lot, enforcing the lot's capacity ceiling,
// and records a check_in ledger entry for the full quantity. The ledger write
// is best-effort: the unit is the durable fact, and a failed ledger insert is
// logged rather than rolling the unit back.
func (s *Service) CreateUnit(ctx context.Context, in CreateUnitInput, userID, clinicID int64) (*domain.UnitDetail, error) {
	if in.TotalQuantity <= 0 {
		return nil, validationf("total_quantity must be positive, got %d", in.TotalQuantity)
	}
	if in.DrugID == "" || in.LotID == "" {
		return nil, validationf("drug_id and lot_id are required")
	}
	if _, err := time.Parse("2006-01-02", in.ExpiryDate); err != nil {
		return nil, validationf("expiry_date must be in YYYY-MM-DD format")
	}

	available := in.TotalQuantity
	if in.AvailableQuantity != nil {
		available = *in.AvailableQuantity
	}
	if available < 0 || available > in.TotalQuantity {
		return nil, validationf("available_quantity must be between 0 and total_quantity")
	}

	if _, err := s.store.GetDrug(ctx, in.DrugID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "drug", ID: in.DrugID}
		}
		return nil, persistence("fetch drug", err)
	}

	lot, err := s.store.GetLot(ctx, in.LotID, clinicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "lot", ID: in.LotID}
		}
		return nil, persistence("fetch lot", err)
	}

	if lot.MaxCapacity != nil {
		current, err := s.store.LotTotalQuantity(ctx, lot.ID, clinicID)
		if err != nil {
			return nil, persistence("compute lot capacity", err)
		}
		if current+in.TotalQuantity > *lot.MaxCapacity {
			return nil, &CapacityExceededError{
				LotID:     lot.ID,
				Current:   current,
				Attempted: in.TotalQuantity,
				Available: *lot.MaxCapacity - current,
			}
		}
	}

	unit := domain.Unit{
		ID:                NewID(),
		ClinicID:          clinicID,
		DrugID:            in.DrugID,
		LotID:             in.LotID,
		TotalQuantity:     in.TotalQuantity,
		AvailableQuantity: available,
		ExpiryDate:        in.ExpiryDate,
		PatientID:         in.PatientID,
		Notes:             in.Notes,
		LotNumber:         in.LotNumber,
		CreatedAt:         Now(),
	}
	if err := s.store.InsertUnit(ctx, &unit); err != nil {
		return nil, persistence("create unit", err)
	}

	txn := domain.Transaction{
		ID:        NewID(),
		ClinicID:  clinicID,
		UnitID:    unit.ID,
		UserID:    userID,
		Type:      domain.TxCheckIn,
		Quantity:  in.TotalQuantity,
		Notes:     in.Notes,
		CreatedAt: Now(),
	}
	if err := s.store.InsertTransaction(ctx, &txn); err != nil {
		log.Printf("check_in ledger entry for unit %s failed, unit kept: %v", unit.ID, err)
	}

	created, err := s.store.GetUnit(ctx, unit.ID, clinicID)
	if err != nil {
		return nil, persistence("reload unit", err)
	}
	return created, nil
}

// GetUnit returns one unit or a NotFoundError.
func (s *Service) GetUnit(ctx context.Context, unitID string, clinicID int64) (*domain.UnitDetail, error) {
	u, err := s.store.GetUnit(ctx, unitID, clinicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "unit", ID: unitID}
		}
		return nil, persistence("fetch unit", err)
	}
	return u, nil
}

// ListUnits returns a page of units ordered by creation time descending.
// The free-text filter is applied to the fetched page, not the whole
// dataset, so a filtered page may come back short.
func (s *Service) ListUnits(ctx context.Context, clinicID int64, page, pageSize int, search string) (*Page, error) {
	page, pageSize = normalizePage(page, pageSize)
	units, err := s.store.ListUnits(ctx, clinicID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, persistence("list units", err)
	}
	total, err := s.store.CountUnits(ctx, clinicID)
	if err != nil {
		return nil, persistence("count units", err)
	}
	if search = strings.TrimSpace(search); search != "" {
		units = filterUnits(units, search)
	}
	if units == nil {
		units = []domain.UnitDetail{}
	}
	return &Page{Units: units, Total: total, Page: page, PageSize: pageSize}, nil
}

func filterUnits(units []domain.UnitDetail, search string) []domain.UnitDetail {
	needle := strings.ToLower(search)
	matched := make([]domain.UnitDetail, 0, len(units))
	for _, u := range units {
		if unitMatches(&u, needle) {
			matched = append(matched, u)
		}
	}
	return matched
}

func unitMatches(u *domain.UnitDetail, needle string) bool {
	fields := []string{
		strings.ToLower(u.DrugName),
		strings.ToLower(u.GenericName),
		strings.ToLower(u.LotSource),
		strings.ToLower(u.ID),
		strconv.FormatInt(u.AvailableQuantity, 10),
		strconv.FormatInt(u.TotalQuantity, 10),
	}
	if u.Notes != nil {
		fields = append(fields, strings.ToLower(*u.Notes))
	}
	if u.LotNote != nil {
		fields = append(fields, strings.ToLower(*u.LotNote))
	}
	for _, f := range fields {
		if strings.Contains(f, needle) {
			return true
		}
	}
	return false
}

// UpdateUnit mutates the directly editable fields. Lot capacity is not
// re-validated here; edits can push a lot past its configured maximum.
func (s *Service) UpdateUnit(ctx context.Context, unitID string, clinicID int64, upd UnitUpdate) (*domain.UnitDetail, error) {
	current, err := s.GetUnit(ctx, unitID, clinicID)
	if err != nil {
		return nil, err
	}

	total := current.TotalQuantity
	if upd.TotalQuantity != nil {
		if *upd.TotalQuantity <= 0 {
			return nil, validationf("total_quantity must be positive")
		}
		total = *upd.TotalQuantity
	}
	available := current.AvailableQuantity
	if upd.AvailableQuantity != nil {
		available = *upd.AvailableQuantity
	}
	if available < 0 || available > total {
		return nil, validationf("available_quantity must be between 0 and total_quantity")
	}
	if upd.ExpiryDate != nil {
		if _, err := time.Parse("2006-01-02", *upd.ExpiryDate); err != nil {
			return nil, validationf("expiry_date must be in YYYY-MM-DD format")
		}
	}

	if err := s.store.UpdateUnit(ctx, unitID, clinicID, upd); err != nil {
		return nil, persistence("update unit", err)
	}
	return s.GetUnit(ctx, unitID, clinicID)
}

// SearchUnits is the quick in-stock search: minimum two characters, capped
// at 20 results, and numeric-looking queries additionally match strength.
func (s *Service) SearchUnits(ctx context.Context, query string, clinicID int64) ([]domain.UnitDetail, error) {
	query = strings.TrimSpace(query)
	if len(query) < searchMinLength {
		return nil, validationf("search query must be at least %d characters", searchMinLength)
	}
	var strength *float64
	if v, err := strconv.ParseFloat(query, 64); err == nil {
		strength = &v
	}
	units, err := s.store.SearchUnits(ctx, clinicID, query, strength, searchLimit)
	if err != nil {
		return nil, persistence("search units", err)
	}
	if units == nil {
		units = []domain.UnitDetail{}
	}
	return units, nil
}

// CurrentCapacity reports the sum of total_quantity across a lot's member
// units, recomputed on demand. It is consulted at check-in time only.
func (s *Service) CurrentCapacity(ctx context.Context, lotID string, clinicID int64) (int64, error) {
	if _, err := s.store.GetLot(ctx, lotID, clinicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &NotFoundError{Resource: "lot", ID: lotID}
		}
		return 0, persistence("fetch lot", err)
	}
	total, err := s.store.LotTotalQuantity(ctx, lotID, clinicID)
	if err != nil {
		return 0, persistence("compute lot capacity", err)
	}
	return total, nil
}
