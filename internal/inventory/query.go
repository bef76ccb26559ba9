package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"carestock/m/domain"
)

// ExpiryWindow selects a named expiry horizon for the advanced query.
type ExpiryWindow string

const (
	WindowExpired    ExpiryWindow = "EXPIRED"
	WindowExpiring7  ExpiryWindow = "EXPIRING_7_DAYS"
	WindowExpiring30 ExpiryWindow = "EXPIRING_30_DAYS"
	WindowExpiring60 ExpiryWindow = "EXPIRING_60_DAYS"
	WindowExpiring90 ExpiryWindow = "EXPIRING_90_DAYS"
	WindowAll        ExpiryWindow = "ALL"
)

var windowDays = map[ExpiryWindow]int{
	WindowExpiring7:  7,
	WindowExpiring30: 30,
	WindowExpiring60: 60,
	WindowExpiring90: 90,
}

// AdvancedFilters is the caller-facing advanced query. An explicit date
// range takes precedence over the window enum when both are given.
type AdvancedFilters struct {
	Window       ExpiryWindow `json:"window,omitempty"`
	ExpiryFrom   string       `json:"expiry_from,omitempty"`
	ExpiryTo     string       `json:"expiry_to,omitempty"`
	LocationIDs  []string     `json:"location_ids,omitempty"`
	StrengthMin  *float64     `json:"strength_min,omitempty"`
	StrengthMax  *float64     `json:"strength_max,omitempty"`
	StrengthUnit string       `json:"strength_unit,omitempty"`
	Name         string       `json:"name,omitempty"`
	GenericName  string       `json:"generic_name,omitempty"`
	NDC          string       `json:"ndc,omitempty"`
	SortBy       string       `json:"sort_by,omitempty"` // expiry_date, created_at, quantity, name, strength
	SortDesc     bool         `json:"sort_desc,omitempty"`
}

// AdvancedQuery runs the filtered, sorted, paginated unit query. Expiry,
// location, strength, name and NDC criteria are pushed into the storage
// query, so pages come back full-size; name and strength sorts are applied
// to the fetched page because they order by joined-drug fields.
func (s *Service) AdvancedQuery(ctx context.Context, clinicID int64, f AdvancedFilters, page, pageSize int) (*Page, error) {
	page, pageSize = normalizePage(page, pageSize)

	if f.ExpiryFrom != "" {
		if _, err := time.Parse("2006-01-02", f.ExpiryFrom); err != nil {
			return nil, validationf("expiry_from must be in YYYY-MM-DD format")
		}
	}
	if f.ExpiryTo != "" {
		if _, err := time.Parse("2006-01-02", f.ExpiryTo); err != nil {
			return nil, validationf("expiry_to must be in YYYY-MM-DD format")
		}
	}

	filters := UnitFilters{
		LocationIDs:  f.LocationIDs,
		StrengthMin:  f.StrengthMin,
		StrengthMax:  f.StrengthMax,
		StrengthUnit: f.StrengthUnit,
		Name:         strings.TrimSpace(f.Name),
		GenericName:  strings.TrimSpace(f.GenericName),
		NDC:          strings.TrimSpace(f.NDC),
		SortDesc:     f.SortDesc,
	}
	filters.ExpiryFrom, filters.ExpiryTo = resolveExpiryBounds(f, time.Now().UTC())

	switch f.SortBy {
	case "expiry_date", "created_at", "quantity":
		filters.SortColumn = f.SortBy
	}

	units, total, err := s.store.QueryUnits(ctx, clinicID, filters, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, persistence("query units", err)
	}

	switch f.SortBy {
	case "name":
		sort.SliceStable(units, func(i, j int) bool {
			less := strings.ToLower(units[i].DrugName) < strings.ToLower(units[j].DrugName)
			if f.SortDesc {
				return !less
			}
			return less
		})
	case "strength":
		sort.SliceStable(units, func(i, j int) bool {
			less := units[i].Strength < units[j].Strength
			if f.SortDesc {
				return !less
			}
			return less
		})
	}

	if units == nil {
		units = []domain.UnitDetail{}
	}
	return &Page{Units: units, Total: total, Page: page, PageSize: pageSize}, nil
}

// resolveExpiryBounds turns the window enum or explicit range into inclusive
// date bounds. The explicit range wins when both are present.
func resolveExpiryBounds(f AdvancedFilters, now time.Time) (from, to string) {
	if f.ExpiryFrom != "" || f.ExpiryTo != "" {
		return f.ExpiryFrom, f.ExpiryTo
	}
	today := now.Format("2006-01-02")
	switch f.Window {
	case WindowExpired:
		return "", now.AddDate(0, 0, -1).Format("2006-01-02")
	case WindowExpiring7, WindowExpiring30, WindowExpiring60, WindowExpiring90:
		return today, now.AddDate(0, 0, windowDays[f.Window]).Format("2006-01-02")
	}
	return "", ""
}
