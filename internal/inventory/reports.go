package inventory

import (
	"context"
	"time"

	"carestock/m/domain"
)

const (
	expiringSoonDays = 30
	recentDays       = 7
	lowStockLimit    = 10
)

// DashboardStats is the landing-page summary for one clinic.
type DashboardStats struct {
	TotalUnits        int64               `json:"total_units"`
	UnitsExpiringSoon int64               `json:"units_expiring_soon"`
	RecentCheckIns    int64               `json:"recent_check_ins"`
	RecentCheckOuts   int64               `json:"recent_check_outs"`
	LowStockAlerts    []domain.UnitDetail `json:"low_stock_alerts"`
}

// GetDashboardStats aggregates unit and ledger counts: units expiring within
// 30 days, ledger activity over the last 7 days, and units whose available
// quantity fell under 10% of their total.
func (s *Service) GetDashboardStats(ctx context.Context, clinicID int64) (*DashboardStats, error) {
	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	soon := now.AddDate(0, 0, expiringSoonDays).Format("2006-01-02")
	since := now.AddDate(0, 0, -recentDays).Format("2006-01-02 15:04:05")

	total, err := s.store.CountUnits(ctx, clinicID)
	if err != nil {
		return nil, persistence("count units", err)
	}
	expiring, err := s.store.CountUnitsExpiringBetween(ctx, clinicID, today, soon)
	if err != nil {
		return nil, persistence("count expiring units", err)
	}
	checkIns, err := s.store.CountTransactionsSince(ctx, clinicID, domain.TxCheckIn, since)
	if err != nil {
		return nil, persistence("count check-ins", err)
	}
	checkOuts, err := s.store.CountTransactionsSince(ctx, clinicID, domain.TxCheckOut, since)
	if err != nil {
		return nil, persistence("count check-outs", err)
	}
	lowStock, err := s.store.LowStockUnits(ctx, clinicID, lowStockLimit)
	if err != nil {
		return nil, persistence("fetch low stock units", err)
	}
	if lowStock == nil {
		lowStock = []domain.UnitDetail{}
	}

	return &DashboardStats{
		TotalUnits:        total,
		UnitsExpiringSoon: expiring,
		RecentCheckIns:    checkIns,
		RecentCheckOuts:   checkOuts,
		LowStockAlerts:    lowStock,
	}, nil
}

// GetMedicationsExpiring returns in-stock units expiring within the given
// number of days, grouped by drug and expiry date.
func (s *Service) GetMedicationsExpiring(ctx context.Context, days int, clinicID int64) ([]ExpiringGroup, error) {
	if days <= 0 {
		days = expiringSoonDays
	}
	now := time.Now().UTC()
	groups, err := s.store.ExpiringGroups(ctx, clinicID,
		now.Format("2006-01-02"), now.AddDate(0, 0, days).Format("2006-01-02"))
	if err != nil {
		return nil, persistence("fetch expiring groups", err)
	}
	if groups == nil {
		groups = []ExpiringGroup{}
	}
	return groups, nil
}

// ExpirySummary counts in-stock units per expiry window.
type ExpirySummary struct {
	Expired  int64 `json:"expired"`
	Within7  int64 `json:"within_7_days"`
	Within30 int64 `json:"within_30_days"`
	Within60 int64 `json:"within_60_days"`
	Within90 int64 `json:"within_90_days"`
}

// ExpiryReport is the window summary plus the grouped breakdown.
type ExpiryReport struct {
	Summary     ExpirySummary   `json:"summary"`
	Medications []ExpiringGroup `json:"medications"`
}

// GetExpiryReport builds the full expiry report: counts per window and all
// groups expiring within 90 days, expired stock included.
func (s *Service) GetExpiryReport(ctx context.Context, clinicID int64) (*ExpiryReport, error) {
	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	day := func(n int) string { return now.AddDate(0, 0, n).Format("2006-01-02") }

	var summary ExpirySummary
	var err error
	if summary.Expired, err = s.store.CountUnitsExpiringBetween(ctx, clinicID, "", yesterday); err != nil {
		return nil, persistence("count expired units", err)
	}
	if summary.Within7, err = s.store.CountUnitsExpiringBetween(ctx, clinicID, today, day(7)); err != nil {
		return nil, persistence("count expiring units", err)
	}
	if summary.Within30, err = s.store.CountUnitsExpiringBetween(ctx, clinicID, today, day(30)); err != nil {
		return nil, persistence("count expiring units", err)
	}
	if summary.Within60, err = s.store.CountUnitsExpiringBetween(ctx, clinicID, today, day(60)); err != nil {
		return nil, persistence("count expiring units", err)
	}
	if summary.Within90, err = s.store.CountUnitsExpiringBetween(ctx, clinicID, today, day(90)); err != nil {
		return nil, persistence("count expiring units", err)
	}

	groups, err := s.store.ExpiringGroups(ctx, clinicID, "", day(90))
	if err != nil {
		return nil, persistence("fetch expiring groups", err)
	}
	if groups == nil {
		groups = []ExpiringGroup{}
	}

	return &ExpiryReport{Summary: summary, Medications: groups}, nil
}
