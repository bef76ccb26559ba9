package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.checkIn(t, env.drug.ID, env.lotID, 100, daysFromNow(10))
	env.checkIn(t, env.drug.ID, env.lotID, 100, daysFromNow(200))
	lowUnit := env.checkIn(t, env.drug.ID, env.lotID, 100, daysFromNow(300))

	// Draw the third unit down under 10% of its total.
	_, err := env.svc.CheckOutUnit(ctx, CheckOutUnitRequest{UnitID: lowUnit.ID, Quantity: 95}, env.userID, env.clinicID)
	require.NoError(t, err)

	stats, err := env.svc.GetDashboardStats(ctx, env.clinicID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUnits)
	assert.Equal(t, int64(1), stats.UnitsExpiringSoon)
	assert.Equal(t, int64(3), stats.RecentCheckIns)
	assert.Equal(t, int64(1), stats.RecentCheckOuts)
	require.Len(t, stats.LowStockAlerts, 1)
	assert.Equal(t, lowUnit.ID, stats.LowStockAlerts[0].ID)
	assert.Equal(t, int64(5), stats.LowStockAlerts[0].AvailableQuantity)
}

func TestGetMedicationsExpiringGroupsByDrugAndDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sameDay := daysFromNow(15)
	env.checkIn(t, env.drug.ID, env.lotID, 30, sameDay)
	env.checkIn(t, env.drug.ID, env.lotID, 20, sameDay)
	env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(25))
	env.checkIn(t, env.drug.ID, env.lotID, 99, daysFromNow(90)) // outside the horizon

	groups, err := env.svc.GetMedicationsExpiring(ctx, 30, env.clinicID)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, sameDay, groups[0].ExpiryDate)
	assert.Equal(t, int64(50), groups[0].TotalAvailable)
	assert.Equal(t, int64(2), groups[0].UnitCount)
	assert.Equal(t, "Amoxicillin", groups[0].DrugName)

	assert.Equal(t, int64(10), groups[1].TotalAvailable)
	assert.Equal(t, int64(1), groups[1].UnitCount)
}

func TestGetExpiryReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(-3))  // expired
	env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(5))   // within 7
	env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(45))  // within 60
	env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(400)) // beyond all windows

	report, err := env.svc.GetExpiryReport(ctx, env.clinicID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Summary.Expired)
	assert.Equal(t, int64(1), report.Summary.Within7)
	assert.Equal(t, int64(1), report.Summary.Within30)
	assert.Equal(t, int64(2), report.Summary.Within60)
	assert.Equal(t, int64(2), report.Summary.Within90)

	// Expired stock is included in the grouped breakdown.
	require.Len(t, report.Medications, 3)
	assert.Equal(t, daysFromNow(-3), report.Medications[0].ExpiryDate)
}

func TestReportsAreTenantScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(5))

	stats, err := env.svc.GetDashboardStats(ctx, env.clinicID+1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalUnits)

	groups, err := env.svc.GetMedicationsExpiring(ctx, 30, env.clinicID+1)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
