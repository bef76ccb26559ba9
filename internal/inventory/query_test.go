package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carestock/m/domain"
)

func TestAdvancedQueryExpiryWindows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expired := env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(-5))
	soon := env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(20))
	later := env.checkIn(t, env.drug.ID, env.lotID, 10, daysFromNow(200))

	page, err := env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{Window: WindowExpired}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.Equal(t, expired.ID, page.Units[0].ID)

	page, err = env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{Window: WindowExpiring30}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.Equal(t, soon.ID, page.Units[0].ID)

	page, err = env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{Window: WindowAll}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Units, 3)
	assert.Equal(t, int64(3), page.Total)

	_ = later
}

func TestAdvancedQueryExplicitRangeBeatsWindow(t *testing.T) {
	env := newTestEnv(t)

	env.checkIn(t, env.drug.ID, env.lotID, 10, "2030-01-15")
	env.checkIn(t, env.drug.ID, env.lotID, 10, "2031-01-15")

	// The window alone would match nothing this far out; the explicit
	// range wins when both are given.
	page, err := env.svc.AdvancedQuery(context.Background(), env.clinicID, AdvancedFilters{
		Window:     WindowExpiring7,
		ExpiryFrom: "2030-01-01",
		ExpiryTo:   "2030-12-31",
	}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.Equal(t, "2030-01-15", page.Units[0].ExpiryDate)
}

func TestAdvancedQueryDrugCriteria(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ibuprofen := env.newDrug(t, "Ibuprofen", 200, "mg", "11111-2222-33")
	env.checkIn(t, env.drug.ID, env.lotID, 10, "2030-01-01")
	env.checkIn(t, ibuprofen.ID, env.lotID, 20, "2030-02-01")

	page, err := env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{NDC: ibuprofen.NDC}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.Equal(t, "Ibuprofen", page.Units[0].DrugName)

	page, err = env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{Name: "amox"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.Equal(t, "Amoxicillin", page.Units[0].DrugName)

	low, high := 150.0, 300.0
	page, err = env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{
		StrengthMin: &low, StrengthMax: &high, StrengthUnit: "mg",
	}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.Equal(t, float64(200), page.Units[0].Strength)
}

func TestAdvancedQueryLocationFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fridge := domain.Location{ID: NewID(), ClinicID: env.clinicID, Name: "Fridge 1", Kind: domain.LocationRefrigerated, CreatedAt: Now()}
	require.NoError(t, env.store.InsertLocation(ctx, &fridge))
	fridgeLot := domain.Lot{ID: NewID(), ClinicID: env.clinicID, LocationID: fridge.ID, Source: "Cold-chain donation", CreatedAt: Now()}
	require.NoError(t, env.store.InsertLot(ctx, &fridgeLot))

	env.checkIn(t, env.drug.ID, env.lotID, 10, "2030-01-01")
	cold := env.checkIn(t, env.drug.ID, fridgeLot.ID, 20, "2030-02-01")

	page, err := env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{
		LocationIDs: []string{fridge.ID},
	}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.Equal(t, cold.ID, page.Units[0].ID)
}

func TestAdvancedQuerySorting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.checkIn(t, env.drug.ID, env.lotID, 30, "2030-03-01")
	env.checkIn(t, env.drug.ID, env.lotID, 10, "2030-01-01")
	env.checkIn(t, env.drug.ID, env.lotID, 20, "2030-02-01")

	page, err := env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{SortBy: "expiry_date"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 3)
	assert.Equal(t, "2030-01-01", page.Units[0].ExpiryDate)
	assert.Equal(t, "2030-03-01", page.Units[2].ExpiryDate)

	page, err = env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{SortBy: "quantity", SortDesc: true}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 3)
	assert.Equal(t, int64(30), page.Units[0].AvailableQuantity)

	// Name sort orders the fetched page by the joined drug name.
	zinc := env.newDrug(t, "Zinc Sulfate", 220, "mg", "22222-3333-44")
	env.checkIn(t, zinc.ID, env.lotID, 5, "2030-04-01")
	page, err = env.svc.AdvancedQuery(ctx, env.clinicID, AdvancedFilters{SortBy: "name", SortDesc: true}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Units, 4)
	assert.Equal(t, "Zinc Sulfate", page.Units[0].DrugName)
}

func TestAdvancedQueryPagination(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		env.checkIn(t, env.drug.ID, env.lotID, int64(10+i), "2030-01-01")
	}

	page, err := env.svc.AdvancedQuery(context.Background(), env.clinicID, AdvancedFilters{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Units, 2)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
}

func TestAdvancedQueryBadDates(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AdvancedQuery(context.Background(), env.clinicID, AdvancedFilters{ExpiryFrom: "01-01-2030"}, 1, 10)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}
