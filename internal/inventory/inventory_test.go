package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carestock/m/domain"
	"carestock/m/internal/database"
	"carestock/m/internal/migrations"
)

// testEnv is one clinic with a seeded user, drug, location and lot over an
// in-memory database.
type testEnv struct {
	svc      *Service
	store    Store
	clinicID int64
	userID   int64
	drug     domain.Drug
	lotID    string
	locID    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	migrations.Run(db)

	res, err := db.Exec(`INSERT INTO clinics (name, address) VALUES (?, ?)`, "Hope Free Clinic", "12 Main St")
	require.NoError(t, err)
	clinicID, err := res.LastInsertId()
	require.NoError(t, err)

	res, err = db.Exec(`INSERT INTO users (username, email, password, role, clinic_id) VALUES (?, ?, ?, ?, ?)`,
		"nurse", "nurse@example.org", "x", "staff", clinicID)
	require.NoError(t, err)
	userID, err := res.LastInsertId()
	require.NoError(t, err)

	store := NewStore(db)
	env := &testEnv{
		svc:      NewService(store),
		store:    store,
		clinicID: clinicID,
		userID:   userID,
	}

	ctx := context.Background()
	env.drug = domain.Drug{
		ID:           NewID(),
		Name:         "Amoxicillin",
		GenericName:  "amoxicillin",
		Strength:     500,
		StrengthUnit: "mg",
		Form:         "capsule",
		NDC:          "00093-4155-73",
	}
	require.NoError(t, store.InsertDrug(ctx, &env.drug))

	loc := domain.Location{ID: NewID(), ClinicID: clinicID, Name: "Cabinet A", Kind: domain.LocationRoomTemp, CreatedAt: Now()}
	require.NoError(t, store.InsertLocation(ctx, &loc))
	env.locID = loc.ID

	env.lotID = env.newLot(t, nil)
	return env
}

func (e *testEnv) newLot(t *testing.T, maxCapacity *int64) string {
	t.Helper()
	lot := domain.Lot{
		ID:          NewID(),
		ClinicID:    e.clinicID,
		LocationID:  e.locID,
		Source:      "County Hospital donation",
		MaxCapacity: maxCapacity,
		CreatedAt:   Now(),
	}
	require.NoError(t, e.store.InsertLot(context.Background(), &lot))
	return lot.ID
}

func (e *testEnv) newDrug(t *testing.T, name string, strength float64, unit, ndc string) domain.Drug {
	t.Helper()
	d := domain.Drug{
		ID:           NewID(),
		Name:         name,
		GenericName:  name,
		Strength:     strength,
		StrengthUnit: unit,
		Form:         "tablet",
		NDC:          ndc,
	}
	require.NoError(t, e.store.InsertDrug(context.Background(), &d))
	return d
}

// checkIn creates a unit through the service, which also writes the
// check_in ledger entry.
func (e *testEnv) checkIn(t *testing.T, drugID, lotID string, qty int64, expiry string) *domain.UnitDetail {
	t.Helper()
	unit, err := e.svc.CreateUnit(context.Background(), CreateUnitInput{
		DrugID:        drugID,
		LotID:         lotID,
		TotalQuantity: qty,
		ExpiryDate:    expiry,
	}, e.userID, e.clinicID)
	require.NoError(t, err)
	return unit
}

func (e *testEnv) available(t *testing.T, unitID string) int64 {
	t.Helper()
	u, err := e.svc.GetUnit(context.Background(), unitID, e.clinicID)
	require.NoError(t, err)
	return u.AvailableQuantity
}

func (e *testEnv) checkOutCount(t *testing.T, unitID string) int {
	t.Helper()
	page, err := e.svc.ListTransactions(context.Background(), e.clinicID, 1, 100, "", unitID)
	require.NoError(t, err)
	n := 0
	for _, txn := range page.Transactions {
		if txn.Type == domain.TxCheckOut {
			n++
		}
	}
	return n
}

func daysFromNow(n int) string {
	return time.Now().UTC().AddDate(0, 0, n).Format("2006-01-02")
}
