package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carestock/m/domain"
)

func TestCheckOutFEFOConsumesSoonestExpiryFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unitA := env.checkIn(t, env.drug.ID, env.lotID, 30, "2025-01-01")
	unitB := env.checkIn(t, env.drug.ID, env.lotID, 30, "2025-06-01")

	result, err := env.svc.CheckOutFEFO(ctx, CheckOutFEFORequest{
		NDC:      env.drug.NDC,
		Quantity: 40,
	}, env.userID, env.clinicID)
	require.NoError(t, err)

	require.Equal(t, int64(40), result.TotalQuantityDispensed)
	require.Len(t, result.UnitsUsed, 2)
	assert.Equal(t, unitA.ID, result.UnitsUsed[0].UnitID)
	assert.Equal(t, int64(30), result.UnitsUsed[0].QuantityTaken)
	assert.Equal(t, unitB.ID, result.UnitsUsed[1].UnitID)
	assert.Equal(t, int64(10), result.UnitsUsed[1].QuantityTaken)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, int64(30), result.Transactions[0].Quantity)
	assert.Equal(t, int64(10), result.Transactions[1].Quantity)

	assert.Equal(t, int64(0), env.available(t, unitA.ID))
	assert.Equal(t, int64(20), env.available(t, unitB.ID))

	// Breakdown quantities reconcile with the dispensed total.
	var sum int64
	for _, u := range result.UnitsUsed {
		sum += u.QuantityTaken
	}
	assert.Equal(t, result.TotalQuantityDispensed, sum)
}

func TestCheckOutFEFOExpiryOrderIsNonDecreasing(t *testing.T) {
	env := newTestEnv(t)

	// Insert out of expiry order on purpose.
	env.checkIn(t, env.drug.ID, env.lotID, 10, "2026-12-01")
	env.checkIn(t, env.drug.ID, env.lotID, 10, "2026-03-01")
	env.checkIn(t, env.drug.ID, env.lotID, 10, "2026-07-15")

	result, err := env.svc.CheckOutFEFO(context.Background(), CheckOutFEFORequest{
		NDC:      env.drug.NDC,
		Quantity: 25,
	}, env.userID, env.clinicID)
	require.NoError(t, err)
	require.Len(t, result.UnitsUsed, 3)
	for i := 1; i < len(result.UnitsUsed); i++ {
		assert.LessOrEqual(t, result.UnitsUsed[i-1].ExpiryDate, result.UnitsUsed[i].ExpiryDate)
	}
}

func TestCheckOutFEFOInsufficientQuantity(t *testing.T) {
	env := newTestEnv(t)

	unit := env.checkIn(t, env.drug.ID, env.lotID, 50, "2026-06-01")

	_, err := env.svc.CheckOutFEFO(context.Background(), CheckOutFEFORequest{
		NDC:      env.drug.NDC,
		Quantity: 100,
	}, env.userID, env.clinicID)

	var insufficient *InsufficientQuantityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(100), insufficient.Requested)
	assert.Equal(t, int64(50), insufficient.Available)

	// Nothing was mutated: the shortfall is detected before any decrement.
	assert.Equal(t, int64(50), env.available(t, unit.ID))
	assert.Equal(t, 0, env.checkOutCount(t, unit.ID))
}

func TestCheckOutFEFOByNameStrength(t *testing.T) {
	env := newTestEnv(t)

	// A second catalog entry sharing name and strength under another NDC;
	// both are candidates for a name-based dispense.
	other := env.newDrug(t, "Amoxicillin", 500, "mg", "55555-0001-01")
	env.checkIn(t, env.drug.ID, env.lotID, 20, "2026-02-01")
	env.checkIn(t, other.ID, env.lotID, 20, "2026-01-01")

	strength := 500.0
	result, err := env.svc.CheckOutFEFO(context.Background(), CheckOutFEFORequest{
		MedicationName: "amoxicillin",
		Strength:       &strength,
		StrengthUnit:   "mg",
		Quantity:       30,
	}, env.userID, env.clinicID)
	require.NoError(t, err)
	require.Len(t, result.UnitsUsed, 2)
	// The other drug's unit expires sooner, so it goes first.
	assert.Equal(t, int64(20), result.UnitsUsed[0].QuantityTaken)
	assert.Equal(t, "2026-01-01", result.UnitsUsed[0].ExpiryDate)
}

func TestCheckOutFEFOValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var validation *ValidationError

	_, err := env.svc.CheckOutFEFO(ctx, CheckOutFEFORequest{NDC: env.drug.NDC, Quantity: 0}, env.userID, env.clinicID)
	require.ErrorAs(t, err, &validation)

	// Neither NDC nor a complete name+strength identity.
	_, err = env.svc.CheckOutFEFO(ctx, CheckOutFEFORequest{MedicationName: "Amoxicillin", Quantity: 5}, env.userID, env.clinicID)
	require.ErrorAs(t, err, &validation)

	var notFound *NotFoundError
	_, err = env.svc.CheckOutFEFO(ctx, CheckOutFEFORequest{NDC: "99999-9999-99", Quantity: 5}, env.userID, env.clinicID)
	require.ErrorAs(t, err, &notFound)
}

func TestCheckOutFEFOAutoNotesNumberTheBatch(t *testing.T) {
	env := newTestEnv(t)

	env.checkIn(t, env.drug.ID, env.lotID, 10, "2026-01-01")
	env.checkIn(t, env.drug.ID, env.lotID, 10, "2026-02-01")

	result, err := env.svc.CheckOutFEFO(context.Background(), CheckOutFEFORequest{
		NDC:      env.drug.NDC,
		Quantity: 15,
	}, env.userID, env.clinicID)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	require.NotNil(t, result.Transactions[0].Notes)
	assert.Contains(t, *result.Transactions[0].Notes, "unit 1 of batch")
	require.NotNil(t, result.Transactions[1].Notes)
	assert.Contains(t, *result.Transactions[1].Notes, "unit 2 of batch")
}

// failingStore injects a storage error on the Nth check_out ledger insert.
type failingStore struct {
	Store
	failOn int
	seen   int
	err    error
}

func (f *failingStore) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	if txn.Type == domain.TxCheckOut {
		f.seen++
		if f.seen == f.failOn {
			return f.err
		}
	}
	return f.Store.InsertTransaction(ctx, txn)
}

func TestCheckOutFEFOCompensatesOnPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unitA := env.checkIn(t, env.drug.ID, env.lotID, 30, "2025-01-01")
	unitB := env.checkIn(t, env.drug.ID, env.lotID, 30, "2025-06-01")

	boom := errors.New("storage offline")
	flaky := NewService(&failingStore{Store: env.store, failOn: 2, err: boom})

	_, err := flaky.CheckOutFEFO(ctx, CheckOutFEFORequest{
		NDC:      env.drug.NDC,
		Quantity: 40,
	}, env.userID, env.clinicID)

	var allocation *AllocationFailedError
	require.ErrorAs(t, err, &allocation)
	require.ErrorIs(t, err, boom)

	// Final state equals initial state exactly: both decrements restored
	// and the first unit's already-committed ledger entry withdrawn.
	assert.Equal(t, int64(30), env.available(t, unitA.ID))
	assert.Equal(t, int64(30), env.available(t, unitB.ID))
	assert.Equal(t, 0, env.checkOutCount(t, unitA.ID))
	assert.Equal(t, 0, env.checkOutCount(t, unitB.ID))
}

func TestCheckOutUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unit := env.checkIn(t, env.drug.ID, env.lotID, 10, "2026-06-01")

	txn, err := env.svc.CheckOutUnit(ctx, CheckOutUnitRequest{
		UnitID:   unit.ID,
		Quantity: 4,
	}, env.userID, env.clinicID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxCheckOut, txn.Type)
	assert.Equal(t, int64(4), txn.Quantity)

	assert.Equal(t, int64(6), env.available(t, unit.ID))
	assert.Equal(t, 1, env.checkOutCount(t, unit.ID))
}

func TestCheckOutUnitInsufficient(t *testing.T) {
	env := newTestEnv(t)

	unit := env.checkIn(t, env.drug.ID, env.lotID, 3, "2026-06-01")

	_, err := env.svc.CheckOutUnit(context.Background(), CheckOutUnitRequest{
		UnitID:   unit.ID,
		Quantity: 5,
	}, env.userID, env.clinicID)

	var insufficient *InsufficientQuantityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(3), env.available(t, unit.ID))
}

func TestCheckOutUnitNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CheckOutUnit(context.Background(), CheckOutUnitRequest{
		UnitID:   "no-such-unit",
		Quantity: 1,
	}, env.userID, env.clinicID)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCheckOutUnitRestoresOnLedgerFailure(t *testing.T) {
	env := newTestEnv(t)

	unit := env.checkIn(t, env.drug.ID, env.lotID, 10, "2026-06-01")

	boom := errors.New("storage offline")
	flaky := NewService(&failingStore{Store: env.store, failOn: 1, err: boom})

	_, err := flaky.CheckOutUnit(context.Background(), CheckOutUnitRequest{
		UnitID:   unit.ID,
		Quantity: 4,
	}, env.userID, env.clinicID)
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(10), env.available(t, unit.ID))
	assert.Equal(t, 0, env.checkOutCount(t, unit.ID))
}
