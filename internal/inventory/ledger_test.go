package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carestock/m/domain"
)

func TestRecordTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unit := env.checkIn(t, env.drug.ID, env.lotID, 40, "2027-01-01")

	notes := "stock count correction"
	txn, err := env.svc.RecordTransaction(ctx, RecordTransactionInput{
		UnitID:   unit.ID,
		Type:     domain.TxAdjust,
		Quantity: 5,
		Notes:    &notes,
	}, env.userID, env.clinicID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxAdjust, txn.Type)
	assert.Equal(t, int64(5), txn.Quantity)

	var validation *ValidationError
	_, err = env.svc.RecordTransaction(ctx, RecordTransactionInput{
		UnitID: unit.ID, Type: "transfer", Quantity: 5,
	}, env.userID, env.clinicID)
	require.ErrorAs(t, err, &validation)

	var notFound *NotFoundError
	_, err = env.svc.RecordTransaction(ctx, RecordTransactionInput{
		UnitID: "no-such-unit", Type: domain.TxAdjust, Quantity: 5,
	}, env.userID, env.clinicID)
	require.ErrorAs(t, err, &notFound)
}

func TestListTransactionsScopedAndFiltered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unit := env.checkIn(t, env.drug.ID, env.lotID, 40, "2027-01-01")
	_, err := env.svc.CheckOutUnit(ctx, CheckOutUnitRequest{UnitID: unit.ID, Quantity: 10}, env.userID, env.clinicID)
	require.NoError(t, err)

	page, err := env.svc.ListTransactions(ctx, env.clinicID, 1, 10, "", unit.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total) // check_in + check_out

	// Free-text filter over the fetched page.
	filtered, err := env.svc.ListTransactions(ctx, env.clinicID, 1, 10, "check_out", "")
	require.NoError(t, err)
	require.Len(t, filtered.Transactions, 1)
	assert.Equal(t, domain.TxCheckOut, filtered.Transactions[0].Type)

	// Another clinic sees nothing.
	other, err := env.svc.ListTransactions(ctx, env.clinicID+1, 1, 10, "", "")
	require.NoError(t, err)
	assert.Empty(t, other.Transactions)
	assert.Equal(t, int64(0), other.Total)
}

func TestUpdateTransactionDoesNotReconcileUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unit := env.checkIn(t, env.drug.ID, env.lotID, 40, "2027-01-01")
	txn, err := env.svc.CheckOutUnit(ctx, CheckOutUnitRequest{UnitID: unit.ID, Quantity: 10}, env.userID, env.clinicID)
	require.NoError(t, err)
	require.Equal(t, int64(30), env.available(t, unit.ID))

	corrected := int64(8)
	notes := "recount: two tablets returned unopened"
	updated, err := env.svc.UpdateTransaction(ctx, txn.ID, env.clinicID, &corrected, &notes)
	require.NoError(t, err)
	assert.Equal(t, int64(8), updated.Quantity)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)

	// The correction is cosmetic: the unit's balance is untouched.
	assert.Equal(t, int64(30), env.available(t, unit.ID))
}

func TestUpdateTransactionNotFound(t *testing.T) {
	env := newTestEnv(t)

	qty := int64(1)
	_, err := env.svc.UpdateTransaction(context.Background(), "no-such-txn", env.clinicID, &qty, nil)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
