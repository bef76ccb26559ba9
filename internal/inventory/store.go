package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"carestock/m/domain"
)

// UnitUpdate carries the directly mutable unit fields. Nil means unchanged.
type UnitUpdate struct {
	TotalQuantity     *int64
	AvailableQuantity *int64
	ExpiryDate        *string
	Notes             *string
}

// LotUpdate carries the mutable lot fields. Nil means unchanged.
type LotUpdate struct {
	Source      *string
	Note        *string
	LocationID  *string
	MaxCapacity *int64
}

// UnitFilters is the advanced-query criteria set. Expiry bounds are
// inclusive date strings already resolved by the service; empty means
// unbounded on that side.
type UnitFilters struct {
	ExpiryFrom   string
	ExpiryTo     string
	LocationIDs  []string
	StrengthMin  *float64
	StrengthMax  *float64
	StrengthUnit string
	Name         string
	GenericName  string
	NDC          string
	SortColumn   string // one of expiry_date, created_at, quantity; "" for default
	SortDesc     bool
}

// Store is the record-level storage collaborator. It offers individual
// create/read/update/filter operations only; multi-step consistency is the
// caller's problem (see the FEFO compensation walk).
type Store interface {
	GetDrug(ctx context.Context, id string) (*domain.Drug, error)
	FindDrugByNDC(ctx context.Context, ndc string) (*domain.Drug, error)
	FindDrugsByNameStrength(ctx context.Context, name string, strength float64, unit string) ([]domain.Drug, error)
	SearchDrugs(ctx context.Context, query string, limit int) ([]domain.Drug, error)
	InsertDrug(ctx context.Context, d *domain.Drug) error

	InsertLocation(ctx context.Context, l *domain.Location) error
	GetLocation(ctx context.Context, id string, clinicID int64) (*domain.Location, error)
	ListLocations(ctx context.Context, clinicID int64) ([]domain.Location, error)
	UpdateLocation(ctx context.Context, id string, clinicID int64, name, kind string) error

	InsertLot(ctx context.Context, l *domain.Lot) error
	GetLot(ctx context.Context, id string, clinicID int64) (*domain.Lot, error)
	ListLots(ctx context.Context, clinicID int64) ([]domain.Lot, error)
	UpdateLot(ctx context.Context, id string, clinicID int64, upd LotUpdate) error
	LotTotalQuantity(ctx context.Context, lotID string, clinicID int64) (int64, error)

	InsertUnit(ctx context.Context, u *domain.Unit) error
	GetUnit(ctx context.Context, id string, clinicID int64) (*domain.UnitDetail, error)
	ListUnits(ctx context.Context, clinicID int64, limit, offset int) ([]domain.UnitDetail, error)
	CountUnits(ctx context.Context, clinicID int64) (int64, error)
	UpdateUnit(ctx context.Context, id string, clinicID int64, upd UnitUpdate) error
	TakeFromUnit(ctx context.Context, id string, clinicID int64, qty int64) error
	RestoreToUnit(ctx context.Context, id string, clinicID int64, qty int64) error
	UnitsByDrugFEFO(ctx context.Context, clinicID int64, drugIDs []string) ([]domain.UnitDetail, error)
	QueryUnits(ctx context.Context, clinicID int64, f UnitFilters, limit, offset int) ([]domain.UnitDetail, int64, error)
	SearchUnits(ctx context.Context, clinicID int64, query string, strength *float64, limit int) ([]domain.UnitDetail, error)

	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	GetTransaction(ctx context.Context, id string, clinicID int64) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, clinicID int64, unitID string, limit, offset int) ([]domain.TransactionDetail, error)
	CountTransactions(ctx context.Context, clinicID int64, unitID string) (int64, error)
	UpdateTransaction(ctx context.Context, id string, clinicID int64, quantity *int64, notes *string) error
	DeleteTransaction(ctx context.Context, id string, clinicID int64) error

	CountUnitsExpiringBetween(ctx context.Context, clinicID int64, from, to string) (int64, error)
	CountTransactionsSince(ctx context.Context, clinicID int64, txType, since string) (int64, error)
	LowStockUnits(ctx context.Context, clinicID int64, limit int) ([]domain.UnitDetail, error)
	ExpiringGroups(ctx context.Context, clinicID int64, from, to string) ([]ExpiringGroup, error)
}

// ExpiringGroup summarizes the units of one drug sharing one expiry date.
type ExpiringGroup struct {
	DrugID         string  `db:"drug_id" json:"drug_id"`
	DrugName       string  `db:"drug_name" json:"drug_name"`
	GenericName    string  `db:"generic_name" json:"generic_name"`
	Strength       float64 `db:"strength" json:"strength"`
	StrengthUnit   string  `db:"strength_unit" json:"strength_unit"`
	ExpiryDate     string  `db:"expiry_date" json:"expiry_date"`
	TotalAvailable int64   `db:"total_available" json:"total_available"`
	UnitCount      int64   `db:"unit_count" json:"unit_count"`
}

type sqlStore struct {
	db *sqlx.DB
}

// NewStore wraps the database in the Store interface.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

// NewID generates a record identifier.
func NewID() string {
	return uuid.NewString()
}

// Now formats the current UTC time the way SQLite's CURRENT_TIMESTAMP does.
func Now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

const unitDetailSelect = `SELECT u.id, u.clinic_id, u.drug_id, u.lot_id, u.total_quantity, u.available_quantity,
        u.expiry_date, u.patient_id, u.notes, u.lot_number, u.created_at,
        d.name AS drug_name, d.generic_name, d.strength, d.strength_unit, d.form, d.ndc,
        l.source AS lot_source, l.note AS lot_note, l.location_id
    FROM units u
    JOIN drugs d ON d.id = u.drug_id
    JOIN lots l ON l.id = u.lot_id`

// Drugs

func (s *sqlStore) GetDrug(ctx context.Context, id string) (*domain.Drug, error) {
	var d domain.Drug
	err := s.db.GetContext(ctx, &d, `SELECT id, name, generic_name, strength, strength_unit, form, ndc FROM drugs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *sqlStore) FindDrugByNDC(ctx context.Context, ndc string) (*domain.Drug, error) {
	var d domain.Drug
	err := s.db.GetContext(ctx, &d, `SELECT id, name, generic_name, strength, strength_unit, form, ndc FROM drugs WHERE ndc = ?`, ndc)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *sqlStore) FindDrugsByNameStrength(ctx context.Context, name string, strength float64, unit string) ([]domain.Drug, error) {
	var drugs []domain.Drug
	err := s.db.SelectContext(ctx, &drugs, `SELECT id, name, generic_name, strength, strength_unit, form, ndc FROM drugs
        WHERE LOWER(name) = LOWER(?) AND strength = ? AND strength_unit = ?`, name, strength, unit)
	return drugs, err
}

func (s *sqlStore) SearchDrugs(ctx context.Context, query string, limit int) ([]domain.Drug, error) {
	like := "%" + query + "%"
	var drugs []domain.Drug
	err := s.db.SelectContext(ctx, &drugs, `SELECT id, name, generic_name, strength, strength_unit, form, ndc FROM drugs
        WHERE name LIKE ? OR generic_name LIKE ? OR ndc LIKE ? ORDER BY name LIMIT ?`, like, like, like, limit)
	return drugs, err
}

func (s *sqlStore) InsertDrug(ctx context.Context, d *domain.Drug) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO drugs (id, name, generic_name, strength, strength_unit, form, ndc) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.GenericName, d.Strength, d.StrengthUnit, d.Form, d.NDC)
	return err
}

// Locations

func (s *sqlStore) InsertLocation(ctx context.Context, l *domain.Location) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO locations (id, clinic_id, name, kind, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.ClinicID, l.Name, l.Kind, l.CreatedAt)
	return err
}

func (s *sqlStore) GetLocation(ctx context.Context, id string, clinicID int64) (*domain.Location, error) {
	var l domain.Location
	err := s.db.GetContext(ctx, &l, `SELECT id, clinic_id, name, kind, created_at FROM locations WHERE id = ? AND clinic_id = ?`, id, clinicID)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *sqlStore) ListLocations(ctx context.Context, clinicID int64) ([]domain.Location, error) {
	var locations []domain.Location
	err := s.db.SelectContext(ctx, &locations, `SELECT id, clinic_id, name, kind, created_at FROM locations WHERE clinic_id = ? ORDER BY name`, clinicID)
	return locations, err
}

func (s *sqlStore) UpdateLocation(ctx context.Context, id string, clinicID int64, name, kind string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE locations SET name = ?, kind = ? WHERE id = ? AND clinic_id = ?`, name, kind, id, clinicID)
	return err
}

// Lots

func (s *sqlStore) InsertLot(ctx context.Context, l *domain.Lot) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO lots (id, clinic_id, location_id, source, note, max_capacity, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ClinicID, l.LocationID, l.Source, l.Note, l.MaxCapacity, l.CreatedAt)
	return err
}

func (s *sqlStore) GetLot(ctx context.Context, id string, clinicID int64) (*domain.Lot, error) {
	var l domain.Lot
	err := s.db.GetContext(ctx, &l, `SELECT id, clinic_id, location_id, source, note, max_capacity, created_at FROM lots WHERE id = ? AND clinic_id = ?`, id, clinicID)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *sqlStore) ListLots(ctx context.Context, clinicID int64) ([]domain.Lot, error) {
	var lots []domain.Lot
	err := s.db.SelectContext(ctx, &lots, `SELECT id, clinic_id, location_id, source, note, max_capacity, created_at FROM lots WHERE clinic_id = ? ORDER BY created_at DESC`, clinicID)
	return lots, err
}

func (s *sqlStore) UpdateLot(ctx context.Context, id string, clinicID int64, upd LotUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Source != nil {
		sets = append(sets, "source = ?")
		args = append(args, *upd.Source)
	}
	if upd.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, *upd.Note)
	}
	if upd.LocationID != nil {
		sets = append(sets, "location_id = ?")
		args = append(args, *upd.LocationID)
	}
	if upd.MaxCapacity != nil {
		sets = append(sets, "max_capacity = ?")
		args = append(args, *upd.MaxCapacity)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, clinicID)
	_, err := s.db.ExecContext(ctx, `UPDATE lots SET `+strings.Join(sets, ", ")+` WHERE id = ? AND clinic_id = ?`, args...)
	return err
}

func (s *sqlStore) LotTotalQuantity(ctx context.Context, lotID string, clinicID int64) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(total_quantity), 0) FROM units WHERE lot_id = ? AND clinic_id = ?`, lotID, clinicID)
	return total, err
}

// Units

func (s *sqlStore) InsertUnit(ctx context.Context, u *domain.Unit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO units (id, clinic_id, drug_id, lot_id, total_quantity, available_quantity, expiry_date, patient_id, notes, lot_number, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.ClinicID, u.DrugID, u.LotID, u.TotalQuantity, u.AvailableQuantity, u.ExpiryDate, u.PatientID, u.Notes, u.LotNumber, u.CreatedAt)
	return err
}

func (s *sqlStore) GetUnit(ctx context.Context, id string, clinicID int64) (*domain.UnitDetail, error) {
	var u domain.UnitDetail
	err := s.db.GetContext(ctx, &u, unitDetailSelect+` WHERE u.id = ? AND u.clinic_id = ?`, id, clinicID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *sqlStore) ListUnits(ctx context.Context, clinicID int64, limit, offset int) ([]domain.UnitDetail, error) {
	var units []domain.UnitDetail
	err := s.db.SelectContext(ctx, &units, unitDetailSelect+` WHERE u.clinic_id = ? ORDER BY u.created_at DESC, u.rowid DESC LIMIT ? OFFSET ?`, clinicID, limit, offset)
	return units, err
}

func (s *sqlStore) CountUnits(ctx context.Context, clinicID int64) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM units WHERE clinic_id = ?`, clinicID)
	return count, err
}

func (s *sqlStore) UpdateUnit(ctx context.Context, id string, clinicID int64, upd UnitUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.TotalQuantity != nil {
		sets = append(sets, "total_quantity = ?")
		args = append(args, *upd.TotalQuantity)
	}
	if upd.AvailableQuantity != nil {
		sets = append(sets, "available_quantity = ?")
		args = append(args, *upd.AvailableQuantity)
	}
	if upd.ExpiryDate != nil {
		sets = append(sets, "expiry_date = ?")
		args = append(args, *upd.ExpiryDate)
	}
	if upd.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *upd.Notes)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, clinicID)
	_, err := s.db.ExecContext(ctx, `UPDATE units SET `+strings.Join(sets, ", ")+` WHERE id = ? AND clinic_id = ?`, args...)
	return err
}

// TakeFromUnit decrements available_quantity by qty in a single guarded
// statement. ErrConflict means the quantity on hand no longer covers qty.
func (s *sqlStore) TakeFromUnit(ctx context.Context, id string, clinicID int64, qty int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE units SET available_quantity = available_quantity - ?
        WHERE id = ? AND clinic_id = ? AND available_quantity >= ?`, qty, id, clinicID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unit %s: %w", id, ErrConflict)
	}
	return nil
}

// RestoreToUnit adds qty back to available_quantity. The additive update
// works against the row's current value, so a concurrent writer between the
// original decrement and this restore is not clobbered.
func (s *sqlStore) RestoreToUnit(ctx context.Context, id string, clinicID int64, qty int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE units SET available_quantity = available_quantity + ?
        WHERE id = ? AND clinic_id = ?`, qty, id, clinicID)
	return err
}

// UnitsByDrugFEFO returns the in-stock units for the given drugs ordered by
// ascending expiry date; ties keep insertion order.
func (s *sqlStore) UnitsByDrugFEFO(ctx context.Context, clinicID int64, drugIDs []string) ([]domain.UnitDetail, error) {
	query, args, err := sqlx.In(unitDetailSelect+` WHERE u.clinic_id = ? AND u.available_quantity > 0 AND u.drug_id IN (?)
        ORDER BY u.expiry_date ASC, u.created_at ASC, u.rowid ASC`, clinicID, drugIDs)
	if err != nil {
		return nil, err
	}
	var units []domain.UnitDetail
	err = s.db.SelectContext(ctx, &units, s.db.Rebind(query), args...)
	return units, err
}

func (s *sqlStore) QueryUnits(ctx context.Context, clinicID int64, f UnitFilters, limit, offset int) ([]domain.UnitDetail, int64, error) {
	clauses := []string{"u.clinic_id = ?"}
	args := []any{clinicID}

	if f.ExpiryFrom != "" {
		clauses = append(clauses, "u.expiry_date >= ?")
		args = append(args, f.ExpiryFrom)
	}
	if f.ExpiryTo != "" {
		clauses = append(clauses, "u.expiry_date <= ?")
		args = append(args, f.ExpiryTo)
	}
	if len(f.LocationIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.LocationIDs)), ",")
		clauses = append(clauses, "l.location_id IN ("+placeholders+")")
		for _, id := range f.LocationIDs {
			args = append(args, id)
		}
	}
	if f.StrengthMin != nil {
		clauses = append(clauses, "d.strength >= ?")
		args = append(args, *f.StrengthMin)
	}
	if f.StrengthMax != nil {
		clauses = append(clauses, "d.strength <= ?")
		args = append(args, *f.StrengthMax)
	}
	if f.StrengthUnit != "" {
		clauses = append(clauses, "d.strength_unit = ?")
		args = append(args, f.StrengthUnit)
	}
	if f.Name != "" {
		clauses = append(clauses, "d.name LIKE ?")
		args = append(args, "%"+f.Name+"%")
	}
	if f.GenericName != "" {
		clauses = append(clauses, "d.generic_name LIKE ?")
		args = append(args, "%"+f.GenericName+"%")
	}
	if f.NDC != "" {
		clauses = append(clauses, "d.ndc = ?")
		args = append(args, f.NDC)
	}

	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM units u JOIN drugs d ON d.id = u.drug_id JOIN lots l ON l.id = u.lot_id` + where
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	order := "u.created_at DESC, u.rowid DESC"
	switch f.SortColumn {
	case "expiry_date":
		order = "u.expiry_date"
	case "created_at":
		order = "u.created_at"
	case "quantity":
		order = "u.available_quantity"
	}
	if f.SortColumn != "" && f.SortDesc {
		order += " DESC"
	}

	var units []domain.UnitDetail
	args = append(args, limit, offset)
	err := s.db.SelectContext(ctx, &units, unitDetailSelect+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	return units, total, err
}

func (s *sqlStore) SearchUnits(ctx context.Context, clinicID int64, query string, strength *float64, limit int) ([]domain.UnitDetail, error) {
	like := "%" + query + "%"
	clause := `(d.name LIKE ? OR d.generic_name LIKE ? OR d.ndc LIKE ? OR u.notes LIKE ?`
	args := []any{clinicID, like, like, like, like}
	if strength != nil {
		clause += ` OR d.strength = ?`
		args = append(args, *strength)
	}
	clause += `)`
	args = append(args, limit)

	var units []domain.UnitDetail
	err := s.db.SelectContext(ctx, &units, unitDetailSelect+` WHERE u.clinic_id = ? AND u.available_quantity > 0 AND `+clause+`
        ORDER BY u.expiry_date ASC LIMIT ?`, args...)
	return units, err
}

// Transactions

func (s *sqlStore) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO transactions (id, clinic_id, unit_id, user_id, type, quantity, patient_name, patient_dob, notes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ClinicID, t.UnitID, t.UserID, t.Type, t.Quantity, t.PatientName, t.PatientDOB, t.Notes, t.CreatedAt)
	return err
}

func (s *sqlStore) GetTransaction(ctx context.Context, id string, clinicID int64) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.db.GetContext(ctx, &t, `SELECT id, clinic_id, unit_id, user_id, type, quantity, patient_name, patient_dob, notes, created_at
        FROM transactions WHERE id = ? AND clinic_id = ?`, id, clinicID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const transactionDetailSelect = `SELECT t.id, t.clinic_id, t.unit_id, t.user_id, t.type, t.quantity, t.patient_name, t.patient_dob, t.notes, t.created_at,
        d.name AS drug_name, d.generic_name, us.username
    FROM transactions t
    JOIN units u ON u.id = t.unit_id
    JOIN drugs d ON d.id = u.drug_id
    JOIN users us ON us.id = t.user_id`

func (s *sqlStore) ListTransactions(ctx context.Context, clinicID int64, unitID string, limit, offset int) ([]domain.TransactionDetail, error) {
	query := transactionDetailSelect + ` WHERE t.clinic_id = ?`
	args := []any{clinicID}
	if unitID != "" {
		query += ` AND t.unit_id = ?`
		args = append(args, unitID)
	}
	query += ` ORDER BY t.created_at DESC, t.rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var txns []domain.TransactionDetail
	err := s.db.SelectContext(ctx, &txns, query, args...)
	return txns, err
}

func (s *sqlStore) CountTransactions(ctx context.Context, clinicID int64, unitID string) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE clinic_id = ?`
	args := []any{clinicID}
	if unitID != "" {
		query += ` AND unit_id = ?`
		args = append(args, unitID)
	}
	var count int64
	err := s.db.GetContext(ctx, &count, query, args...)
	return count, err
}

func (s *sqlStore) UpdateTransaction(ctx context.Context, id string, clinicID int64, quantity *int64, notes *string) error {
	var (
		sets []string
		args []any
	)
	if quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *quantity)
	}
	if notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *notes)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, clinicID)
	_, err := s.db.ExecContext(ctx, `UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ? AND clinic_id = ?`, args...)
	return err
}

// DeleteTransaction exists solely for compensation: a ledger entry recorded
// by a walk that subsequently failed is withdrawn so the ledger never shows
// a rolled-back dispense as committed. Committed entries are never deleted.
func (s *sqlStore) DeleteTransaction(ctx context.Context, id string, clinicID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND clinic_id = ?`, id, clinicID)
	return err
}

// Report queries

func (s *sqlStore) CountUnitsExpiringBetween(ctx context.Context, clinicID int64, from, to string) (int64, error) {
	query := `SELECT COUNT(*) FROM units WHERE clinic_id = ? AND available_quantity > 0`
	args := []any{clinicID}
	if from != "" {
		query += ` AND expiry_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND expiry_date <= ?`
		args = append(args, to)
	}
	var count int64
	err := s.db.GetContext(ctx, &count, query, args...)
	return count, err
}

func (s *sqlStore) CountTransactionsSince(ctx context.Context, clinicID int64, txType, since string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM transactions WHERE clinic_id = ? AND type = ? AND created_at >= ?`,
		clinicID, txType, since)
	return count, err
}

func (s *sqlStore) LowStockUnits(ctx context.Context, clinicID int64, limit int) ([]domain.UnitDetail, error) {
	var units []domain.UnitDetail
	err := s.db.SelectContext(ctx, &units, unitDetailSelect+` WHERE u.clinic_id = ? AND u.available_quantity > 0
        AND u.available_quantity * 10 < u.total_quantity
        ORDER BY u.available_quantity ASC LIMIT ?`, clinicID, limit)
	return units, err
}

func (s *sqlStore) ExpiringGroups(ctx context.Context, clinicID int64, from, to string) ([]ExpiringGroup, error) {
	query := `SELECT u.drug_id, d.name AS drug_name, d.generic_name, d.strength, d.strength_unit, u.expiry_date,
            SUM(u.available_quantity) AS total_available, COUNT(*) AS unit_count
        FROM units u
        JOIN drugs d ON d.id = u.drug_id
        WHERE u.clinic_id = ? AND u.available_quantity > 0`
	args := []any{clinicID}
	if from != "" {
		query += ` AND u.expiry_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND u.expiry_date <= ?`
		args = append(args, to)
	}
	query += ` GROUP BY u.drug_id, u.expiry_date ORDER BY u.expiry_date ASC, d.name ASC`

	var groups []ExpiringGroup
	err := s.db.SelectContext(ctx, &groups, query, args...)
	return groups, err
}
