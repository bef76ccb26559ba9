package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"carestock/m/domain"
)

// CheckOutFEFORequest identifies the target drug either by exact NDC or by
// medication name plus exact strength and strength unit.
type CheckOutFEFORequest struct {
	NDC            string   `json:"ndc,omitempty"`
	MedicationName string   `json:"medication_name,omitempty"`
	Strength       *float64 `json:"strength,omitempty"`
	StrengthUnit   string   `json:"strength_unit,omitempty"`
	Quantity       int64    `json:"quantity"`
	PatientName    *string  `json:"patient_name,omitempty"`
	PatientDOB     *string  `json:"patient_dob,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

// UnitUsage is one step of a FEFO allocation's unit-by-unit breakdown.
type UnitUsage struct {
	UnitID         string `json:"unit_id"`
	QuantityTaken  int64  `json:"quantity_taken"`
	ExpiryDate     string `json:"expiry_date"`
	MedicationName string `json:"medication_name"`
}

// CheckOutResult is a successful dispense.
type CheckOutResult struct {
	Transactions           []domain.Transaction `json:"transactions"`
	TotalQuantityDispensed int64                `json:"total_quantity_dispensed"`
	UnitsUsed              []UnitUsage          `json:"units_used"`
}

// CheckOutFEFO dispenses the requested quantity from soonest-to-expire stock
// first. The walk is not transactional: each decrement and ledger insert is
// its own write, and a failure partway through triggers a sequential
// compensation that restores every unit this allocation already decremented.
// A process crash mid-walk can still leave a decremented unit with no
// matching ledger entry; the compensation is best-effort, not atomic.
func (s *Service) CheckOutFEFO(ctx context.Context, req CheckOutFEFORequest, userID, clinicID int64) (*CheckOutResult, error) {
	if req.Quantity <= 0 {
		return nil, validationf("quantity must be positive, got %d", req.Quantity)
	}
	if req.NDC == "" && (req.MedicationName == "" || req.Strength == nil || req.StrengthUnit == "") {
		return nil, validationf("either ndc or medication_name with strength and strength_unit is required")
	}

	drugIDs, medName, err := s.resolveDrugs(ctx, req)
	if err != nil {
		return nil, err
	}

	units, err := s.store.UnitsByDrugFEFO(ctx, clinicID, drugIDs)
	if err != nil {
		return nil, persistence("fetch units", err)
	}

	var available int64
	for _, u := range units {
		available += u.AvailableQuantity
	}
	if available < req.Quantity {
		return nil, &InsufficientQuantityError{Requested: req.Quantity, Available: available}
	}

	var (
		remaining = req.Quantity
		used      []UnitUsage
		txns      []domain.Transaction
	)
	for i, u := range units {
		if remaining == 0 {
			break
		}
		take := remaining
		if u.AvailableQuantity < take {
			take = u.AvailableQuantity
		}

		if err := s.store.TakeFromUnit(ctx, u.ID, clinicID, take); err != nil {
			s.compensate(ctx, clinicID, used, txns)
			return nil, &AllocationFailedError{Err: fmt.Errorf("decrement unit %s: %w", u.ID, err)}
		}

		notes := req.Notes
		if notes == nil {
			auto := fmt.Sprintf("FEFO dispense of %s: unit %d of batch", medName, i+1)
			notes = &auto
		}
		txn := domain.Transaction{
			ID:          NewID(),
			ClinicID:    clinicID,
			UnitID:      u.ID,
			UserID:      userID,
			Type:        domain.TxCheckOut,
			Quantity:    take,
			PatientName: req.PatientName,
			PatientDOB:  req.PatientDOB,
			Notes:       notes,
			CreatedAt:   Now(),
		}
		if err := s.store.InsertTransaction(ctx, &txn); err != nil {
			// Prior units first, then this step's own already-applied
			// decrement.
			s.compensate(ctx, clinicID, used, txns)
			if rerr := s.store.RestoreToUnit(ctx, u.ID, clinicID, take); rerr != nil {
				log.Printf("compensation failed for unit %s (+%d): %v", u.ID, take, rerr)
			}
			return nil, &AllocationFailedError{Err: fmt.Errorf("record check_out for unit %s: %w", u.ID, err)}
		}

		used = append(used, UnitUsage{
			UnitID:         u.ID,
			QuantityTaken:  take,
			ExpiryDate:     u.ExpiryDate,
			MedicationName: u.DrugName,
		})
		txns = append(txns, txn)
		remaining -= take
	}

	return &CheckOutResult{
		Transactions:           txns,
		TotalQuantityDispensed: req.Quantity,
		UnitsUsed:              used,
	}, nil
}

// resolveDrugs maps the request's drug identity onto catalog ids.
func (s *Service) resolveDrugs(ctx context.Context, req CheckOutFEFORequest) ([]string, string, error) {
	if req.NDC != "" {
		drug, err := s.store.FindDrugByNDC(ctx, req.NDC)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, "", &NotFoundError{Resource: "drug with NDC", ID: req.NDC}
			}
			return nil, "", persistence("resolve drug by ndc", err)
		}
		return []string{drug.ID}, drug.Name, nil
	}

	drugs, err := s.store.FindDrugsByNameStrength(ctx, req.MedicationName, *req.Strength, req.StrengthUnit)
	if err != nil {
		return nil, "", persistence("resolve drug by name", err)
	}
	if len(drugs) == 0 {
		return nil, "", &NotFoundError{Resource: "drug", ID: req.MedicationName}
	}
	ids := make([]string, len(drugs))
	for i, d := range drugs {
		ids[i] = d.ID
	}
	return ids, drugs[0].Name, nil
}

// compensate undoes the committed steps of a partially-failed allocation:
// each decremented unit gets its taken amount added back onto its current
// value (so writes that landed in between are preserved), and each ledger
// entry the walk recorded is withdrawn. Failures here are logged, not
// re-raised, to avoid masking the primary error.
func (s *Service) compensate(ctx context.Context, clinicID int64, used []UnitUsage, txns []domain.Transaction) {
	for _, u := range used {
		if err := s.store.RestoreToUnit(ctx, u.UnitID, clinicID, u.QuantityTaken); err != nil {
			log.Printf("compensation failed for unit %s (+%d): %v", u.UnitID, u.QuantityTaken, err)
		}
	}
	for _, t := range txns {
		if err := s.store.DeleteTransaction(ctx, t.ID, clinicID); err != nil {
			log.Printf("compensation failed to withdraw transaction %s: %v", t.ID, err)
		}
	}
}

// CheckOutUnitRequest dispenses from one caller-specified unit.
type CheckOutUnitRequest struct {
	UnitID      string  `json:"unit_id"`
	Quantity    int64   `json:"quantity"`
	PatientName *string `json:"patient_name,omitempty"`
	PatientDOB  *string `json:"patient_dob,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// CheckOutUnit decrements an exact unit and records one check_out entry.
// If the ledger insert fails, the single decrement is restored.
func (s *Service) CheckOutUnit(ctx context.Context, req CheckOutUnitRequest, userID, clinicID int64) (*domain.Transaction, error) {
	if req.Quantity <= 0 {
		return nil, validationf("quantity must be positive, got %d", req.Quantity)
	}
	if req.UnitID == "" {
		return nil, validationf("unit_id is required")
	}

	unit, err := s.GetUnit(ctx, req.UnitID, clinicID)
	if err != nil {
		return nil, err
	}
	if unit.AvailableQuantity < req.Quantity {
		return nil, &InsufficientQuantityError{Requested: req.Quantity, Available: unit.AvailableQuantity}
	}

	if err := s.store.TakeFromUnit(ctx, unit.ID, clinicID, req.Quantity); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, &InsufficientQuantityError{Requested: req.Quantity, Available: unit.AvailableQuantity}
		}
		return nil, persistence("decrement unit", err)
	}

	txn := domain.Transaction{
		ID:          NewID(),
		ClinicID:    clinicID,
		UnitID:      unit.ID,
		UserID:      userID,
		Type:        domain.TxCheckOut,
		Quantity:    req.Quantity,
		PatientName: req.PatientName,
		PatientDOB:  req.PatientDOB,
		Notes:       req.Notes,
		CreatedAt:   Now(),
	}
	if err := s.store.InsertTransaction(ctx, &txn); err != nil {
		if rerr := s.store.RestoreToUnit(ctx, unit.ID, clinicID, req.Quantity); rerr != nil {
			log.Printf("restore failed for unit %s (+%d): %v", unit.ID, req.Quantity, rerr)
		}
		return nil, persistence("record check_out", err)
	}
	return &txn, nil
}
