package inventory

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"carestock/m/domain"
)

// RecordTransactionInput is a manual ledger entry (typically an adjustment).
type RecordTransactionInput struct {
	UnitID      string  `json:"unit_id"`
	Type        string  `json:"type"`
	Quantity    int64   `json:"quantity"`
	PatientName *string `json:"patient_name,omitempty"`
	PatientDOB  *string `json:"patient_dob,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// RecordTransaction appends one ledger entry against a unit. Every write and
// read of the ledger is scoped to the acting clinic.
func (s *Service) RecordTransaction(ctx context.Context, in RecordTransactionInput, userID, clinicID int64) (*domain.Transaction, error) {
	switch in.Type {
	case domain.TxCheckIn, domain.TxCheckOut, domain.TxAdjust:
	default:
		return nil, validationf("type must be one of check_in, check_out, adjust")
	}
	if in.Quantity <= 0 {
		return nil, validationf("quantity must be positive, got %d", in.Quantity)
	}
	if _, err := s.GetUnit(ctx, in.UnitID, clinicID); err != nil {
		return nil, err
	}

	txn := domain.Transaction{
		ID:          NewID(),
		ClinicID:    clinicID,
		UnitID:      in.UnitID,
		UserID:      userID,
		Type:        in.Type,
		Quantity:    in.Quantity,
		PatientName: in.PatientName,
		PatientDOB:  in.PatientDOB,
		Notes:       in.Notes,
		CreatedAt:   Now(),
	}
	if err := s.store.InsertTransaction(ctx, &txn); err != nil {
		return nil, persistence("record transaction", err)
	}
	return &txn, nil
}

// TransactionPage is a paginated ledger listing.
type TransactionPage struct {
	Transactions []domain.TransactionDetail `json:"transactions"`
	Total        int64                      `json:"total"`
	Page         int                        `json:"page"`
	PageSize     int                        `json:"page_size"`
}

// ListTransactions returns a page of ledger entries, newest first. As with
// unit listings, the free-text filter runs against the fetched page only.
func (s *Service) ListTransactions(ctx context.Context, clinicID int64, page, pageSize int, search, unitID string) (*TransactionPage, error) {
	page, pageSize = normalizePage(page, pageSize)
	txns, err := s.store.ListTransactions(ctx, clinicID, unitID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, persistence("list transactions", err)
	}
	total, err := s.store.CountTransactions(ctx, clinicID, unitID)
	if err != nil {
		return nil, persistence("count transactions", err)
	}
	if search = strings.TrimSpace(search); search != "" {
		txns = filterTransactions(txns, search)
	}
	if txns == nil {
		txns = []domain.TransactionDetail{}
	}
	return &TransactionPage{Transactions: txns, Total: total, Page: page, PageSize: pageSize}, nil
}

func filterTransactions(txns []domain.TransactionDetail, search string) []domain.TransactionDetail {
	needle := strings.ToLower(search)
	matched := make([]domain.TransactionDetail, 0, len(txns))
	for _, t := range txns {
		fields := []string{
			strings.ToLower(t.Type),
			strings.ToLower(t.DrugName),
			strings.ToLower(t.GenericName),
			strings.ToLower(t.Username),
			strings.ToLower(t.UnitID),
			strconv.FormatInt(t.Quantity, 10),
		}
		if t.Notes != nil {
			fields = append(fields, strings.ToLower(*t.Notes))
		}
		if t.PatientName != nil {
			fields = append(fields, strings.ToLower(*t.PatientName))
		}
		for _, f := range fields {
			if strings.Contains(f, needle) {
				matched = append(matched, t)
				break
			}
		}
	}
	return matched
}

// UpdateTransaction is the administrative correction path: it edits the
// recorded quantity or notes only. It does NOT re-apply any quantity delta
// to the referenced unit — corrections are cosmetic audit fixes, not
// inventory movement.
func (s *Service) UpdateTransaction(ctx context.Context, txnID string, clinicID int64, quantity *int64, notes *string) (*domain.Transaction, error) {
	if quantity != nil && *quantity <= 0 {
		return nil, validationf("quantity must be positive")
	}
	if _, err := s.store.GetTransaction(ctx, txnID, clinicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "transaction", ID: txnID}
		}
		return nil, persistence("fetch transaction", err)
	}
	if err := s.store.UpdateTransaction(ctx, txnID, clinicID, quantity, notes); err != nil {
		return nil, persistence("update transaction", err)
	}
	txn, err := s.store.GetTransaction(ctx, txnID, clinicID)
	if err != nil {
		return nil, persistence("reload transaction", err)
	}
	return txn, nil
}
