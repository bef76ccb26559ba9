package domain

// Transaction types.
const (
	TxCheckIn  = "check_in"
	TxCheckOut = "check_out"
	TxAdjust   = "adjust"
)

// Transaction is an immutable ledger entry recording a quantity-affecting
// event against a unit. Entries are append-only and outlive later mutations
// of the unit they reference.
type Transaction struct {
	ID          string  `db:"id" json:"id"`
	ClinicID    int64   `db:"clinic_id" json:"clinic_id"`
	UnitID      string  `db:"unit_id" json:"unit_id"`
	UserID      int64   `db:"user_id" json:"user_id"`
	Type        string  `db:"type" json:"type"`
	Quantity    int64   `db:"quantity" json:"quantity"`
	PatientName *string `db:"patient_name" json:"patient_name,omitempty"`
	PatientDOB  *string `db:"patient_dob" json:"patient_dob,omitempty"`
	Notes       *string `db:"notes" json:"notes,omitempty"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
}

// TransactionDetail is a Transaction joined with drug and user info for
// ledger listings.
type TransactionDetail struct {
	Transaction
	DrugName    string `db:"drug_name" json:"drug_name"`
	GenericName string `db:"generic_name" json:"generic_name"`
	Username    string `db:"username" json:"username"`
}
