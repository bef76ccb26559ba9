package domain

// Unit is a physical, trackable batch of one drug. TotalQuantity is fixed at
// check-in; AvailableQuantity only decreases through checkouts, except for
// explicit adjustments. Units are never deleted.
type Unit struct {
	ID                string  `db:"id" json:"id"`
	ClinicID          int64   `db:"clinic_id" json:"clinic_id"`
	DrugID            string  `db:"drug_id" json:"drug_id"`
	LotID             string  `db:"lot_id" json:"lot_id"`
	TotalQuantity     int64   `db:"total_quantity" json:"total_quantity"`
	AvailableQuantity int64   `db:"available_quantity" json:"available_quantity"`
	ExpiryDate        string  `db:"expiry_date" json:"expiry_date"`
	PatientID         *string `db:"patient_id" json:"patient_id,omitempty"`
	Notes             *string `db:"notes" json:"notes,omitempty"`
	LotNumber         *string `db:"lot_number" json:"lot_number,omitempty"`
	CreatedAt         string  `db:"created_at" json:"created_at"`
}

// UnitDetail is a Unit joined with its drug and lot for list and search
// responses.
type UnitDetail struct {
	Unit
	DrugName     string  `db:"drug_name" json:"drug_name"`
	GenericName  string  `db:"generic_name" json:"generic_name"`
	Strength     float64 `db:"strength" json:"strength"`
	StrengthUnit string  `db:"strength_unit" json:"strength_unit"`
	Form         string  `db:"form" json:"form"`
	NDC          string  `db:"ndc" json:"ndc"`
	LotSource    string  `db:"lot_source" json:"lot_source"`
	LotNote      *string `db:"lot_note" json:"lot_note,omitempty"`
	LocationID   string  `db:"location_id" json:"location_id"`
}
