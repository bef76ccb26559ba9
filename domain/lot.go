package domain

// Lot groups units received together from one donation source. MaxCapacity,
// when set, caps the sum of total_quantity across member units; the cap is
// enforced at unit check-in only.
type Lot struct {
	ID          string  `db:"id" json:"id"`
	ClinicID    int64   `db:"clinic_id" json:"clinic_id"`
	LocationID  string  `db:"location_id" json:"location_id"`
	Source      string  `db:"source" json:"source"`
	Note        *string `db:"note" json:"note,omitempty"`
	MaxCapacity *int64  `db:"max_capacity" json:"max_capacity,omitempty"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
}
