package domain

// Location kinds.
const (
	LocationRefrigerated = "refrigerated"
	LocationRoomTemp     = "room_temperature"
)

type Location struct {
	ID        string `db:"id" json:"id"`
	ClinicID  int64  `db:"clinic_id" json:"clinic_id"`
	Name      string `db:"name" json:"name"`
	Kind      string `db:"kind" json:"kind"`
	CreatedAt string `db:"created_at" json:"created_at"`
}
