package domain

type Drug struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	GenericName  string  `db:"generic_name" json:"generic_name"`
	Strength     float64 `db:"strength" json:"strength"`
	StrengthUnit string  `db:"strength_unit" json:"strength_unit"`
	Form         string  `db:"form" json:"form"`
	NDC          string  `db:"ndc" json:"ndc"`
}
