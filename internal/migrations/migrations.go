package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the inventory backend.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            clinic_id INTEGER,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(clinic_id) REFERENCES clinics(id)
        );`,
		`CREATE TABLE IF NOT EXISTS clinics (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            address TEXT,
            owner_id INTEGER,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(owner_id) REFERENCES users(id)
        );`,
		`CREATE TABLE IF NOT EXISTS drugs (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            generic_name TEXT,
            strength REAL NOT NULL,
            strength_unit TEXT NOT NULL,
            form TEXT,
            ndc TEXT NOT NULL,
            UNIQUE(ndc)
        );`,
		`CREATE TABLE IF NOT EXISTS locations (
            id TEXT PRIMARY KEY,
            clinic_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            kind TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(clinic_id) REFERENCES clinics(id)
        );`,
		`CREATE TABLE IF NOT EXISTS lots (
            id TEXT PRIMARY KEY,
            clinic_id INTEGER NOT NULL,
            location_id TEXT NOT NULL,
            source TEXT NOT NULL,
            note TEXT,
            max_capacity INTEGER,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(clinic_id) REFERENCES clinics(id),
            FOREIGN KEY(location_id) REFERENCES locations(id)
        );`,
		`CREATE TABLE IF NOT EXISTS units (
            id TEXT PRIMARY KEY,
            clinic_id INTEGER NOT NULL,
            drug_id TEXT NOT NULL,
            lot_id TEXT NOT NULL,
            total_quantity INTEGER NOT NULL,
            available_quantity INTEGER NOT NULL,
            expiry_date TEXT NOT NULL,
            patient_id TEXT,
            notes TEXT,
            lot_number TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(clinic_id) REFERENCES clinics(id),
            FOREIGN KEY(drug_id) REFERENCES drugs(id),
            FOREIGN KEY(lot_id) REFERENCES lots(id),
            CHECK(available_quantity >= 0),
            CHECK(available_quantity <= total_quantity)
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            clinic_id INTEGER NOT NULL,
            unit_id TEXT NOT NULL,
            user_id INTEGER NOT NULL,
            type TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            patient_name TEXT,
            patient_dob TEXT,
            notes TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(clinic_id) REFERENCES clinics(id),
            FOREIGN KEY(unit_id) REFERENCES units(id),
            FOREIGN KEY(user_id) REFERENCES users(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_units_clinic_drug ON units(clinic_id, drug_id, expiry_date);`,
		`CREATE INDEX IF NOT EXISTS idx_units_clinic_created ON units(clinic_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_clinic ON transactions(clinic_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_unit ON transactions(unit_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}
}
