package seed

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LoadDrugs ingests the CSV into the drugs catalog, ignoring duplicates.
// Expected columns: ndc, name, generic_name, strength, strength_unit, form.
func LoadDrugs(db *sqlx.DB, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load drug catalog %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read drug catalog header: %v", err)
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Printf("unable to start drug seed transaction: %v", err)
		return
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO drugs (id, name, generic_name, strength, strength_unit, form, ndc) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("unable to prepare drug insert: %v", err)
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read drug row: %v", err)
			continue
		}
		if len(record) < 6 {
			continue
		}
		ndc := strings.TrimSpace(record[0])
		name := strings.TrimSpace(record[1])
		generic := strings.TrimSpace(record[2])
		strength, _ := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		unit := strings.TrimSpace(record[4])
		form := strings.TrimSpace(record[5])

		if ndc == "" || name == "" || strength <= 0 {
			continue
		}

		if _, err := stmt.Exec(uuid.NewString(), name, generic, strength, unit, form, ndc); err != nil {
			log.Printf("unable to insert drug %s: %v", name, err)
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("unable to commit drug seed: %v", err)
	} else {
		log.Printf("seeded drug catalog with %d rows", rows)
	}
}
