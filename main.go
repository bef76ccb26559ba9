package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"carestock/m/internal/api"
	"carestock/m/internal/config"
	"carestock/m/internal/database"
	"carestock/m/internal/inventory"
	"carestock/m/internal/migrations"
	"carestock/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.LoadDrugs(db, cfg.SeedPath)

	svc := inventory.NewService(inventory.NewStore(db))
	handler := api.New(db, svc, cfg.Secret)

	log.Printf("CareStock inventory server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
