package main

import (
	"legalflow/config"
	"legalflow/db"
	"legalflow/models"
	"legalflow/services"

	"github.com/rs/zerolog/log"
)

// Assigns PROC-YYYY-NNNNN references to cases imported without one and
// re-saves clients so tax ids and phone digits are stored canonically.
func main() {
	// Load configuration
	cfg := config.Load()
	config.ConfigureLogging(cfg)

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	var cases []models.Case
	if err := db.DB.Where("reference = ? OR reference IS NULL", "").Order("created_at ASC").Find(&cases).Error; err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch cases")
	}

	if len(cases) == 0 {
		log.Info().Msg("No cases need a reference")
	} else {
		log.Info().Int("count", len(cases)).Msg("Generating case references")
	}

	for i, c := range cases {
		reference, err := services.GenerateCaseReference(db.DB, c.OfficeID, c.CreatedAt.Year())
		if err != nil {
			log.Error().Err(err).Str("case_id", c.ID).Msg("Failed to generate reference")
			continue
		}
		if err := db.DB.Model(&c).Update("reference", reference).Error; err != nil {
			log.Error().Err(err).Str("case_id", c.ID).Msg("Failed to update reference")
			continue
		}
		log.Info().Msgf("[%d/%d] %s -> %s", i+1, len(cases), c.FilingNumber, reference)
	}

	var clients []models.Client
	if err := db.DB.Find(&clients).Error; err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch clients")
	}
	normalized := 0
	for i := range clients {
		// BeforeSave recomputes the canonical fields
		if err := db.DB.Save(&clients[i]).Error; err != nil {
			log.Error().Err(err).Str("client_id", clients[i].ID).Msg("Failed to normalize client")
			continue
		}
		normalized++
	}

	log.Info().Int("cases", len(cases)).Int("clients", normalized).Msg("Backfill completed")
}
