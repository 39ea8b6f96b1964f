package main

import (
	"flag"
	"os"

	"legalflow/config"
	"legalflow/db"
	"legalflow/observability"
	"legalflow/services"
	"legalflow/services/jobs"

	"github.com/rs/zerolog/log"
)

// Runs the scheduled sweeps once, for cron hosts that don't keep the API
// process around. Without -job every sweep runs.
func main() {
	job := flag.String("job", "", "job to run: overdue_sweep, deadline_alerts or financial_reminders")
	flag.Parse()

	cfg := config.Load()
	config.ConfigureLogging(cfg)

	if err := db.Initialize(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	services.Metrics = observability.NewMetrics()
	runner := jobs.NewRunner(db.DB, services.NewResendMailer(cfg), cfg)

	var err error
	if *job == "" {
		err = runner.RunAll()
	} else {
		err = runner.Run(*job)
	}
	if err != nil {
		log.Error().Err(err).Msg("Job run failed")
		db.Close()
		os.Exit(1)
	}
	log.Info().Str("job", *job).Msg("Job run completed")
}
