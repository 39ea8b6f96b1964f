package jobs

import (
	"time"

	"legalflow/config"
	"legalflow/services"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Job names, used as the metrics label.
const (
	JobDeadlineAlerts     = "deadline_alerts"
	JobFinancialReminders = "financial_reminders"
	JobOverdueSweep       = "overdue_sweep"
)

// Runner executes the sweeps against one database and mailer.
type Runner struct {
	DB     *gorm.DB
	Mailer services.Mailer
	Config *config.Config
	Now    func() time.Time
}

func NewRunner(database *gorm.DB, mailer services.Mailer, cfg *config.Config) *Runner {
	return &Runner{DB: database, Mailer: mailer, Config: cfg, Now: time.Now}
}

// Run executes a single job by name. Unknown names are reported as an error.
func (r *Runner) Run(name string) error {
	now := r.Now().In(r.Config.Location())
	var err error
	switch name {
	case JobDeadlineAlerts:
		_, err = SendDeadlineAlerts(r.DB, r.Mailer, r.Config, now)
	case JobFinancialReminders:
		_, err = SendFinancialReminders(r.DB, r.Mailer, r.Config, now)
	case JobOverdueSweep:
		_, err = MarkOverdue(r.DB, now)
	default:
		return &services.ValidationError{Field: "job", Message: "unknown job " + name}
	}
	services.Metrics.IncrJobRun(name, err)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
	}
	return err
}

// RunAll executes every job once, in dependency order: overdue marking first so
// the alert sweeps see stored statuses.
func (r *Runner) RunAll() error {
	var firstErr error
	for _, name := range []string{JobOverdueSweep, JobDeadlineAlerts, JobFinancialReminders} {
		if err := r.Run(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StartScheduler registers the sweeps on a cron running in the office
// timezone. The caller stops the returned cron on shutdown.
func StartScheduler(r *Runner) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(r.Config.Location()))

	specs := []struct {
		spec string
		job  string
	}{
		{r.Config.OverdueSweepSpec, JobOverdueSweep},
		{r.Config.DeadlineAlertSpec, JobDeadlineAlerts},
		{r.Config.FinancialReminderSpec, JobFinancialReminders},
	}
	for _, s := range specs {
		if s.spec == "" {
			continue
		}
		job := s.job
		if _, err := c.AddFunc(s.spec, func() { _ = r.Run(job) }); err != nil {
			return nil, err
		}
		log.Info().Str("job", job).Str("spec", s.spec).Msg("Scheduled job registered")
	}

	c.Start()
	return c, nil
}
