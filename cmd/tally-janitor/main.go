package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/tallyhq/tally/pkg/activity"
	"github.com/tallyhq/tally/pkg/config"
	"github.com/tallyhq/tally/pkg/observability"
	"github.com/tallyhq/tally/pkg/storage/postgres"
)

var (
	purgeSchedule  = flag.String("purge-schedule", "30 0 * * *", "Cron schedule for retention cleanup (default: 00:30 UTC)")
	exportSchedule = flag.String("export-schedule", "5 0 * * *", "Cron schedule for daily export (default: 00:05 UTC)")
	exportDir      = flag.String("export-dir", "/var/lib/tally/exports", "Directory for export archives")
	exportFormats  = flag.String("export-formats", "ndjson,csv", "Comma-separated archive formats (json, csv, ndjson)")
	exportActions  = flag.String("export-actions", "", "Comma-separated action tags to export; empty exports everything")
	runOnce        = flag.Bool("run-once", false, "Run purge and export once and exit")
	exportDate     = flag.String("date", "", "Date to export (YYYY-MM-DD). Defaults to yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	store, err := activity.NewDBStore(db)
	if err != nil {
		logger.WithError(err).Error("failed to initialize activity store")
		os.Exit(1)
	}

	janitor := &janitor{
		store:         store,
		logger:        logger,
		retentionDays: cfg.Activity.RetentionDays,
		exportDir:     *exportDir,
		formats:       parseFormats(*exportFormats),
		actions:       parseActions(*exportActions),
	}

	if *runOnce {
		date := time.Now().UTC().AddDate(0, 0, -1)
		if *exportDate != "" {
			date, err = time.Parse("2006-01-02", *exportDate)
			if err != nil {
				logger.WithError(err).Error("invalid --date value")
				os.Exit(1)
			}
		}

		ctx := context.Background()
		if err := janitor.exportDay(ctx, date); err != nil {
			logger.WithError(err).Error("export failed")
			os.Exit(1)
		}
		if err := janitor.purge(ctx); err != nil {
			logger.WithError(err).Error("purge failed")
			os.Exit(1)
		}
		logger.Info("janitor run complete")
		return
	}

	c := cron.New()

	if _, err := c.AddFunc(*exportSchedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		if err := janitor.exportDay(context.Background(), yesterday); err != nil {
			logger.WithError(err).Errorf("daily export failed for %s", yesterday.Format("2006-01-02"))
		}
	}); err != nil {
		logger.WithError(err).Error("failed to schedule export job")
		os.Exit(1)
	}

	if _, err := c.AddFunc(*purgeSchedule, func() {
		if err := janitor.purge(context.Background()); err != nil {
			logger.WithError(err).Error("retention cleanup failed")
		}
	}); err != nil {
		logger.WithError(err).Error("failed to schedule purge job")
		os.Exit(1)
	}

	c.Start()
	logger.Infof("tally janitor started (export %q, purge %q, retention %d days)",
		*exportSchedule, *purgeSchedule, cfg.Activity.RetentionDays)

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.OnShutdown("cron", func(ctx context.Context) error {
		stopped := c.Stop()
		select {
		case <-stopped.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err := shutdown.Wait(); err != nil {
		logger.WithError(err).Error("janitor shutdown error")
		os.Exit(1)
	}
}

type janitor struct {
	store         activity.Store
	logger        *observability.Logger
	retentionDays int
	exportDir     string
	formats       []activity.ExportFormat
	actions       []activity.Action
}

// exportManifest describes one day's archive set.
type exportManifest struct {
	Date       string         `yaml:"date"`
	ExportedAt time.Time      `yaml:"exported_at"`
	EntryCount int            `yaml:"entry_count"`
	Actions    []string       `yaml:"actions,omitempty"`
	Files      []manifestFile `yaml:"files"`
}

type manifestFile struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"`
	Bytes  int    `yaml:"bytes"`
}

// exportDay archives every entry recorded on the given calendar day.
func (j *janitor) exportDay(ctx context.Context, date time.Time) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	filter := activity.Filter{
		StartDate: &day,
		EndDate:   &day,
		Actions:   j.actions,
	}

	entries, err := j.collect(ctx, filter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		j.logger.Infof("no activity to export for %s", day.Format("2006-01-02"))
		return nil
	}

	dir := filepath.Join(j.exportDir, day.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	manifest := exportManifest{
		Date:       day.Format("2006-01-02"),
		ExportedAt: time.Now().UTC(),
		EntryCount: len(entries),
	}
	for _, a := range j.actions {
		manifest.Actions = append(manifest.Actions, string(a))
	}

	for _, format := range j.formats {
		data, err := activity.Export(entries, format)
		if err != nil {
			return err
		}
		name := "activity." + string(format)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s archive: %w", format, err)
		}
		manifest.Files = append(manifest.Files, manifestFile{
			Name:   name,
			Format: string(format),
			Bytes:  len(data),
		})
	}

	manifestData, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), manifestData, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	j.logger.Infof("exported %d entries for %s to %s", len(entries), manifest.Date, dir)
	return nil
}

// collect pages through the store until the filter window is exhausted.
func (j *janitor) collect(ctx context.Context, filter activity.Filter) ([]*activity.Entry, error) {
	var entries []*activity.Entry
	page := activity.Page{Page: 1, Limit: activity.MaxPageLimit}
	for {
		result, err := j.store.Query(ctx, filter, page)
		if err != nil {
			return nil, fmt.Errorf("failed to query activity: %w", err)
		}
		entries = append(entries, result.Entries...)
		if !result.PageInfo.HasNext {
			return entries, nil
		}
		page.Page++
	}
}

// purge removes entries older than the retention horizon. Retention of zero
// means entries are kept forever.
func (j *janitor) purge(ctx context.Context) error {
	if j.retentionDays <= 0 {
		return nil
	}
	horizon := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	removed, err := j.store.Purge(ctx, horizon)
	if err != nil {
		return fmt.Errorf("failed to purge activity: %w", err)
	}
	j.logger.Infof("purged %d activity entries older than %s", removed, horizon.Format("2006-01-02"))
	return nil
}

func parseFormats(raw string) []activity.ExportFormat {
	var formats []activity.ExportFormat
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			formats = append(formats, activity.ExportFormat(trimmed))
		}
	}
	if len(formats) == 0 {
		formats = []activity.ExportFormat{activity.ExportFormatNDJSON}
	}
	return formats
}

func parseActions(raw string) []activity.Action {
	var actions []activity.Action
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			actions = append(actions, activity.Action(trimmed))
		}
	}
	return actions
}
