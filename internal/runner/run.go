// Package runner orchestrates one full sync cycle: fetch the sheet, expand
// dates, geocode locations, reconcile against the stored dataset and persist
// the results.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"afisha/internal/config"
	"afisha/internal/dataset"
	"afisha/internal/dates"
	"afisha/internal/geocode"
	"afisha/internal/identity"
	appLog "afisha/internal/log"
	"afisha/internal/metrics"
	"afisha/internal/model"
	"afisha/internal/sheet"
)

// RowSource yields the raw spreadsheet records for a run.
type RowSource interface {
	Fetch(ctx context.Context) ([][]string, error)
}

// Runner executes sync cycles. The cache, dataset file and attempt log are
// single-run state, so cycles never overlap: a Run that arrives while a
// previous one is still in flight is skipped, not queued.
type Runner struct {
	cfg      *config.Config
	source   RowSource
	resolver *geocode.Resolver
	cache    *geocode.Cache
	attempts *geocode.AttemptLog

	runMu sync.Mutex

	// ForceCacheSave makes the run write the cache file even when nothing
	// changed (used to normalize a hand-edited file).
	ForceCacheSave bool

	// OnDataset, if set, receives the merged dataset after a successful
	// run (e.g. to refresh the HTTP snapshot).
	OnDataset func([]model.Event)
}

func New(cfg *config.Config, source RowSource, resolver *geocode.Resolver, cache *geocode.Cache, attempts *geocode.AttemptLog) *Runner {
	return &Runner{
		cfg:      cfg,
		source:   source,
		resolver: resolver,
		cache:    cache,
		attempts: attempts,
	}
}

// Run executes one sync cycle. Only infrastructure failures (fetch, output
// writes) return an error; malformed rows and unresolvable addresses are
// skipped with warnings and the cycle completes with the rest. A cycle that
// outlasts the refresh interval makes the next tick a no-op instead of
// racing the in-flight one on the cache and output files.
func (r *Runner) Run(ctx context.Context) error {
	if !r.runMu.TryLock() {
		appLog.Warn("previous sync run still in progress, skipping this cycle")
		return nil
	}
	defer r.runMu.Unlock()

	runID := uuid.NewString()
	start := time.Now()
	appLog.Info("sync run starting", "run", runID)

	if r.attempts != nil {
		r.attempts.Reset()
	}

	records, err := r.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	rows, stats := sheet.NormalizeRows(records, r.cfg.Sheet.SkipRows)
	previous := dataset.Load(r.cfg.EventsFile)

	fresh := r.expandRows(ctx, rows, &stats)
	metrics.RowsSkipped.Add(float64(stats.Skipped))

	merged, counts := dataset.Reconcile(previous, fresh)

	metrics.RunEvents.WithLabelValues("added").Set(float64(counts.Added))
	metrics.RunEvents.WithLabelValues("updated").Set(float64(counts.Updated))
	metrics.RunEvents.WithLabelValues("deleted").Set(float64(counts.Deleted))
	metrics.DatasetSize.Set(float64(len(merged)))

	if len(merged) == 0 && len(previous) > 0 {
		// A sheet that suddenly produces nothing usually means a broken
		// export, not a cleared listing. Keep the stored dataset.
		appLog.Warn("run produced an empty dataset, keeping existing file",
			"run", runID, "previous", len(previous))
	} else if err := dataset.Save(r.cfg.EventsFile, merged); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	if err := r.cache.Save(r.ForceCacheSave); err != nil {
		return fmt.Errorf("run %s: save geocode cache: %w", runID, err)
	}

	// The attempt log is diagnostic only; failing to write it does not
	// fail the run.
	if r.cfg.Geocode.SaveLog && r.attempts != nil && !r.attempts.Empty() {
		if err := r.attempts.WriteFile(r.cfg.GeocodeLogFile); err != nil {
			appLog.Warn("failed to write geocode attempt log", "path", r.cfg.GeocodeLogFile, "err", err)
		}
	}

	if r.OnDataset != nil {
		r.OnDataset(merged)
	}

	elapsed := time.Since(start)
	metrics.RunDuration.Observe(elapsed.Seconds())
	metrics.LastSuccess.SetToCurrentTime()

	appLog.Info("sync run finished", "run", runID,
		"rows", stats.Processed, "skipped", stats.Skipped,
		"added", counts.Added, "updated", counts.Updated, "deleted", counts.Deleted,
		"events", len(merged), "elapsed", elapsed.Round(time.Millisecond))
	return nil
}

// expandRows turns normalized rows into one event per concrete date. A row
// whose date expression expands to nothing or whose address cannot be
// resolved is dropped whole.
func (r *Runner) expandRows(ctx context.Context, rows []model.Row, stats *sheet.Stats) []model.Event {
	var fresh []model.Event
	seen := make(map[string]int)

	for _, row := range rows {
		days := dates.Expand(row.Date)
		if len(days) == 0 {
			appLog.Warn("row date expression yields no dates, skipping",
				"id", row.ExplicitID, "title", row.Title, "date", row.Date)
			// The row counted as processed at normalization; it is now a skip.
			stats.Processed--
			stats.Skipped++
			continue
		}

		coords, ok := r.resolver.Resolve(ctx, row.Location)
		if !ok {
			appLog.Warn("row location could not be geocoded, skipping",
				"id", row.ExplicitID, "title", row.Title, "location", row.Location)
			stats.Processed--
			stats.Skipped++
			continue
		}

		base := row.ExplicitID
		if base == "" {
			base = identity.Derive(row.Date, row.Title, row.Location)
		}

		for i, day := range days {
			ev := model.Event{
				ID:               identity.ForDate(base, i+1, len(days)),
				Date:             day,
				Title:            row.Title,
				Location:         row.Location,
				Time:             row.Time,
				Tags:             row.Tags,
				ShortDescription: row.ShortDescription,
				FullDescription:  row.FullDescription,
				Contacts:         row.Contacts,
				Lat:              coords.Lat,
				Lon:              coords.Lon,
			}

			// Duplicate identifiers within one run: the later row wins,
			// keeping the first occurrence's position.
			if idx, dup := seen[ev.ID]; dup {
				appLog.Warn("duplicate event identifier in sheet, later row wins", "id", ev.ID)
				fresh[idx] = ev
				continue
			}
			seen[ev.ID] = len(fresh)
			fresh = append(fresh, ev)
		}
	}

	return fresh
}
