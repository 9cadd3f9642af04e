// Package dataset persists the merged event list and reconciles each run's
// freshly computed events against it by stable identifier.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"afisha/internal/identity"
	appLog "afisha/internal/log"
	"afisha/internal/model"
)

// Load reads the persisted dataset. A missing or corrupt file yields an
// empty dataset with a warning; the reconciler then treats everything as
// added. Records written by older versions without an identifier get one
// derived from their content so they can be matched.
func Load(path string) []model.Event {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			appLog.Info("no existing dataset", "path", path)
		} else {
			appLog.Warn("dataset unreadable, starting empty", "path", path, "err", err)
		}
		return nil
	}

	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		appLog.Warn("dataset corrupt, starting empty", "path", path, "err", err)
		return nil
	}

	for i := range events {
		if events[i].ID == "" {
			events[i].ID = identity.Derive(events[i].Date, events[i].Title, events[i].Location)
			appLog.Info("assigned identifier to legacy event", "id", events[i].ID, "title", events[i].Title)
		}
	}

	appLog.Info("dataset loaded", "path", path, "events", len(events))
	return events
}

// Save writes the dataset as indented JSON. The caller decides whether an
// empty dataset should be written at all.
func Save(path string, events []model.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	appLog.Info("dataset saved", "path", path, "events", len(events))
	return nil
}

// Counts summarizes one reconciliation.
type Counts struct {
	Added   int
	Updated int
	Deleted int
}

// Reconcile merges fresh events into the previous dataset by identifier:
// matching identifiers are updated in place (fresh values win), new ones are
// added, identifiers absent from fresh are deleted. The merged dataset is
// sorted by date ascending, stable for equal dates.
func Reconcile(previous, fresh []model.Event) ([]model.Event, Counts) {
	freshByID := make(map[string]model.Event, len(fresh))
	for _, e := range fresh {
		freshByID[e.ID] = e
	}
	prevIDs := make(map[string]struct{}, len(previous))
	for _, e := range previous {
		prevIDs[e.ID] = struct{}{}
	}

	var counts Counts
	merged := make([]model.Event, 0, len(fresh))

	// Surviving previous records keep their relative order; the fresh copy
	// replaces the stored one field-by-field.
	for _, prev := range previous {
		if updated, ok := freshByID[prev.ID]; ok {
			merged = append(merged, updated)
			counts.Updated++
			appLog.Debug("event updated", "id", updated.ID, "title", updated.Title)
		} else {
			counts.Deleted++
			appLog.Info("event deleted", "id", prev.ID, "title", prev.Title)
		}
	}

	// Additions append in fresh order.
	for _, e := range fresh {
		if _, ok := prevIDs[e.ID]; ok {
			continue
		}
		merged = append(merged, e)
		counts.Added++
		appLog.Info("event added", "id", e.ID, "title", e.Title)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return dateSortKey(merged[i].Date) < dateSortKey(merged[j].Date)
	})

	return merged, counts
}

// dateSortKey orders DD.MM dates chronologically within the year-less
// calendar: month first, then day. Malformed dates sort last.
func dateSortKey(date string) int {
	day, month, ok := splitDate(date)
	if !ok {
		return 1<<31 - 1
	}
	return month*100 + day
}

func splitDate(date string) (day, month int, ok bool) {
	parts := strings.SplitN(date, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return day, month, true
}
