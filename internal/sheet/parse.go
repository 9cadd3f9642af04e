package sheet

import (
	"strings"

	"afisha/internal/identity"
	appLog "afisha/internal/log"
	"afisha/internal/model"
)

// Positional columns of the export. The sheet has no stable header names, so
// position is the contract.
const (
	colID = iota
	colDate
	colTitle
	colLocation
	colTime
	colTags
	colShortDescription
	colFullDescription
	colContacts
)

// Stats summarizes a normalization pass.
type Stats struct {
	Processed int
	Skipped   int
}

// NormalizeRows converts raw CSV records into the fixed Row shape. The first
// record is the header and the next skipTemplate records are the sheet's
// template/example rows; both are dropped. Rows with a malformed identifier
// or a blank date/title/location are skipped with a warning.
func NormalizeRows(records [][]string, skipTemplate int) ([]model.Row, Stats) {
	var rows []model.Row
	var stats Stats

	for i, rec := range records {
		if i == 0 || i <= skipTemplate {
			continue
		}

		row, ok := normalizeRow(rec, i)
		if !ok {
			stats.Skipped++
			continue
		}
		rows = append(rows, row)
		stats.Processed++
	}

	return rows, stats
}

func normalizeRow(rec []string, index int) (model.Row, bool) {
	row := model.Row{
		Date:             field(rec, colDate),
		Title:            field(rec, colTitle),
		Location:         field(rec, colLocation),
		Time:             field(rec, colTime),
		Tags:             field(rec, colTags),
		ShortDescription: field(rec, colShortDescription),
		FullDescription:  field(rec, colFullDescription),
		Contacts:         field(rec, colContacts),
	}

	// Explicit identifier: empty is fine (an identifier will be derived),
	// but a present non-integer value marks a broken row.
	if raw := field(rec, colID); raw != "" {
		id, ok := identity.NormalizeExplicit(raw)
		if !ok {
			appLog.Warn("row has malformed identifier, skipping", "row", index, "id", raw)
			return model.Row{}, false
		}
		row.ExplicitID = id
	}

	if row.Date == "" || row.Title == "" || row.Location == "" {
		appLog.Warn("row is missing required fields, skipping",
			"row", index, "id", row.ExplicitID,
			"date", row.Date, "title", row.Title, "location", row.Location)
		return model.Row{}, false
	}

	// Address cleanup: exports wrap some locations in literal quotes.
	row.Location = strings.TrimSpace(strings.Trim(row.Location, `"`))
	if row.Location == "" {
		appLog.Warn("row location is empty after cleanup, skipping", "row", index, "id", row.ExplicitID)
		return model.Row{}, false
	}

	return row, true
}

func field(rec []string, idx int) string {
	if idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}
