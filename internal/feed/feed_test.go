package feed_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"afisha/internal/feed"
	"afisha/internal/model"
)

func TestCalendar_RendersEvents(t *testing.T) {
	events := []model.Event{
		{
			ID: "66.1", Date: "15.01", Title: "Jazz Night",
			Location: "ул. Мира, 5", Time: "19:00",
			ShortDescription: "Живая музыка", Contacts: "@jazz",
			Lat: 54.712, Lon: 20.507,
		},
	}

	out := feed.Calendar(events, 2026)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "BEGIN:VEVENT")
	assert.Contains(t, out, "UID:66.1@afisha")
	assert.Contains(t, out, "SUMMARY:Jazz Night")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20260115")
	assert.Contains(t, out, "GEO:")
}

func TestCalendar_SkipsMalformedDates(t *testing.T) {
	events := []model.Event{
		{ID: "bad", Date: "скоро", Title: "Unknown"},
		{ID: "ok", Date: "01.02", Title: "Known"},
	}

	out := feed.Calendar(events, 2026)

	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:ok@afisha")
	assert.NotContains(t, out, "UID:bad@afisha")
}

func TestCalendar_EmptyDataset(t *testing.T) {
	out := feed.Calendar(nil, 2026)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
