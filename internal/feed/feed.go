// Package feed renders the merged dataset as an iCalendar feed so the listing
// can be subscribed to from calendar clients.
package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	appLog "afisha/internal/log"
	"afisha/internal/model"
)

const productID = "-//afisha//event sync//RU"

// Calendar builds an all-day VEVENT per dataset event. Dates carry no year,
// so the caller supplies the year to anchor them (normally the current one).
// Events whose date cannot be parsed are skipped with a warning rather than
// breaking the whole feed.
func Calendar(events []model.Event, year int) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	now := time.Now().UTC()

	for _, ev := range events {
		start, ok := parseDate(ev.Date, year)
		if !ok {
			appLog.Warn("event date not renderable in feed, skipping", "id", ev.ID, "date", ev.Date)
			continue
		}

		item := cal.AddEvent(fmt.Sprintf("%s@afisha", ev.ID))
		item.SetDtStampTime(now)
		item.SetAllDayStartAt(start)
		item.SetAllDayEndAt(start.AddDate(0, 0, 1))
		item.SetSummary(ev.Title)
		item.SetLocation(ev.Location)
		item.SetDescription(description(ev))
		if ev.Lat != 0 || ev.Lon != 0 {
			item.SetGeo(ev.Lat, ev.Lon)
		}
	}

	return cal.Serialize()
}

func description(ev model.Event) string {
	var parts []string
	if ev.Time != "" {
		parts = append(parts, "Время: "+ev.Time)
	}
	if ev.ShortDescription != "" {
		parts = append(parts, ev.ShortDescription)
	}
	if ev.Contacts != "" {
		parts = append(parts, "Контакты: "+ev.Contacts)
	}
	return strings.Join(parts, "\n")
}

// parseDate turns a DD.MM date into a concrete day of the given year.
func parseDate(date string, year int) (time.Time, bool) {
	parts := strings.SplitN(date, ".", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
