package model

// Coordinates is a resolved geographic point.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Row is a normalized spreadsheet row before date expansion and geocoding.
// Column presence is resolved at the parsing boundary; downstream code can
// rely on this fixed shape.
type Row struct {
	// ExplicitID is the canonical integer form of the row's identifier
	// column, or "" when the column was empty (an identifier is then
	// derived from the row content).
	ExplicitID string

	Date             string // raw date expression, e.g. "15-17.01, 20.01"
	Title            string
	Location         string
	Time             string
	Tags             string
	ShortDescription string
	FullDescription  string
	Contacts         string
}

// Event represents one occurrence of a listed happening on one specific
// date. The JSON field names are the on-disk events.json contract and must
// stay stable across releases.
type Event struct {
	ID               string  `json:"id"`
	Date             string  `json:"date"` // DD.MM
	Title            string  `json:"title"`
	Location         string  `json:"location"`
	Time             string  `json:"time"`
	Tags             string  `json:"tags"`
	ShortDescription string  `json:"short_description"`
	FullDescription  string  `json:"full_description"`
	Contacts         string  `json:"contacts"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
}
