package geocode

import (
	"encoding/json"
	"os"
	"sync"
)

// Attempt is one provider outcome for an address.
type Attempt struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

// AttemptLog collects per-address, per-provider geocoding outcomes for the
// current run. It is a write-only diagnostic artifact: it is never read back
// as state.
type AttemptLog struct {
	mu      sync.Mutex
	entries map[string]map[string]Attempt
}

func NewAttemptLog() *AttemptLog {
	return &AttemptLog{entries: make(map[string]map[string]Attempt)}
}

// Note records one attempt. Repeated attempts by the same provider for the
// same address overwrite the previous record.
func (l *AttemptLog) Note(address, provider string, success bool, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[address]; !ok {
		l.entries[address] = make(map[string]Attempt)
	}
	l.entries[address][provider] = Attempt{Success: success, Detail: detail}
}

// Reset clears all recorded attempts. Called at the start of each run.
func (l *AttemptLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]map[string]Attempt)
}

// Empty reports whether anything was recorded this run.
func (l *AttemptLog) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries) == 0
}

// WriteFile dumps the log as indented JSON.
func (l *AttemptLog) WriteFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
