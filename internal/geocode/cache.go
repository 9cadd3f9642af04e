package geocode

import (
	"encoding/json"
	"os"
	"sync"

	appLog "afisha/internal/log"
	"afisha/internal/metrics"
	"afisha/internal/model"
)

// Region is the sanity bounding box for resolved coordinates. A cached pair
// outside the box is treated as corrupt and evicted.
type Region struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (r Region) Contains(c model.Coordinates) bool {
	return c.Lat >= r.MinLat && c.Lat <= r.MaxLat &&
		c.Lon >= r.MinLon && c.Lon <= r.MaxLon
}

// Cache is the persistent address -> coordinates mapping. A nil entry value
// is the "unresolved" sentinel: resolution was attempted and failed, and the
// address will not be re-queried. Cached values always win over
// re-resolution, so manual corrections in the file take priority.
//
// The on-disk form is a JSON object mapping the trimmed address to
// [lat, lon] or [null, null].
type Cache struct {
	mu      sync.Mutex
	path    string
	region  Region
	entries map[string]*model.Coordinates

	// snapshot of entries as loaded, to skip needless writes.
	snapshot map[string]*model.Coordinates
}

// NewCache creates an empty cache persisted at path.
func NewCache(path string, region Region) *Cache {
	return &Cache{
		path:     path,
		region:   region,
		entries:  make(map[string]*model.Coordinates),
		snapshot: make(map[string]*model.Coordinates),
	}
}

// diskEntry is the two-element [lat, lon] array; both nil means unresolved.
type diskEntry [2]*float64

// Load reads the backing file. A missing or corrupt file yields an empty
// cache with a warning, never an error: the run then simply re-resolves.
func (c *Cache) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*model.Coordinates)

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			appLog.Info("geocode cache file not found, starting fresh", "path", c.path)
		} else {
			appLog.Warn("geocode cache unreadable, starting fresh", "path", c.path, "err", err)
		}
		c.snapshot = snapshotOf(c.entries)
		return
	}

	var raw map[string]diskEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		appLog.Warn("geocode cache corrupt, starting fresh", "path", c.path, "err", err)
		c.snapshot = snapshotOf(c.entries)
		return
	}

	for addr, e := range raw {
		switch {
		case e[0] == nil && e[1] == nil:
			c.entries[addr] = nil
		case e[0] != nil && e[1] != nil:
			c.entries[addr] = &model.Coordinates{Lat: *e[0], Lon: *e[1]}
		default:
			// Half-populated pair violates the entry invariant; drop it.
			appLog.Warn("geocode cache entry partially populated, discarding", "address", addr)
		}
	}

	c.snapshot = snapshotOf(c.entries)
	appLog.Info("geocode cache loaded", "path", c.path, "addresses", len(c.entries))
}

// Lookup returns the cached coordinates for the trimmed address. attempted is
// false when the address has never been resolved; coords is nil for the
// unresolved sentinel. A resolved pair outside the region is evicted and
// reported as never-attempted so the caller re-queries it in the same run.
func (c *Cache) Lookup(address string) (coords *model.Coordinates, attempted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[address]
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if e == nil {
		metrics.CacheLookups.WithLabelValues("unresolved_hit").Inc()
		return nil, true
	}
	if !c.region.Contains(*e) {
		appLog.Warn("cached coordinates outside service region, evicting",
			"address", address, "lat", e.Lat, "lon", e.Lon)
		delete(c.entries, address)
		metrics.CacheLookups.WithLabelValues("evicted").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	cp := *e
	return &cp, true
}

// Put records the resolution outcome for an address, overwriting any prior
// entry. Pass nil to record the unresolved sentinel.
func (c *Cache) Put(address string, coords *model.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if coords == nil {
		c.entries[address] = nil
		return
	}
	cp := *coords
	c.entries[address] = &cp
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Save persists the cache when it differs from the loaded snapshot, or
// unconditionally when force is set. Skipping no-op writes keeps the file's
// modification time and version-control state quiet between unchanged runs.
func (c *Cache) Save(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && entriesEqual(c.entries, c.snapshot) {
		appLog.Info("geocode cache unchanged, skipping save", "path", c.path)
		return nil
	}

	raw := make(map[string]diskEntry, len(c.entries))
	for addr, e := range c.entries {
		if e == nil {
			raw[addr] = diskEntry{nil, nil}
			continue
		}
		lat, lon := e.Lat, e.Lon
		raw[addr] = diskEntry{&lat, &lon}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return err
	}

	c.snapshot = snapshotOf(c.entries)
	appLog.Info("geocode cache saved", "path", c.path, "addresses", len(c.entries))
	return nil
}

func snapshotOf(m map[string]*model.Coordinates) map[string]*model.Coordinates {
	out := make(map[string]*model.Coordinates, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = nil
			continue
		}
		cp := *v
		out[k] = &cp
	}
	return out
}

func entriesEqual(a, b map[string]*model.Coordinates) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			return false
		}
		if (va == nil) != (vb == nil) {
			return false
		}
		if va != nil && *va != *vb {
			return false
		}
	}
	return true
}
