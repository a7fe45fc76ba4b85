package registry

import (
	"strings"
	"sync"
	"time"
)

// layouts is the fixed list of ISO-ish timestamp formats registry
// responses use, tried in order.
var layouts = []string{
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var layoutCache = struct {
	sync.RWMutex
	m map[string]string
}{m: make(map[string]string)}

// parseTime parses a registry timestamp by trying each known layout in
// order, normalizing a trailing "Z" to "+00:00" first, and always
// returning UTC with no monotonic reading. Results are cached by raw
// string to a known-good layout so repeated timestamps from one response
// don't re-walk the layout list.
func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	normalized := raw
	if strings.HasSuffix(normalized, "Z") {
		normalized = strings.TrimSuffix(normalized, "Z") + "+00:00"
	}

	layoutCache.RLock()
	if layout, ok := layoutCache.m[raw]; ok {
		layoutCache.RUnlock()
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.UTC(), true
		}
	} else {
		layoutCache.RUnlock()
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			layoutCache.Lock()
			layoutCache.m[raw] = layout
			layoutCache.Unlock()
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseEpochMillis converts Unix epoch milliseconds to UTC time.
func parseEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// dedupMaintainers deduplicates maintainer names case-insensitively,
// trimmed, preserving first-seen order, per ReleaseMetadata.MaintainerCount.
func dedupMaintainers(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
