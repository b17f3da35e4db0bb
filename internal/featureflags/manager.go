// Package featureflags evaluates runtime toggles from configuration.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// FeedCache gates Redis caching of anonymous feed pages.
const FeedCache = "feed_cache"

type rule struct {
	on      bool
	percent int // -1 when the rule is a plain switch
}

// Manager holds parsed flag rules, e.g. "feed_cache=on,new_sort=25%".
type Manager struct {
	rules map[string]rule
}

// NewManager parses a comma-separated list of name=value pairs. Malformed
// pairs are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			rules[name] = r
		}
	}
	return &Manager{rules: rules}
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{on: true, percent: -1}, true
	case "off", "false", "0":
		return rule{percent: -1}, true
	}
	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rule{}, false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil {
		return rule{}, false
	}
	return rule{percent: min(max(pct, 0), 100)}, true
}

// Enabled reports whether name is on for viewerID. Percentage rollouts are
// deterministic per viewer; anonymous viewers (0) only see flags at 100%.
func (m *Manager) Enabled(name string, viewerID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent < 0:
		return r.on
	case r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case viewerID == 0:
		return false
	}
	return bucket(name, viewerID) < r.percent
}

// Names lists configured flags in sorted order.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.rules))
	for name := range m.rules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Snapshot evaluates every configured flag for one viewer.
func (m *Manager) Snapshot(viewerID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, viewerID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, viewerID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), viewerID)
	return int(h.Sum32() % 100)
}
