// Package hierarchy loads the state/district/city input documents and the
// category list that together define the agent's work list.
package hierarchy

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one (state, district, cities) triple in document order. The work
// list is the cross product of entries, their cities, and the category list.
type Entry struct {
	State    string
	District string
	Cities   []string
}

// StateFilter restricts a load to a shard's subset of states. A nil filter
// allows everything.
type StateFilter map[string]struct{}

// NewStateFilter parses a comma-separated list of state names, matched
// case-insensitively. Empty input yields a nil (allow-all) filter.
func NewStateFilter(csv string) StateFilter {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	f := make(StateFilter)
	for _, name := range strings.Split(csv, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			f[name] = struct{}{}
		}
	}
	return f
}

func (f StateFilter) Allows(state string) bool {
	if f == nil {
		return true
	}
	_, ok := f[strings.ToLower(state)]
	return ok
}

type stateDoc struct {
	Data []districtNode `json:"data"`
}

type districtNode struct {
	District string   `json:"district"`
	Places   []string `json:"places"`
}

// Load reads every per-state JSON document under <dir>/states and returns the
// entries in file order. Documents that fail to read or parse are logged and
// skipped; an empty result means there is nothing to do for this shard.
func Load(dir string, filter StateFilter) []Entry {
	files, _ := filepath.Glob(filepath.Join(dir, "states", "_", "*.json"))
	if len(files) == 0 {
		files, _ = filepath.Glob(filepath.Join(dir, "states", "*.json"))
	}
	if len(files) == 0 {
		slog.Error("no input files found", "dir", dir)
		return nil
	}
	sort.Strings(files)
	slog.Info("loading inputs", "files", len(files))

	var entries []Entry
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Error("failed to read input file", "path", path, "error", err)
			continue
		}

		var doc map[string]stateDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			slog.Error("failed to parse input file", "path", path, "error", err)
			continue
		}
		if len(doc) == 0 {
			continue
		}

		// Well-formed documents carry a single top-level state key; sort
		// for determinism in case a document carries more.
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		state := keys[0]

		if !filter.Allows(state) {
			slog.Info("skipping state outside shard filter", "state", state)
			continue
		}

		for _, d := range doc[state].Data {
			if len(d.Places) == 0 {
				continue
			}
			name := d.District
			if name == "" {
				name = "Unknown"
			}
			entries = append(entries, Entry{State: state, District: name, Cities: d.Places})
		}
	}
	return entries
}

// LoadCategories reads the flat category array at path, falling back to the
// given defaults on any failure so a missing list never sinks the run.
func LoadCategories(path string, fallback []string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("categories file unavailable, using defaults", "path", path, "error", err)
		return fallback
	}
	var categories []string
	if err := json.Unmarshal(raw, &categories); err != nil {
		slog.Warn("categories file unparseable, using defaults", "path", path, "error", err)
		return fallback
	}
	return categories
}
