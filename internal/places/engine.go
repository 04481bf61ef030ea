package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Searcher issues one provider query and returns its raw results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// Engine fetches one work unit: it runs every query variant for the unit's
// (category, city), merges the raw results, and dedupes them into records.
type Engine struct {
	searcher   Searcher
	variants   []string
	retryPause time.Duration
	sleep      func(time.Duration)
}

func NewEngine(searcher Searcher, variants []string, retryPause time.Duration) *Engine {
	return &Engine{
		searcher:   searcher,
		variants:   variants,
		retryPause: retryPause,
		sleep:      time.Sleep,
	}
}

// FetchUnit returns the deduplicated records for the unit. A fatal provider
// rejection aborts the unit with an ErrFatal-wrapped error and no partial
// results; transport failures are logged, paused on, and skipped so the
// remaining variants still run. Zero results is not an error.
func (e *Engine) FetchUnit(ctx context.Context, u Unit) ([]Record, error) {
	var raw []Place
	for _, variant := range e.variants {
		query := fmt.Sprintf(variant, u.Category, u.City)
		slog.InfoContext(ctx, "searching", "query", query)

		results, err := e.searcher.Search(ctx, query)
		if err != nil {
			if errors.Is(err, ErrFatal) {
				return nil, fmt.Errorf("fetching %q in %q: %w", u.Category, u.City, err)
			}
			slog.WarnContext(ctx, "search failed, skipping variant", "query", query, "error", err)
			e.sleep(e.retryPause)
			continue
		}
		if len(results) == 0 {
			slog.InfoContext(ctx, "no results for variant", "query", query)
			continue
		}
		raw = append(raw, results...)
	}

	records := Dedupe(raw, u)
	slog.InfoContext(ctx, "unit fetched", "city", u.City, "category", u.Category, "unique", len(records))
	return records, nil
}
