// Package runner drives the work list one unit at a time: fetch, append,
// checkpoint. It owns resume-on-restart and the politeness pacing between
// units.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bizscout/internal/hierarchy"
	"bizscout/internal/logger"
	"bizscout/internal/places"
	"bizscout/internal/progress"
	"bizscout/internal/report"
	"bizscout/internal/sink"
)

type Engine interface {
	FetchUnit(ctx context.Context, u places.Unit) ([]places.Record, error)
}

type Router interface {
	ForState(ctx context.Context, state string) (sink.TableContext, error)
}

type Appender interface {
	Append(ctx context.Context, tctx sink.TableContext, records []places.Record, base string) error
}

type Checkpoints interface {
	Load(ctx context.Context) progress.Position
	Save(ctx context.Context, p progress.Position)
}

type Reporter interface {
	DistrictCompleted(ctx context.Context, state, district string, stats report.DistrictStats)
}

type Runner struct {
	engine      Engine
	router      Router
	sink        Appender
	checkpoints Checkpoints
	reporter    Reporter // nil disables district reports

	baseWorksheet string
	delay         time.Duration
	sleep         func(time.Duration)
}

func New(engine Engine, router Router, appender Appender, checkpoints Checkpoints, reporter Reporter, baseWorksheet string, delay time.Duration) *Runner {
	return &Runner{
		engine:        engine,
		router:        router,
		sink:          appender,
		checkpoints:   checkpoints,
		reporter:      reporter,
		baseWorksheet: baseWorksheet,
		delay:         delay,
		sleep:         time.Sleep,
	}
}

// Run processes the work list in document order, resuming at the checkpoint
// position. The checkpoint always stores the indices of the next unit to
// run and is written strictly after the completed unit's rows are appended,
// so a crash between append and checkpoint re-fetches at most one unit.
//
// A fatal provider rejection or a storage append failure aborts the run
// with the checkpoint still pointing at the failed unit; a restart picks up
// exactly there.
func (r *Runner) Run(ctx context.Context, entries []hierarchy.Entry, categories []string) error {
	ctx = logger.WithRunID(ctx, uuid.NewString())

	ordinals := stateOrdinals(entries)
	pos := r.checkpoints.Load(ctx)
	slog.InfoContext(ctx, "starting run",
		"districts", len(entries), "categories", len(categories),
		"entry_idx", pos.DistIdx, "city_idx", pos.CityIdx, "cat_idx", pos.CatIdx)

	for di := pos.DistIdx; di < len(entries); di++ {
		entry := entries[di]

		tctx, err := r.router.ForState(ctx, entry.State)
		if err != nil {
			return fmt.Errorf("routing state %q: %w", entry.State, err)
		}

		slog.InfoContext(ctx, "starting district", "district", entry.District, "state", entry.State, "cities", len(entry.Cities))
		stats := make(report.DistrictStats)

		startCity := 0
		if di == pos.DistIdx {
			startCity = pos.CityIdx
		}
		for ci := startCity; ci < len(entry.Cities); ci++ {
			startCat := 0
			if di == pos.DistIdx && ci == pos.CityIdx {
				startCat = pos.CatIdx
			}
			for ki := startCat; ki < len(categories); ki++ {
				unit := places.Unit{
					State:    entry.State,
					District: entry.District,
					City:     entry.Cities[ci],
					Category: categories[ki],
				}

				records, err := r.engine.FetchUnit(ctx, unit)
				if err != nil {
					return fmt.Errorf("unit %s/%s: %w", unit.City, unit.Category, err)
				}

				if len(records) > 0 {
					if err := r.sink.Append(ctx, tctx, records, r.baseWorksheet); err != nil {
						return fmt.Errorf("persisting unit %s/%s: %w", unit.City, unit.Category, err)
					}
					stats.Add(unit.City, unit.Category, len(records))
				}

				// Checkpoint only after the unit's rows are durable.
				r.checkpoints.Save(ctx, nextPosition(entries, categories, ordinals, di, ci, ki))
				r.sleep(r.delay)
			}
		}

		if r.reporter != nil && len(stats) > 0 {
			r.reporter.DistrictCompleted(ctx, entry.State, entry.District, stats)
		}
	}

	slog.InfoContext(ctx, "run complete")
	return nil
}

// nextPosition computes the indices of the unit after (di, ci, ki), rolling
// over cities and entries in document order. Past the final unit it points
// one entry beyond the list, which a subsequent run treats as nothing to do.
func nextPosition(entries []hierarchy.Entry, categories []string, ordinals map[string]int, di, ci, ki int) progress.Position {
	ki++
	if ki >= len(categories) {
		ki = 0
		ci++
	}
	if ci >= len(entries[di].Cities) {
		ci = 0
		di++
	}

	stateIdx := 0
	if di < len(entries) {
		stateIdx = ordinals[entries[di].State]
	} else if len(entries) > 0 {
		stateIdx = ordinals[entries[len(entries)-1].State]
	}

	return progress.Position{StateIdx: stateIdx, DistIdx: di, CityIdx: ci, CatIdx: ki}
}

// stateOrdinals numbers distinct states by first appearance in load order.
// The ordinal is informational, for operators reading the checkpoint row.
func stateOrdinals(entries []hierarchy.Entry) map[string]int {
	ordinals := make(map[string]int)
	for _, e := range entries {
		if _, ok := ordinals[e.State]; !ok {
			ordinals[e.State] = len(ordinals)
		}
	}
	return ordinals
}
