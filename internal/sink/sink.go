// Package sink persists normalized records into capacity-bounded worksheet
// segments, rotating to a new suffix when the active segment fills, and
// routes each state to its own spreadsheet.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"bizscout/internal/places"
)

// Store is the slice of the storage collaborator the sink needs. Row counts
// include the header row; AppendRows is a single batch that either fully
// lands or fully fails.
type Store interface {
	WorksheetRowCount(ctx context.Context, spreadsheetID, worksheet string) (count int, found bool, err error)
	CreateWorksheet(ctx context.Context, spreadsheetID, worksheet string, header []string) error
	AppendRows(ctx context.Context, spreadsheetID, worksheet string, rows [][]string) error
}

// TableContext identifies the spreadsheet a batch of records belongs to. It
// is an explicit value handed to every Append call; the sink holds no
// current-table state, so independent shards and tests can use one sink with
// different contexts.
type TableContext struct {
	SpreadsheetID string
	Title         string
}

// Header is the fixed 11-column layout of every segment.
var Header = []string{
	"SR_NO", "NAME", "CATEGORY", "ADDRESS", "CITY", "STATE",
	"PHONE", "WEBSITE", "HASWEBSITE", "RATING", "DATASOURCE",
}

type Sink struct {
	store    Store
	capacity int
}

// New builds a sink that rotates segments once their row count reaches
// capacity (header included).
func New(store Store, capacity int) *Sink {
	return &Sink{store: store, capacity: capacity}
}

// Append writes all records as one batch into the active segment of the
// base worksheet family, assigning serial numbers from the segment's current
// row count. Empty input is a no-op. Any storage error means no rows landed.
func (s *Sink) Append(ctx context.Context, tctx TableContext, records []places.Record, base string) error {
	if len(records) == 0 {
		return nil
	}

	worksheet, count, err := s.activeSegment(ctx, tctx, base)
	if err != nil {
		return err
	}

	// The header occupies row 1, so the first data row gets serial 1 and
	// the serial equals the row count at the moment of the write.
	rows := make([][]string, len(records))
	for i, r := range records {
		r.SerialNumber = count + i
		rows[i] = recordRow(r)
	}

	if err := s.store.AppendRows(ctx, tctx.SpreadsheetID, worksheet, rows); err != nil {
		return fmt.Errorf("appending to %s/%s: %w", tctx.Title, worksheet, err)
	}
	slog.InfoContext(ctx, "appended records", "rows", len(rows), "spreadsheet", tctx.Title, "worksheet", worksheet)
	return nil
}

// activeSegment probes base, base_2, base_3, ... and returns the first
// segment with room, creating the next one (header first) when all existing
// segments are full. The returned count is the segment's row count after any
// header write.
func (s *Sink) activeSegment(ctx context.Context, tctx TableContext, base string) (string, int, error) {
	for i := 1; ; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s_%d", base, i)
		}

		count, found, err := s.store.WorksheetRowCount(ctx, tctx.SpreadsheetID, name)
		if err != nil {
			return "", 0, fmt.Errorf("probing segment %q: %w", name, err)
		}

		if !found {
			if err := s.store.CreateWorksheet(ctx, tctx.SpreadsheetID, name, Header); err != nil {
				return "", 0, fmt.Errorf("creating segment %q: %w", name, err)
			}
			slog.InfoContext(ctx, "created new segment", "spreadsheet", tctx.Title, "worksheet", name)
			return name, 1, nil
		}

		if count >= s.capacity {
			slog.WarnContext(ctx, "segment full, rotating", "worksheet", name, "rows", count)
			continue
		}

		if count == 0 {
			// Pre-created but never written: give it its header.
			if err := s.store.AppendRows(ctx, tctx.SpreadsheetID, name, [][]string{Header}); err != nil {
				return "", 0, fmt.Errorf("writing header of %q: %w", name, err)
			}
			count = 1
		}
		return name, count, nil
	}
}

func recordRow(r places.Record) []string {
	hasWebsite := "No"
	if r.HasWebsite {
		hasWebsite = "Yes"
	}
	return []string{
		strconv.Itoa(r.SerialNumber),
		r.Name,
		r.Category,
		r.Address,
		r.City,
		r.State,
		r.Phone,
		r.Website,
		hasWebsite,
		strconv.FormatFloat(r.Rating, 'f', -1, 64),
		r.DataSource,
	}
}
