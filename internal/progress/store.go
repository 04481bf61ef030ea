// Package progress persists the agent's resume position as a single
// overwritten record in a dedicated worksheet on the control spreadsheet.
package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	worksheet   = "System_Memory"
	keyCell     = worksheet + "!A2"
	valueCell   = worksheet + "!B2"
	progressKey = "CURRENT_PROGRESS"
	description = "Tracks where the agent stopped"
	timeLayout  = "2006-01-02 15:04:05"
)

var memoryHeader = []string{"KEY", "VALUE", "LAST_UPDATED", "DESCRIPTION"}

// Position is the fixed-shape checkpoint payload: the indices of the next
// work unit to process. Unknown keys in a stored payload are ignored on
// load, so stale deployments cannot smuggle schema drift in.
type Position struct {
	StateIdx int `json:"state_idx"`
	DistIdx  int `json:"dist_idx"`
	CityIdx  int `json:"city_idx"`
	CatIdx   int `json:"cat_idx"`
}

// CellStore is the slice of the storage collaborator the checkpoint needs.
type CellStore interface {
	WorksheetRowCount(ctx context.Context, spreadsheetID, worksheet string) (count int, found bool, err error)
	CreateWorksheet(ctx context.Context, spreadsheetID, worksheet string, header []string) error
	ReadCell(ctx context.Context, spreadsheetID, a1 string) (value string, found bool, err error)
	UpdateRow(ctx context.Context, spreadsheetID, a1 string, values []string) error
}

// Store reads and writes the singleton checkpoint record. Both operations
// are deliberately infallible from the caller's point of view: a checkpoint
// that cannot be read restarts the run from zero, and a checkpoint that
// cannot be written only risks redundant re-fetch after the next restart.
type Store struct {
	cells         CellStore
	spreadsheetID string
	now           func() time.Time
}

func New(cells CellStore, spreadsheetID string) *Store {
	return &Store{cells: cells, spreadsheetID: spreadsheetID, now: time.Now}
}

// Load returns the stored position, or the zero position when the record is
// absent, unreadable, or corrupt.
func (s *Store) Load(ctx context.Context) Position {
	s.ensure(ctx)

	val, found, err := s.cells.ReadCell(ctx, s.spreadsheetID, valueCell)
	if err != nil {
		slog.WarnContext(ctx, "checkpoint load failed, resuming from start", "error", err)
		return Position{}
	}
	if !found || val == "" {
		return Position{}
	}

	var p Position
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		slog.WarnContext(ctx, "checkpoint payload corrupt, resuming from start", "value", val, "error", err)
		return Position{}
	}
	return p
}

// Save overwrites the live checkpoint record. Failures are logged and
// swallowed; the current unit's rows are already durably appended by the
// time Save runs.
func (s *Store) Save(ctx context.Context, p Position) {
	s.ensure(ctx)

	blob, err := json.Marshal(p)
	if err != nil {
		slog.WarnContext(ctx, "checkpoint save failed", "error", err)
		return
	}

	row := []string{progressKey, string(blob), s.now().Format(timeLayout), description}
	if err := s.cells.UpdateRow(ctx, s.spreadsheetID, keyCell, row); err != nil {
		slog.WarnContext(ctx, "checkpoint save failed", "error", err)
	}
}

// ensure lazily creates the memory worksheet with its header on first use.
func (s *Store) ensure(ctx context.Context) {
	_, found, err := s.cells.WorksheetRowCount(ctx, s.spreadsheetID, worksheet)
	if err != nil {
		slog.WarnContext(ctx, "checkpoint worksheet probe failed", "error", err)
		return
	}
	if found {
		return
	}
	if err := s.cells.CreateWorksheet(ctx, s.spreadsheetID, worksheet, memoryHeader); err != nil {
		slog.WarnContext(ctx, "checkpoint worksheet creation failed", "error", err)
	}
}
