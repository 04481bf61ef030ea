package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

const titlePrefix = "IBD_"

// Directory is the slice of the storage collaborator the router needs to
// map states to spreadsheets.
type Directory interface {
	OpenByTitle(ctx context.Context, title string) (id string, found bool, err error)
	CreateSpreadsheet(ctx context.Context, title string) (string, error)
	Share(ctx context.Context, spreadsheetID, email string) error
}

// Router maps each state to its dedicated spreadsheet, creating and sharing
// one on first encounter. Resolved contexts are memoized; the agent is
// single-threaded, so no locking is needed.
type Router struct {
	dir        Directory
	adminEmail string
	cache      map[string]TableContext
}

func NewRouter(dir Directory, adminEmail string) *Router {
	return &Router{dir: dir, adminEmail: adminEmail, cache: make(map[string]TableContext)}
}

// ForState resolves the spreadsheet for a state and returns it as an
// explicit TableContext value.
func (r *Router) ForState(ctx context.Context, state string) (TableContext, error) {
	if tctx, ok := r.cache[state]; ok {
		return tctx, nil
	}

	title := SheetTitle(state)
	id, found, err := r.dir.OpenByTitle(ctx, title)
	if err != nil {
		return TableContext{}, fmt.Errorf("looking up spreadsheet %q: %w", title, err)
	}

	if !found {
		slog.InfoContext(ctx, "creating state spreadsheet", "title", title)
		id, err = r.dir.CreateSpreadsheet(ctx, title)
		if err != nil {
			return TableContext{}, fmt.Errorf("creating spreadsheet %q: %w", title, err)
		}
		if r.adminEmail == "" {
			slog.WarnContext(ctx, "ADMIN_EMAIL not set, spreadsheet stays hidden in the service account drive", "title", title)
		} else if err := r.dir.Share(ctx, id, r.adminEmail); err != nil {
			// The data is safe either way; sharing can be fixed by hand.
			slog.WarnContext(ctx, "failed to share spreadsheet", "title", title, "email", r.adminEmail, "error", err)
		}
	}

	tctx := TableContext{SpreadsheetID: id, Title: title}
	r.cache[state] = tctx
	return tctx, nil
}

// SheetTitle derives the deterministic spreadsheet title for a state:
// alphanumerics kept, everything else replaced with underscores, with the
// fixed dataset prefix.
func SheetTitle(state string) string {
	var b strings.Builder
	b.WriteString(titlePrefix)
	for _, c := range state {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
