// Package report builds per-district completion summaries, emails them, and
// logs their stats to a worksheet on the control spreadsheet. Every failure
// here is logged and swallowed: reporting must never stop the run.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	reportsWorksheet = "Reports"
	timeLayout       = "2006-01-02 15:04"
)

var reportsHeader = []string{"TIMESTAMP", "STATE", "DISTRICT", "CITY", "CATEGORY", "COUNT"}

// DistrictStats counts appended records per city and category within one
// district.
type DistrictStats map[string]map[string]int

func (s DistrictStats) Add(city, category string, n int) {
	if s[city] == nil {
		s[city] = make(map[string]int)
	}
	s[city][category] += n
}

func (s DistrictStats) Total() int {
	total := 0
	for _, cats := range s {
		for _, n := range cats {
			total += n
		}
	}
	return total
}

// Mailer delivers one HTML message. Implemented by ResendMailer.
type Mailer interface {
	Send(ctx context.Context, subject, html string) error
}

// StatsStore is the slice of the storage collaborator the reporter needs.
type StatsStore interface {
	WorksheetRowCount(ctx context.Context, spreadsheetID, worksheet string) (count int, found bool, err error)
	CreateWorksheet(ctx context.Context, spreadsheetID, worksheet string, header []string) error
	AppendRows(ctx context.Context, spreadsheetID, worksheet string, rows [][]string) error
}

type Notifier struct {
	mailer         Mailer // nil disables email
	store          StatsStore
	controlSheetID string
	now            func() time.Time
}

func NewNotifier(mailer Mailer, store StatsStore, controlSheetID string) *Notifier {
	return &Notifier{mailer: mailer, store: store, controlSheetID: controlSheetID, now: time.Now}
}

// DistrictCompleted fires after the last unit of a district finishes.
func (n *Notifier) DistrictCompleted(ctx context.Context, state, district string, stats DistrictStats) {
	slog.InfoContext(ctx, "district completed", "district", district, "state", state, "records", stats.Total())

	if n.mailer != nil {
		subject := fmt.Sprintf("Data fetch complete: %s, %s", district, state)
		if err := n.mailer.Send(ctx, subject, buildHTML(state, district, stats, n.now())); err != nil {
			slog.WarnContext(ctx, "district report email failed", "district", district, "error", err)
		}
	}

	if err := n.logStats(ctx, state, district, stats); err != nil {
		slog.WarnContext(ctx, "district report stats logging failed", "district", district, "error", err)
	}
}

func (n *Notifier) logStats(ctx context.Context, state, district string, stats DistrictStats) error {
	_, found, err := n.store.WorksheetRowCount(ctx, n.controlSheetID, reportsWorksheet)
	if err != nil {
		return err
	}
	if !found {
		if err := n.store.CreateWorksheet(ctx, n.controlSheetID, reportsWorksheet, reportsHeader); err != nil {
			return err
		}
	}

	stamp := n.now().Format(timeLayout)
	var rows [][]string
	for _, city := range sortedKeys(stats) {
		cats := stats[city]
		for _, cat := range sortedCatKeys(cats) {
			rows = append(rows, []string{stamp, state, district, city, cat, strconv.Itoa(cats[cat])})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return n.store.AppendRows(ctx, n.controlSheetID, reportsWorksheet, rows)
}

func buildHTML(state, district string, stats DistrictStats, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Fetch completed: %s, %s</h2>", district, state)
	fmt.Fprintf(&b, "<p>The agent has finished processing all cities in <b>%s</b>.</p>", district)
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li><b>Total new records:</b> %d</li>", stats.Total())
	fmt.Fprintf(&b, "<li><b>Cities processed:</b> %d</li>", len(stats))
	fmt.Fprintf(&b, "<li><b>Timestamp:</b> %s</li>", now.Format(timeLayout))
	b.WriteString("</ul>")

	b.WriteString("<table border=\"1\" cellpadding=\"4\"><tr><th>City</th><th>Category</th><th>Count</th></tr>")
	for _, city := range sortedKeys(stats) {
		cats := stats[city]
		for _, cat := range sortedCatKeys(cats) {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td></tr>", city, cat, cats[cat])
		}
	}
	b.WriteString("</table>")
	return b.String()
}

func sortedKeys(m DistrictStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCatKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
