package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// Report accumulates per-table results during the run and renders the final
// summary. It is the single source of truth for what succeeded: every
// table-scoped and row-scoped failure recorded during the run appears here.
type Report struct {
	Results  []TableResult
	Warnings []string
	Elapsed  time.Duration
}

func (r *Report) Add(res TableResult) {
	r.Results = append(r.Results, res)
}

// FullSuccess reports whether every table committed every row.
func (r *Report) FullSuccess() bool {
	for _, res := range r.Results {
		if !res.OK() {
			return false
		}
	}
	return true
}

// NothingMigrated reports whether no rows reached the target at all, which
// distinguishes a fatal outcome from a partial one.
func (r *Report) NothingMigrated() bool {
	for _, res := range r.Results {
		if res.RowsCommitted > 0 || res.OK() {
			return false
		}
	}
	return true
}

func (r *Report) totals() (attempted, committed int64) {
	for _, res := range r.Results {
		attempted += res.RowsAttempted
		committed += res.RowsCommitted
	}
	return attempted, committed
}

// Render writes the human-readable summary. Output order matches the table
// migration order, so successive runs over the same source are comparable.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintln(w, "migration report")

	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "  %-30s FAILED after %s rows: %v\n",
				res.Table, humanize.Comma(res.RowsCommitted), res.Err)
		case len(res.RowFailures) > 0:
			fmt.Fprintf(w, "  %-30s %s/%s rows in %s, %d row failure(s), first: row %d: %v\n",
				res.Table,
				humanize.Comma(res.RowsCommitted), humanize.Comma(res.RowsAttempted),
				res.Elapsed.Round(time.Millisecond),
				len(res.RowFailures),
				res.RowFailures[0].RowNumber, res.RowFailures[0].Err)
		default:
			fmt.Fprintf(w, "  %-30s %s/%s rows in %s\n",
				res.Table,
				humanize.Comma(res.RowsCommitted), humanize.Comma(res.RowsAttempted),
				res.Elapsed.Round(time.Millisecond))
		}
	}

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  WARN: %s\n", warn)
	}

	attempted, committed := r.totals()
	status := "complete"
	if !r.FullSuccess() {
		status = "partial — see failures above"
	}
	fmt.Fprintf(w, "%d table(s), %s/%s rows committed in %s: %s\n",
		len(r.Results),
		humanize.Comma(committed), humanize.Comma(attempted),
		r.Elapsed.Round(time.Millisecond), status)
}
