package mutate

import (
	"fmt"
	"io"

	"github.com/newtron-network/merakiops/pkg/cli"
)

// Report aggregates the outcomes of one run.
type Report struct {
	Applied  int
	Skipped  int
	Failed   int
	Outcomes []Outcome
}

func (r *Report) add(o Outcome) {
	switch o.State {
	case Applied:
		r.Applied++
	case Skipped:
		r.Skipped++
	case Failed:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Total is the number of mutations that reached a final state.
func (r *Report) Total() int {
	return len(r.Outcomes)
}

// Failures returns the failed outcomes in run order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.State == Failed {
			out = append(out, o)
		}
	}
	return out
}

// Summary is the one-line run total.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%d applied, %d failed", r.Applied, r.Failed)
	if r.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped (dry run)", r.Skipped)
	}
	return s
}

// Print writes the summary and, when any failed, a table of failures.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w)
	if r.Failed > 0 {
		fmt.Fprintln(w, cli.Red("Done: "+r.Summary()))
		t := cli.NewTableTo(w, "DEVICE", "TARGET", "STATUS", "REASON").WithPrefix("  ")
		for _, o := range r.Failures() {
			status := "-"
			if o.Status != 0 {
				status = fmt.Sprintf("%d", o.Status)
			}
			t.Row(o.Device, o.Target, status, o.Reason)
		}
		t.Flush()
		return
	}
	fmt.Fprintln(w, cli.Green("Done: "+r.Summary()))
}
