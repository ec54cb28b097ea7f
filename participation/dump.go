package participation

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// WriteTable prints one row per group, ordered by group name.
func WriteTable(w io.Writer, summaries map[string]Summary) error {
	names := make([]string, 0, len(summaries))
	for name := range summaries {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "range\tvalidators\tsource\ttarget\thead\tinactivity")
	for _, name := range names {
		s := summaries[name]
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%.2f\n", name, s.Validators,
			percent(s.SourceRatio), percent(s.TargetRatio), percent(s.HeadRatio), s.InactivityScoresAvg)
	}
	return tw.Flush()
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
