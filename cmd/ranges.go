package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/protolambda/beacon-participation/flags"
)

var RangesCmd = &cli.Command{
	Name:        "ranges",
	Usage:       "Print the validator groups of a ranges document.",
	Description: "Parse a ranges document the same way the run command does, and print the resulting groups.",
	Action:      Ranges,
	Flags:       flags.RangesFlags,
}

func Ranges(ctx *cli.Context) error {
	groups, err := loadGroups(ctx, false)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "range\tvalidators\tfirst\tlast")
	for _, name := range groups.Names() {
		indices := groups[name]
		if len(indices) == 0 {
			fmt.Fprintf(tw, "%s\t0\t-\t-\n", name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", name, len(indices), indices[0], indices[len(indices)-1])
	}
	return tw.Flush()
}
