package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/protolambda/beacon-participation/flags"
	"github.com/protolambda/beacon-participation/ranges"
)

// loadGroups reads the validator ranges from the ranges or ranges.source flag.
// If optional is set and neither flag is given, nil groups are returned.
func loadGroups(ctx *cli.Context, optional bool) (ranges.IndexGroups, error) {
	literal := ctx.String(flags.RangesFlag.Name)
	source := ctx.String(flags.RangesSourceFlag.Name)
	switch {
	case literal != "" && source != "":
		return nil, fmt.Errorf("only one of --%s and --%s can be set", flags.RangesFlag.Name, flags.RangesSourceFlag.Name)
	case literal == "" && source == "":
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("one of --%s and --%s is required", flags.RangesFlag.Name, flags.RangesSourceFlag.Name)
	}
	doc := literal
	if source != "" {
		reqCtx, cancel := context.WithTimeout(ctx.Context, time.Second*30)
		defer cancel()
		var err error
		doc, err = ranges.Load(reqCtx, &http.Client{}, source)
		if err != nil {
			return nil, fmt.Errorf("failed to load ranges: %w", err)
		}
	}
	groups, err := ranges.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ranges: %w", err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("ranges document defines no ranges")
	}
	return groups, nil
}
