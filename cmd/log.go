package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/protolambda/beacon-participation/flags"
)

func SetupLogger(ctx *cli.Context) (log.Logger, error) {
	return NewLogger(os.Stdout, ctx.String(flags.LogLevelFlag.Name),
		ctx.String(flags.LogFormatFlag.Name), ctx.Bool(flags.LogColorFlag.Name))
}

func NewLogger(w io.Writer, lvlStr string, fmtStr string, color bool) (log.Logger, error) {
	var logFmt log.Format
	switch fmtStr {
	case "json":
		logFmt = log.JSONFormat()
	case "json-pretty":
		logFmt = log.JSONFormatEx(true, true)
	case "text", "terminal":
		logFmt = log.TerminalFormat(color)
	default:
		return nil, fmt.Errorf("unrecognized log format: %q", fmtStr)
	}

	lvl, err := log.LvlFromString(strings.ToLower(lvlStr))
	if err != nil {
		return nil, fmt.Errorf("unrecognized log level: %w", err)
	}
	handler := log.StreamHandler(w, logFmt)
	handler = log.SyncHandler(handler)
	handler = log.LvlFilterHandler(lvl, handler)
	logger := log.New()
	logger.SetHandler(handler)
	return logger, nil
}
