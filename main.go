package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/protolambda/beacon-participation/cmd"
)

func main() {
	log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo, log.StreamHandler(os.Stdout, log.TerminalFormat(true))))

	app := cli.NewApp()
	app.Version = "0.1.0"
	app.Name = "beacon-participation"
	app.Usage = "Validator participation exporter by validator range"
	app.Description = "Decode the participation flags and inactivity scores of the beacon state every epoch, " +
		"and export them per validator range as prometheus metrics."
	app.Commands = []*cli.Command{
		cmd.RunCmd,
		cmd.DecodeCmd,
		cmd.RangesCmd,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
