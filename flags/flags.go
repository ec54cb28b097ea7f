package flags

import (
	"time"

	"github.com/urfave/cli/v2"
)

const envVarPrefix = "BEACON_PARTICIPATION_"

func prefixEnvVar(name string) []string {
	return []string{envVarPrefix + name}
}

// log flags, shared by all commands
var (
	LogLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "The lowest log level that will be output: trace, debug, info, warn, error, crit",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
	}
	LogFormatFlag = &cli.StringFlag{
		Name:    "log.format",
		Usage:   "Format the log output. Supported formats: 'text', 'terminal', 'json', 'json-pretty'",
		Value:   "text",
		EnvVars: prefixEnvVar("LOG_FORMAT"),
	}
	LogColorFlag = &cli.BoolFlag{
		Name:    "log.color",
		Usage:   "Color the log output",
		EnvVars: prefixEnvVar("LOG_COLOR"),
	}
)

var LogFlags = []cli.Flag{
	LogLevelFlag,
	LogFormatFlag,
	LogColorFlag,
}

// range flags
var (
	RangesFlag = &cli.StringFlag{
		Name:    "ranges",
		Usage:   "Validator ranges document, JSON or one '<range> <name>' per line. Exclusive with ranges.source",
		EnvVars: prefixEnvVar("RANGES"),
	}
	RangesSourceFlag = &cli.StringFlag{
		Name:    "ranges.source",
		Usage:   "Local path or http(s) URL of the validator ranges document. Exclusive with ranges",
		EnvVars: prefixEnvVar("RANGES_SOURCE"),
	}
)

var RangesFlags = []cli.Flag{
	RangesFlag,
	RangesSourceFlag,
}

// run flags
var (
	BeaconURLFlag = &cli.StringFlag{
		Name:     "beacon.url",
		Usage:    "Beacon node HTTP API endpoint",
		EnvVars:  prefixEnvVar("BEACON_URL"),
		Required: true,
	}
	BeaconHeaderFlag = &cli.StringSliceFlag{
		Name:    "beacon.header",
		Usage:   "Extra 'Name: value' header to send to the beacon node, can be repeated",
		EnvVars: prefixEnvVar("BEACON_HEADERS"),
	}
	BeaconTimeoutFlag = &cli.DurationFlag{
		Name:    "beacon.timeout",
		Usage:   "Timeout of a single beacon node request, including the state download",
		EnvVars: prefixEnvVar("BEACON_TIMEOUT"),
		Value:   time.Minute * 2,
	}
	DumpFlag = &cli.BoolFlag{
		Name:    "dump",
		Usage:   "Print the participation table of every epoch to stdout",
		EnvVars: prefixEnvVar("DUMP"),
	}
	MetricsAddrFlag = &cli.StringFlag{
		Name:    "metrics.addr",
		Usage:   "Address to bind the metrics server to",
		EnvVars: prefixEnvVar("METRICS_ADDR"),
		Value:   "0.0.0.0",
	}
	MetricsPortFlag = &cli.IntFlag{
		Name:    "metrics.port",
		Usage:   "Port to bind the metrics server to",
		EnvVars: prefixEnvVar("METRICS_PORT"),
		Value:   8080,
	}
	DBFlag = &cli.PathFlag{
		Name:      "db",
		Usage:     "Optional level db dir to persist the last published values in",
		EnvVars:   prefixEnvVar("DB"),
		TakesFile: true,
	}
)

var RunFlags = append([]cli.Flag{
	BeaconURLFlag,
	BeaconHeaderFlag,
	BeaconTimeoutFlag,
	DumpFlag,
	MetricsAddrFlag,
	MetricsPortFlag,
	DBFlag,
}, append(RangesFlags, LogFlags...)...)

// decode flags
var (
	StateFlag = &cli.PathFlag{
		Name:      "state",
		Usage:     "Path to a beacon state: .ssz, .ssz_snappy, an .era file, or a dir of .era files to read the latest state of",
		EnvVars:   prefixEnvVar("STATE"),
		TakesFile: true,
		Required:  true,
	}
	PresetFlag = &cli.StringFlag{
		Name:    "preset",
		Usage:   "Chain config preset of the state: mainnet or minimal. Ignored if spec is set",
		EnvVars: prefixEnvVar("PRESET"),
		Value:   "mainnet",
	}
	SpecFlag = &cli.PathFlag{
		Name:      "spec",
		Usage:     "Path to a chain config JSON file, as served by /eth/v1/config/spec",
		EnvVars:   prefixEnvVar("SPEC"),
		TakesFile: true,
	}
)

var DecodeFlags = append([]cli.Flag{
	StateFlag,
	PresetFlag,
	SpecFlag,
}, append(RangesFlags, LogFlags...)...)
