// Package main implements a fork-choice simulator. It synthesizes a
// stake-weighted validator population, grows a randomized fork tree, and runs
// every round through the production tower, replay, and confidence stack.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/logutil"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/params"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/tracing"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/version"
)

var log = logrus.WithField("prefix", "main")

var (
	validatorsFlag = &cli.IntFlag{
		Name:  "validators",
		Usage: "Number of staked validators in the synthetic cluster.",
		Value: 64,
	}
	roundsFlag = &cli.Uint64Flag{
		Name:  "rounds",
		Usage: "Number of fork-choice rounds to simulate, one bank per round.",
		Value: 128,
	}
	forkRateFlag = &cli.Float64Flag{
		Name:  "fork-rate",
		Usage: "Per-round probability that the next bank forks off a non-heaviest parent.",
		Value: 0.1,
	}
	stakeSkewFlag = &cli.Float64Flag{
		Name:  "stake-skew",
		Usage: "Stake distribution exponent. 0 gives every validator equal stake.",
		Value: 2,
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed for the simulation's random source.",
		Value: 42,
	}
	chainConfigFileFlag = &cli.StringFlag{
		Name:  "chain-config-file",
		Usage: "The path to a YAML file with tower chain config values.",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info, warn, error, fatal, panic).",
		Value: "info",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Specify log formatting. Supports: text, json, fluentd.",
		Value: "text",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Specify log file name, relative or absolute.",
	}
	enableTracingFlag = &cli.BoolFlag{
		Name:  "enable-tracing",
		Usage: "Enable request tracing.",
	}
	tracingProcessNameFlag = &cli.StringFlag{
		Name:  "tracing-process-name",
		Usage: "The name to apply to tracing tag \"process_name\"",
	}
	tracingEndpointFlag = &cli.StringFlag{
		Name:  "tracing-endpoint",
		Usage: "Tracing endpoint defines where simulation traces are exposed to Jaeger.",
		Value: "http://127.0.0.1:14268/api/traces",
	}
	traceSampleFractionFlag = &cli.Float64Flag{
		Name:  "trace-sample-fraction",
		Usage: "Indicate what fraction of fork-choice rounds are sampled for tracing.",
		Value: 0.20,
	}
)

var appFlags = []cli.Flag{
	validatorsFlag,
	roundsFlag,
	forkRateFlag,
	stakeSkewFlag,
	seedFlag,
	chainConfigFileFlag,
	verbosityFlag,
	logFormatFlag,
	logFileFlag,
	enableTracingFlag,
	tracingProcessNameFlag,
	tracingEndpointFlag,
	traceSampleFractionFlag,
}

func runSimulation(cliCtx *cli.Context) error {
	verbosity := cliCtx.String(verbosityFlag.Name)
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if err := tracing.Setup(
		"forksim", // Service name.
		cliCtx.String(tracingProcessNameFlag.Name),
		cliCtx.String(tracingEndpointFlag.Name),
		cliCtx.Float64(traceSampleFractionFlag.Name),
		cliCtx.Bool(enableTracingFlag.Name),
	); err != nil {
		return err
	}

	cfg := &SimulatorConfig{
		Validators: cliCtx.Int(validatorsFlag.Name),
		Rounds:     cliCtx.Uint64(roundsFlag.Name),
		ForkRate:   cliCtx.Float64(forkRateFlag.Name),
		StakeSkew:  cliCtx.Float64(stakeSkewFlag.Name),
		Seed:       cliCtx.Int64(seedFlag.Name),
	}
	ctx := context.Background()
	sim, err := NewSimulator(ctx, cfg)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"validators": cfg.Validators,
		"rounds":     cfg.Rounds,
		"forkRate":   cfg.ForkRate,
		"stakeSkew":  cfg.StakeSkew,
		"seed":       cfg.Seed,
	}).Info("Starting fork-choice simulation")
	return sim.Run(ctx)
}

func main() {
	app := cli.App{}
	app.Name = "forksim"
	app.Usage = "runs synthetic vote traffic through the tower fork-choice stack"
	app.Version = version.GetVersion()
	app.Flags = appFlags
	app.Action = runSimulation
	app.Before = func(ctx *cli.Context) error {
		format := ctx.String(logFormatFlag.Name)
		switch format {
		case "text":
			formatter := new(prefixed.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			// If persistent log files are written - we disable the log messages coloring because
			// the colors are ANSI codes and seen as Gibberish in the log files.
			formatter.DisableColors = ctx.String(logFileFlag.Name) != ""
			logrus.SetFormatter(formatter)
		case "fluentd":
			logrus.SetFormatter(joonix.NewFormatter())
		case "json":
			logrus.SetFormatter(&logrus.JSONFormatter{})
		default:
			return fmt.Errorf("unknown log format %s", format)
		}

		logFileName := ctx.String(logFileFlag.Name)
		if logFileName != "" {
			if err := logutil.ConfigurePersistentLogging(logFileName, format); err != nil {
				log.WithError(err).Error("Failed to configuring logging to disk.")
			}
		}

		if chainConfigFileName := ctx.String(chainConfigFileFlag.Name); chainConfigFileName != "" {
			if err := params.LoadChainConfigFile(chainConfigFileName); err != nil {
				return err
			}
		}

		runtime.GOMAXPROCS(runtime.NumCPU())
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
