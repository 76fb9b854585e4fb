// Package main is the yams-sim command. It runs a configured mechanism in simulation and serves its
// telemetry.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/yams/config"
	"go.viam.com/yams/internal/pump"
	"go.viam.com/yams/logging"
	"go.viam.com/yams/mechanism"
	"go.viam.com/yams/telemetry"
	"go.viam.com/yams/telemetry/networktables"
)

const (
	// Flags.
	flagConfig    = "config"
	flagDebug     = "debug"
	flagLogLevel  = "log-level"
	flagSetpoint  = "setpoint"
	flagDuration  = "duration"
	flagListen    = "listen"
	flagVerbosity = "verbosity"
	flagTimeout   = "phase-timeout"
	flagPlot      = "plot"
)

func main() {
	var logger logging.Logger

	app := &cli.App{
		Name:  "yams-sim",
		Usage: "simulate and tune a mechanism",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("yams-sim")
			} else {
				logger = logging.NewLogger("yams-sim")
			}
			if c.IsSet(flagLogLevel) {
				level, err := logging.LevelFromString(c.String(flagLogLevel))
				if err != nil {
					return err
				}
				logger.SetLevel(level)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the mechanism in simulation and serve its telemetry",
				Flags: []cli.Flag{
					configFlag(),
					&cli.Float64Flag{
						Name:  flagSetpoint,
						Usage: "closed loop position goal in meters or degrees",
					},
					&cli.DurationFlag{
						Name:  flagDuration,
						Value: 5 * time.Second,
						Usage: "how long to run",
					},
					&cli.StringFlag{
						Name:  flagListen,
						Value: ":5810",
						Usage: "telemetry server address, empty to disable",
					},
					verbosityFlag(),
					&cli.StringFlag{
						Name:  flagPlot,
						Usage: "write position and setpoint over time to `FILE` (png, svg or pdf)",
					},
				},
				Action: func(c *cli.Context) error {
					opts := runOptions{
						PlotPath:   c.String(flagPlot),
						ConfigPath: c.String(flagConfig),
						Verbosity:  c.String(flagVerbosity),
						Duration:   c.Duration(flagDuration),
						Listen:     c.String(flagListen),
					}
					if c.IsSet(flagSetpoint) {
						setpoint := c.Float64(flagSetpoint)
						opts.Setpoint = &setpoint
					}
					ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
					defer cancel()
					return run(ctx, opts, c.App.Writer, logger)
				},
			},
			{
				Name:  "selftest",
				Usage: "characterize the mechanism feedforward in simulation",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:  flagTimeout,
						Value: 3 * time.Second,
						Usage: "longest time spent in each self test phase",
					},
				},
				Action: func(c *cli.Context) error {
					return selfTest(c.String(flagConfig), c.Duration(flagTimeout), c.App.Writer, logger)
				},
			},
			{
				Name:  "fields",
				Usage: "print which telemetry fields the mechanism publishes",
				Flags: []cli.Flag{configFlag(), verbosityFlag()},
				Action: func(c *cli.Context) error {
					return fields(c.String(flagConfig), c.String(flagVerbosity), c.App.Writer, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagConfig,
		Aliases:  []string{"c"},
		Required: true,
		Usage:    "load mechanism configuration from `FILE`",
	}
}

func verbosityFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagVerbosity,
		Usage: "override the configured telemetry verbosity (LOW, MID, HIGH)",
	}
}

type runOptions struct {
	ConfigPath string
	Verbosity  string
	Setpoint   *float64
	Duration   time.Duration
	Listen     string
	PlotPath   string
}

// simulation is a mechanism built from a config file, with its telemetry instance.
type simulation struct {
	inst      *networktables.Instance
	mechanism *mechanism.Mechanism
}

func (s *simulation) step() error {
	err := s.mechanism.Periodic()
	s.mechanism.SimulationPeriodic()
	return err
}

func build(path, verbosity string, logger logging.Logger) (*simulation, error) {
	file, err := config.Read(path, logger)
	if err != nil {
		return nil, err
	}
	if verbosity != "" {
		if _, err := telemetry.VerbosityFromString(verbosity); err != nil {
			return nil, err
		}
		if file.Motor.Telemetry == nil {
			file.Motor.Telemetry = &config.TelemetryConfig{}
		}
		file.Motor.Telemetry.Verbosity = verbosity
		file.Motor.Telemetry.Fields = nil
	}
	file.Mechanism.Simulate = true

	smc, err := file.NewMotorController(logger.Sublogger("motor"))
	if err != nil {
		return nil, err
	}
	inst := networktables.NewInstance()
	m, err := file.NewMechanism(smc, inst.Table(""), logger.Sublogger(file.Mechanism.Name))
	if err != nil {
		return nil, err
	}
	return &simulation{inst: inst, mechanism: m}, nil
}

func run(ctx context.Context, opts runOptions, out io.Writer, logger logging.Logger) (err error) {
	sim, err := build(opts.ConfigPath, opts.Verbosity, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, sim.mechanism.Close())
	}()

	if opts.Listen != "" {
		server := networktables.NewServer(sim.inst, logger.Sublogger("telemetry"))
		if err := server.Start(opts.Listen); err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, server.Close())
		}()
	}

	if opts.Setpoint != nil {
		if err := sim.mechanism.SetPosition(*opts.Setpoint); err != nil {
			return errors.Wrap(err, "commanding setpoint")
		}
	}

	tr := &trace{m: sim.mechanism}
	tick := func() error {
		err := sim.step()
		tr.record()
		return err
	}
	if err := pump.New(sim.mechanism.Period()).RunFor(ctx, opts.Duration, tick); err != nil {
		return err
	}
	if opts.PlotPath != "" {
		if err := tr.save(opts.PlotPath); err != nil {
			return err
		}
	}

	logger.Infow("simulation finished",
		"state", sim.mechanism.State().String(),
		"position", sim.mechanism.Position(),
		"units", sim.mechanism.Units().Name)
	printEntries(out, sim.inst)
	return nil
}

func selfTest(path string, phaseTimeout time.Duration, out io.Writer, logger logging.Logger) (err error) {
	sim, err := build(path, "", logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, sim.mechanism.Close())
	}()

	if err := sim.mechanism.StartSelfTest(mechanism.SelfTestConfig{PhaseTimeout: phaseTimeout}); err != nil {
		return err
	}
	// Four phases, each bounded by the phase timeout, plus slack.
	maxTicks := int(5*phaseTimeout/sim.mechanism.Period()) + 1
	p := pump.New(sim.mechanism.Period())
	for i := 0; i < maxTicks && sim.mechanism.State() == mechanism.SelfTest; i++ {
		if err := p.Steps(1, sim.step); err != nil {
			return err
		}
	}
	result, ok := sim.mechanism.SelfTestResult()
	if !ok {
		return errors.New("self test did not produce a result")
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"kS", "kV", "kA", "kG", "RMSE", "Samples"})
	c := result.Coefficients
	t.AppendRow(table.Row{c.KS, c.KV, c.KA, c.KG, result.RMSE, result.Samples})
	t.Render()
	return nil
}

func fields(path, verbosity string, out io.Writer, logger logging.Logger) (err error) {
	sim, err := build(path, verbosity, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, sim.mechanism.Close())
	}()
	fmt.Fprintln(out, sim.mechanism.Registry().String())
	fmt.Fprintln(out, sim.mechanism.Registry().Summary())
	return nil
}

func printEntries(out io.Writer, inst *networktables.Instance) {
	entries := inst.Entries()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, k := range inst.Keys() {
		t.AppendRow(table.Row{k, entries[k]})
	}
	t.Render()
}
