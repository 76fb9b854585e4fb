package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/yams/logging"
)

var elevatorConfig = filepath.Join("..", "..", "config", "data", "elevator.json5")

func TestFields(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var out bytes.Buffer
	test.That(t, fields(elevatorConfig, "LOW", &out, logger), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "Mechanism Position")
	test.That(t, out.String(), test.ShouldContainSubstring, "fields enabled")

	err := fields(elevatorConfig, "LOUD", &out, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRun(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var out bytes.Buffer
	setpoint := 1.0
	plotPath := filepath.Join(t.TempDir(), "run.png")
	err := run(context.Background(), runOptions{
		ConfigPath: elevatorConfig,
		Setpoint:   &setpoint,
		Duration:   100 * time.Millisecond,
		Listen:     "127.0.0.1:0",
		PlotPath:   plotPath,
	}, &out, logger)
	test.That(t, err, test.ShouldBeNil)
	info, err := os.Stat(plotPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
	test.That(t, out.String(), test.ShouldContainSubstring, "Mechanisms/ElevatorMotor/Mechanism Position")
	test.That(t, out.String(), test.ShouldContainSubstring, "Tuning/ElevatorMotor/kP")
}

func TestRunMissingConfig(t *testing.T) {
	logger := logging.NewTestLogger(t)
	err := run(context.Background(), runOptions{
		ConfigPath: filepath.Join("..", "..", "config", "data", "missing.json5"),
		Duration:   time.Millisecond,
	}, &bytes.Buffer{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
