package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/danmuck/copycatwire/internal/config"
	"github.com/danmuck/copycatwire/internal/logging"
	"github.com/danmuck/copycatwire/internal/observability"
	"github.com/danmuck/copycatwire/internal/protocol"
)

const usage = `usage: wirectl [-config path] <command> [flags]

commands:
  sample   write one framed message of every type
  decode   read framed messages and log each one
  config   write or validate a config file
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "wirectl: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	codec  *protocol.Codec
	stdin  io.Reader
	stdout io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("wirectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "config file (.toml or .yaml)")
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	cfg := config.Default()
	logging.ApplyEnvOverrides(&cfg.Log)
	if path := strings.TrimSpace(*configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Log.Out = stderr

	a := &app{
		cfg:    cfg,
		logger: observability.InitLogger("wirectl", cfg.Log),
		stdin:  stdin,
		stdout: stdout,
	}
	a.codec = protocol.NewCodec(nil,
		protocol.WithLimits(cfg.Limits),
		protocol.WithLogger(a.logger),
		protocol.WithRecorder(observability.DefaultCodecMetrics(cfg.MetricsNamespace)),
	)

	switch rest[0] {
	case "sample":
		return a.sample(rest[1:])
	case "decode":
		return a.decode(rest[1:])
	case "config":
		return a.config(rest[1:])
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}
