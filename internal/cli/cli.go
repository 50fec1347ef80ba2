// Package cli implements the accelrt command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"accelrt/internal/config"
	"accelrt/internal/logging"
	"accelrt/internal/metrics"
	"accelrt/internal/plugin/dynload"
)

// Version is overridden at build time with -ldflags "-X accelrt/internal/cli.Version=...".
var Version = "dev"

// newLibrary builds the loader used by every command. Tests swap it for one
// backed by a fake platform.
var newLibrary = func(opts ...dynload.Option) *dynload.Library { return dynload.New(opts...) }

// app is the state shared by all subcommands of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	configFile string
	logLevel   string
	logJSON    bool

	cfg     config.Config
	log     zerolog.Logger
	reg     *prometheus.Registry
	plugins *metrics.Plugins
	buffers *metrics.Buffers
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, log: zerolog.Nop()}
}

// setup loads configuration, then applies flag overrides and builds the
// logger and metrics registry.
func (a *app) setup() error {
	cfg := config.Config{}
	if a.configFile != "" {
		c, err := config.Load(a.configFile)
		if err != nil {
			return err
		}
		cfg = c
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	} else if cfg.LogLevel == "" {
		cfg.LogLevel = logging.DefaultLevel()
	}
	cfg.ApplyDefaults()
	a.cfg = cfg
	a.log = logging.New(cfg.LogLevel, a.errOut, !a.logJSON)

	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.plugins = metrics.NewPlugins(a.reg)
	a.buffers = metrics.NewBuffers(a.reg)
	return nil
}

func (a *app) library() *dynload.Library {
	return newLibrary(dynload.WithLogger(a.log), dynload.WithMetrics(a.plugins))
}

// MainWithArgs runs the CLI with args (without the program name) and
// returns the process exit code.
func MainWithArgs(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, out, errOut io.Writer) int {
	a := newApp(out, errOut)
	root := buildRootCmd(a)
	if len(args) == 0 {
		_ = root.Usage()
		return 2
	}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}
