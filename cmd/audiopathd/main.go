// Command audiopathd loads a configuration document, constructs the
// audiocore Engine, and drives it through its lifecycle (spec.md §4.6,
// §6). Grounded on jivetalking's cmd/jivetalking/main.go kong wiring: a
// single CLI struct carrying shared flags plus one sub-command struct
// per verb, each with its own Run method, parsed once via kong.Parse.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/brightloom/audiopath/internal/audiocore"
	"github.com/brightloom/audiopath/internal/buildinfo"
	"github.com/brightloom/audiopath/internal/config"
	"github.com/brightloom/audiopath/internal/logging"
)

// version/buildDate/systemID are linked in at build time via
// -ldflags "-X main.version=... -X main.buildDate=... -X main.systemID=...".
var (
	version   = ""
	buildDate = ""
	systemID  = ""
)

// CLI is the root kong command: shared flags plus one sub-command
// struct per verb.
type CLI struct {
	Config string `short:"c" default:"audiopath.yaml" help:"Path to the engine configuration document."`

	Run      RunCmd      `cmd:"" help:"Load the configuration and run the engine until signaled."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration document without starting the engine."`
	Devices  DevicesCmd  `cmd:"" help:"List playback and capture devices visible to the audio driver."`
}

func main() {
	logging.Init()

	var cli CLI
	parser := kong.Must(&cli,
		kong.Name("audiopathd"),
		kong.Description("Realtime configurable audio processing engine"),
		kong.UsageOnError(),
		kong.Vars{"version": buildinfo.NewContext(version, buildDate, systemID).Version()},
	)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(&cli); err != nil {
		logging.ForService("audiopathd").Error("command failed", "error", err)
		os.Exit(1)
	}
}

// RunCmd loads the configuration, starts the engine, and blocks until
// SIGINT/SIGTERM, then runs the Stop -> Shutdown sequence (spec.md §4.6).
type RunCmd struct{}

func (r *RunCmd) Run(cli *CLI) error {
	logger := logging.ForService("audiopathd")

	doc, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("audiopathd: %w", err)
	}

	engine := audiocore.NewEngine()
	if err := engine.LoadConfig(doc); err != nil {
		return fmt.Errorf("audiopathd: load_config: %w", err)
	}
	engine.SubscribeEvents(func(ev audiocore.Event) {
		logEvent(logger, ev)
	})

	if err := engine.Start(); err != nil {
		return fmt.Errorf("audiopathd: start: %w", err)
	}
	logger.Info("engine running", "config", cli.Config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutdown signal received, stopping engine")
	if err := engine.Stop(); err != nil {
		logger.Warn("engine stop returned error", "error", err)
	}
	if err := engine.Shutdown(); err != nil {
		logger.Warn("engine shutdown returned error", "error", err)
	}
	return nil
}

// ValidateCmd loads and validates the configuration document without
// constructing the engine, so a deployment can check a config change
// before restarting the running process.
type ValidateCmd struct {
	Dump bool `help:"Print the effective configuration (file values plus defaults) as YAML."`
}

func (v *ValidateCmd) Run(cli *CLI) error {
	doc, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("audiopathd: %w", err)
	}
	if err := config.Validate(doc); err != nil {
		return fmt.Errorf("audiopathd: %w", err)
	}
	fmt.Printf("%s: valid (%d nodes, %d connections)\n", cli.Config, len(doc.Nodes), len(doc.Connections))
	if v.Dump {
		out, err := config.Dump(doc)
		if err != nil {
			return fmt.Errorf("audiopathd: %w", err)
		}
		fmt.Print(out)
	}
	return nil
}

// DevicesCmd enumerates the playback/capture devices the hardware
// driver sees, for filling in a configuration document's device_name.
type DevicesCmd struct {
	DriverDevice string `name:"driver-device" help:"Device name the driver context loads before enumerating."`
}

func (d *DevicesCmd) Run(cli *CLI) error {
	bridge := audiocore.NewHardwareBridge(nil)
	if err := bridge.Load(d.DriverDevice); err != nil {
		return fmt.Errorf("audiopathd: devices: %w", err)
	}
	defer bridge.Unload() //nolint:errcheck

	devices, err := bridge.ListDevices()
	if err != nil {
		return fmt.Errorf("audiopathd: devices: %w", err)
	}
	for _, dev := range devices {
		kind := "playback"
		if dev.IsCapture {
			kind = "capture"
		}
		fmt.Printf("%-10s %s\n", kind, dev.Name)
	}
	return nil
}

func logEvent(logger *slog.Logger, ev audiocore.Event) {
	attrs := []any{"kind", ev.Kind.String(), "node", ev.Node}
	if ev.Err != nil {
		attrs = append(attrs, "error", ev.Err)
	}
	if ev.Count != 0 {
		attrs = append(attrs, "count", ev.Count)
	}
	switch ev.Kind {
	case audiocore.EventHardwareFault, audiocore.EventFilterStall:
		logger.Warn("engine event", attrs...)
	default:
		logger.Info("engine event", attrs...)
	}
}
