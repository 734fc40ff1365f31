// Command expertpanel serves the panel of experts over HTTP, or answers a
// single question from the command line with -ask.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/expertpanel"
	"github.com/hupe1980/expertpanel/api"
	"github.com/hupe1980/expertpanel/config"
	"github.com/hupe1980/expertpanel/core"
)

func main() {
	configPath := flag.String("config", os.Getenv("EXPERTPANEL_CONFIG"), "path to a YAML or TOML config file")
	question := flag.String("ask", "", "answer one question and exit instead of serving HTTP")
	mode := flag.String("mode", string(expertpanel.ModePanel), "mode used with -ask (panel or chat)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *question, expertpanel.Mode(*mode), os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "expertpanel: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, question string, mode expertpanel.Mode, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnvOverrides(os.Getenv); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}

	logger := cfg.NewLogger()
	panelOpts, err := cfg.PanelOptions(cfg.Factory(os.Getenv), logger.WithComponent("panel"))
	if err != nil {
		return err
	}
	panel := expertpanel.New(panelOpts)

	if question != "" {
		reply, err := panel.Ask(ctx, expertpanel.Request{
			Mode:     mode,
			Messages: []core.Message{core.NewUserMessage(question)},
		})
		if err != nil {
			return errors.New(core.UserMessage(err))
		}
		_, err = fmt.Fprintln(out, reply.Text)
		return err
	}

	srv := api.NewServer(panel, func(o *api.Options) {
		o.Address = cfg.Server.Address
		o.ReadTimeout = cfg.Server.ReadTimeout
		o.WriteTimeout = cfg.Server.WriteTimeout
		o.ShutdownTimeout = cfg.Server.ShutdownTimeout
		o.MaxBodyBytes = cfg.Server.MaxBodyBytes
		o.Logger = logger.WithComponent("api")
	})
	return srv.Start(ctx)
}
