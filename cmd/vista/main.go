package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"Vista/agent"
	"Vista/config"
	"Vista/logger"
	"Vista/plugins/datasources"
	_ "Vista/plugins/datasources/all"
	_ "Vista/plugins/parsers/all"
)

func main() {
	app := &cli.App{
		Name:  "vista",
		Usage: "dashboard definition converter and execution server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the TOML configuration file",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			convertCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("E! %v", err))
		os.Exit(1)
	}
}

func loadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg := config.NewConfig()
	if path := cCtx.String("config"); path != "" {
		if err := cfg.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Action: func(cCtx *cli.Context) error {
			cfg, err := loadConfig(cCtx)
			if err != nil {
				return err
			}
			if err := logger.Setup(&logger.Config{
				Sink:         cfg.Logging.Sink,
				Level:        cfg.Logging.LogLevel(),
				InstanceName: cfg.Logging.InstanceName,
				Logfile:      cfg.Logging.File,
			}); err != nil {
				return err
			}
			defer logger.CloseLogging()

			creator, ok := datasources.DataSources[cfg.Tracker.DataSource]
			if !ok {
				return fmt.Errorf("unknown data source %q", cfg.Tracker.DataSource)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server, err := agent.NewServer(ctx, cfg, creator())
			if err != nil {
				return err
			}
			return server.Run(ctx)
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert a dashboard source file to the studio dialect",
		ArgsUsage: "<source-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "source dialect (simplexml or studio); sniffed when empty",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output file; standard output when empty",
			},
		},
		Action: func(cCtx *cli.Context) error {
			if cCtx.NArg() != 1 {
				return errors.New("expected exactly one source file argument")
			}
			raw, err := os.ReadFile(cCtx.Args().First())
			if err != nil {
				return err
			}
			encoded, err := agent.ConvertSource(raw, cCtx.String("from"))
			if err != nil {
				return err
			}
			if out := cCtx.String("out"); out != "" {
				return os.WriteFile(out, encoded, 0o644)
			}
			_, err = os.Stdout.Write(append(encoded, '\n'))
			return err
		},
	}
}
