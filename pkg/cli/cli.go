package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/app"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/common"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/config"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/homeassistant"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"
)

const AppName = "homeassistant-printer-bridge"

type CLI struct {
	app    *app.Application
	logger *logrus.Logger
}

func NewCLI() *CLI {
	return &CLI{}
}

func (c *CLI) Run(args []string) error {
	cmd := &cli.Command{
		Name:    AppName,
		Usage:   "3D printer monitor bridge for Home Assistant",
		Version: common.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "config.yaml",
			},
			&cli.BoolFlag{
				Name:  "discover",
				Usage: "Discover printers and feeder units from entity names, print them and exit",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Set log level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Action: c.runApp,
	}

	return cmd.Run(context.Background(), args)
}

func (c *CLI) runApp(ctx context.Context, cmd *cli.Command) error {
	c.logger = c.setupLogger(cmd)

	configPath := cmd.String("config")
	if !cmd.IsSet("config") && configPath == "config.yaml" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if helpErr := cli.ShowAppHelp(cmd); helpErr != nil {
				return fmt.Errorf("failed to show help: %w", helpErr)
			}
			return fmt.Errorf("no configuration found - create config.yaml or specify with --config")
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	c.applyConfigLogging(cmd, cfg)

	if cmd.Bool("discover") {
		return c.runDiscovery(ctx, cfg)
	}

	c.logger.Infof("Starting %s v%s", AppName, common.GetVersion())

	c.app = app.NewApplication(cfg, c.logger, common.GetVersion())
	if err := c.app.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	shutdownCh := c.setupSignalHandling()

	if err := c.app.Start(); err != nil {
		return err
	}

	<-shutdownCh

	return c.app.Stop()
}

// runDiscovery performs one discovery pass against the configured Home
// Assistant instance and prints the inferred topology.
func (c *CLI) runDiscovery(ctx context.Context, cfg *config.Config) error {
	client := homeassistant.NewClient(cfg.HomeAssistant.BaseURL, cfg.HomeAssistant.Token, c.logger)

	discoverCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	entities, err := client.States(discoverCtx)
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}

	result := printer.Discover(entities)

	if len(result.Printers) == 0 {
		fmt.Println("No printers discovered - check that the printer integration is loaded")
	}
	for _, p := range result.Printers {
		model := string(p.Model)
		if model == "" {
			model = "unknown model"
		}
		fmt.Printf("Printer %q (%s)\n", p.DisplayName, model)
		fmt.Printf("  prefix:   %s\n", p.Prefix)
		fmt.Printf("  entities: %d\n", p.MatchedEntityCount)
	}
	for _, f := range result.Feeders {
		fmt.Printf("Feeder unit %q\n", f.DisplayName)
		fmt.Printf("  prefix: %s\n", f.Prefix)
		fmt.Printf("  slots:  %d\n", len(f.SlotEntityIDs))
		if f.HumidityEntityID != "" {
			fmt.Printf("  humidity: %s\n", f.HumidityEntityID)
		}
		if f.TempEntityID != "" {
			fmt.Printf("  temperature: %s\n", f.TempEntityID)
		}
	}

	return nil
}

func (c *CLI) setupLogger(cmd *cli.Command) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if level, err := logrus.ParseLevel(cmd.String("log-level")); err == nil {
		logger.SetLevel(level)
	}

	return logger
}

func (c *CLI) applyConfigLogging(cmd *cli.Command, cfg *config.Config) {
	if !cmd.IsSet("log-level") {
		if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
			c.logger.SetLevel(level)
		}
	}
	if cfg.Logging.Format == "json" {
		c.logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

func (c *CLI) setupSignalHandling() <-chan struct{} {
	shutdownCh := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		c.logger.Infof("Received signal: %v", sig)
		close(shutdownCh)
	}()

	return shutdownCh
}
