package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/config"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/homeassistant"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/httpapi"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/metrics"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/mqtt"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/notify"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/session"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/sink"
)

// PrinterRuntime groups the per-printer engine instances. Nothing here is
// shared across printers: each has its own continuity memory, transition
// state and session handle.
type PrinterRuntime struct {
	ID       string
	Config   config.PrinterConfig
	Syncer   *printer.Syncer
	Monitor  *printer.Monitor
	Tracker  *notify.Tracker
	Sessions *notify.SessionManager
}

// Start implements Service for one printer runtime.
func (r *PrinterRuntime) Start() error {
	r.Monitor.Start()
	return nil
}

// Stop halts polling and ends any active live session.
func (r *PrinterRuntime) Stop() error {
	r.Monitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.Sessions.Stop(ctx)
	return nil
}

type Application struct {
	config   *config.Config
	logger   *logrus.Logger
	version  string
	services *ServiceManager
	handlers *EventHandlers
	runtimes []*PrinterRuntime
}

func NewApplication(cfg *config.Config, logger *logrus.Logger, version string) *Application {
	app := &Application{
		config:  cfg,
		logger:  logger,
		version: version,
	}

	app.services = NewServiceManager(logger)
	app.handlers = NewEventHandlers(logger)

	return app
}

func (app *Application) Initialize() error {
	app.logger.Info("Initializing application components...")

	haClient := homeassistant.NewClient(
		app.config.HomeAssistant.BaseURL,
		app.config.HomeAssistant.Token,
		app.logger,
	)

	m := metrics.New()

	var (
		mqttClient     *mqtt.Client
		eventSink      *sink.MQTTSink
		sessionBackend notify.SessionBackend
	)

	if app.config.MQTT.Enabled {
		availabilityTopic := app.config.MQTT.BaseTopic + "/bridge/availability"

		client, err := mqtt.NewClient(&app.config.MQTT, availabilityTopic, app.logger)
		if err != nil {
			return err
		}
		mqttClient = client
		eventSink = sink.NewMQTTSink(mqttClient, app.config.MQTT.BaseTopic, app.logger)
		sessionBackend = session.NewMQTTBackend(mqttClient, app.config.MQTT.BaseTopic, app.logger)

		app.services.Register("mqtt", mqttClient)
		app.services.Register("sink", eventSink)
	} else {
		sessionBackend = session.NewMemoryBackend(app.logger)
	}

	var statusServer *httpapi.Server
	if app.config.Server.Listen != "" {
		statusServer = httpapi.NewServer(app.config.Server.Listen, m, app.logger)
		app.services.Register("httpapi", statusServer)
	}

	feeders := app.discoverFeeders(haClient)

	for id, printerCfg := range app.config.Printers {
		runtime := app.buildPrinterRuntime(id, printerCfg, haClient, feeders, sessionBackend)
		app.runtimes = append(app.runtimes, runtime)

		app.handlers.WirePrinter(runtime, eventSink, statusServer, m)
		app.services.Register("printer:"+id, runtime)
	}

	return nil
}

// discoverFeeders runs one discovery pass against the bulk entity listing so
// feeder units do not need manual configuration. Failure is not fatal:
// printers are configured explicitly and polling proceeds without feeders.
func (app *Application) discoverFeeders(haClient *homeassistant.Client) []printer.DiscoveredFeeder {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entities, err := haClient.States(ctx)
	if err != nil {
		app.logger.WithError(err).Warn("Feeder discovery failed, continuing without feeder units")
		return nil
	}

	result := printer.Discover(entities)
	app.logger.Infof("Discovery found %d printer(s) and %d feeder unit(s)", len(result.Printers), len(result.Feeders))
	return result.Feeders
}

func (app *Application) buildPrinterRuntime(
	id string,
	printerCfg config.PrinterConfig,
	haClient *homeassistant.Client,
	feeders []printer.DiscoveredFeeder,
	sessionBackend notify.SessionBackend,
) *PrinterRuntime {
	syncer := printer.NewSyncer(haClient, printerCfg.Prefix, app.logger)

	matched := printer.MatchFeeders(printerCfg.Prefix, feeders)
	syncer.SetFeeders(matched)
	if len(matched) > 0 {
		app.logger.WithField("printer", id).Infof("Attached %d feeder unit(s)", len(matched))
	}

	monitor := printer.NewMonitor(syncer, time.Duration(printerCfg.PollInterval)*time.Second, app.logger)

	tracker := notify.NewTracker(notify.Policy{
		EmitResumed:       printerCfg.Notifications.Resumed,
		MilestoneInterval: printerCfg.Notifications.MilestoneInterval,
	})

	return &PrinterRuntime{
		ID:       id,
		Config:   printerCfg,
		Syncer:   syncer,
		Monitor:  monitor,
		Tracker:  tracker,
		Sessions: notify.NewSessionManager(sessionBackend, id, app.logger),
	}
}

func (app *Application) Start() error {
	return app.services.StartAll()
}

func (app *Application) Stop() error {
	return app.services.StopAll()
}
