package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-simulator/internal/api"
	"github.com/nerrad567/gray-logic-simulator/internal/definition"
	"github.com/nerrad567/gray-logic-simulator/internal/engine"
	"github.com/nerrad567/gray-logic-simulator/internal/history"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-simulator/internal/platform"
	"github.com/nerrad567/gray-logic-simulator/internal/telemetry"
	"github.com/nerrad567/gray-logic-simulator/migrations"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the defined resources and run their automation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Cancels on Ctrl+C and SIGTERM for graceful shutdown.
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// run is the serve logic, separated from the command for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting IoT resource simulator",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath(),
		"simulator_id", cfg.Simulator.ID,
		"level", cfg.Logging.Level,
	)

	// Definitions are checked before any connection is made.
	defs, err := definition.Load(cfg.Simulator.Definitions)
	if err != nil {
		return err
	}
	log.Info("definitions loaded",
		"path", cfg.Simulator.Definitions,
		"resources", len(defs.Resources),
		"remotes", len(defs.Remotes),
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.Source()); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)
	historyRepo := history.NewSQLiteRepository(db.DB)

	mqttCfg := cfg.GetMQTTConfig()
	mqttClient, err := mqtt.Connect(mqttCfg)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", mqttCfg.Broker.Host, mqttCfg.Broker.Port),
		"client_id", mqttCfg.Broker.ClientID,
	)

	checks := map[string]api.HealthCheck{
		"database": db.HealthCheck,
		"mqtt":     mqttClient.HealthCheck,
	}

	var series telemetry.SeriesWriter
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB, cfg.Simulator.ID)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetLogger(log)
		series = influxClient
		checks["influxdb"] = influxClient.HealthCheck
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics(cfg.Metrics.Namespace)
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	recorder := telemetry.NewRecorder(telemetry.Options{
		Host:    cfg.Simulator.ID,
		Metrics: metrics,
		Series:  series,
		History: historyRepo,
		Events:  hub,
		Logger:  log.Component("telemetry"),
	})

	plat, err := platform.New(mqttClient, platform.Config{
		Host:           cfg.Simulator.ID,
		Topics:         mqttClient.Topics(),
		QoS:            mqttClient.QoS(),
		RequestTimeout: cfg.GetRequestTimeout(),
		Logger:         log.Component("platform"),
	})
	if err != nil {
		return err
	}
	if startErr := plat.Start(ctx); startErr != nil {
		return fmt.Errorf("starting platform: %w", startErr)
	}
	defer func() {
		log.Info("closing platform")
		if closeErr := plat.Close(context.Background()); closeErr != nil {
			log.Error("error closing platform", "error", closeErr)
		}
	}()

	eng := engine.New(engine.Config{
		UpdateInterval: cfg.GetUpdateInterval(),
		DiscoveryWait:  cfg.GetDiscoveryWait(),
		Metrics:        metrics,
	}, plat, recorder, log.Component("engine"))
	if loadErr := eng.Load(defs); loadErr != nil {
		return fmt.Errorf("loading resources: %w", loadErr)
	}
	// A failed automation start is logged, not fatal: remotes may come
	// online later and be discovered through the API.
	if startErr := eng.Start(ctx); startErr != nil {
		log.Warn("engine started with errors", "error", startErr)
	}
	defer func() {
		log.Info("stopping engine")
		if stopErr := eng.Stop(context.Background()); stopErr != nil {
			log.Error("error stopping engine", "error", stopErr)
		}
	}()
	log.Info("engine started", "resources", len(eng.Resources().List()))

	if cfg.API.Enabled {
		srv, apiErr := startAPI(ctx, cfg, log, eng, historyRepo, metrics, hub, checks)
		if apiErr != nil {
			return apiErr
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("control API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, engine, platform, hub,
	// InfluxDB, MQTT, database.
	return nil
}

func startAPI(ctx context.Context, cfg *config.Config, log *logging.Logger, eng *engine.Engine,
	repo history.Repository, metrics *telemetry.Metrics, hub *api.Hub, checks map[string]api.HealthCheck) (*api.Server, error) {
	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Engine:   eng,
		History:  repo,
		Hub:      hub,
		Checks:   checks,
		Version:  version,
	}
	if metrics != nil {
		deps.Metrics = metrics.Handler()
		deps.MetricsPath = cfg.Metrics.Path
	}

	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		log.Warn("control API is unauthenticated; set security.jwt.secret to require tokens")
	}
	return srv, nil
}
