package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/config"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/metrics"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/realtime"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/relay"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/repository"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/server"
	service_registry "github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/srvreg"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/workflow"
	cfg "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/viper"
)

var (
	configFile string
	httpPort   string
)

func init() {
	flag.StringVar(&configFile, "config", "", "Path to the config file (yaml, toml or json)")
	flag.StringVar(&httpPort, "http-port", "", "HTTP web server port (overrides http.port)")
}

// backend is what both persistence adapters provide
type backend interface {
	workflow.Store
	workflow.Inventory
	service_registry.InventoryService
	Close() error
}

func main() {
	// Load Config
	flag.Parse()

	v := viper.New()
	if httpPort != "" {
		v.Set("http.port", httpPort)
	}
	conf, err := config.Load(v, configFile)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(conf.Log.Level, logger, cfg.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(rootCtx, conf, logger)
	if err != nil {
		log.Fatalf("Opening store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Closing store", "err", err)
		}
	}()

	m := metrics.New()

	// Realtime hub
	hub := realtime.NewHub(realtime.Config{
		KeepAliveInterval: conf.Realtime.KeepAliveInterval,
		QueueSize:         conf.Realtime.QueueSize,
		WriteTimeout:      conf.Realtime.WriteTimeout,
	}, logger, m)
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	// Every event goes to the hub, and to Kafka when brokers are configured
	publisher := relay.Fanout{hub}
	var kafkaRelay *relay.KafkaRelay
	if len(conf.Relay.KafkaBrokers) > 0 {
		kafkaRelay = relay.NewKafkaRelay(conf.Relay.KafkaBrokers, conf.Relay.KafkaTopic, logger, m)
		kafkaRelay.Start()
		publisher = append(publisher, kafkaRelay)
		logger.Info("Kafka relay enabled", "brokers", conf.Relay.KafkaBrokers, "topic", conf.Relay.KafkaTopic)
	}

	engine := workflow.New(store, store, publisher, logger, workflow.WithMetrics(m))

	// Initialize Service Registry
	serviceRegistry := service_registry.NewServiceRegistry(engine, store, logger)
	serviceRegistry.RegisterDefaultServices()

	// Start Web Server
	webserver := server.NewWebServer(conf.HTTP.Port, logger, serviceRegistry, hub, m)
	if err := webserver.Start(); err != nil {
		log.Fatalf("Starting HTTP server: %v", err)
	}

	// Wait for interrupt signal to gracefully shut down the server
	<-rootCtx.Done()

	// Create deadline to wait for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Close realtime connections first so streaming handlers return
	stopHub()
	<-hubDone

	if err := webserver.Shutdown(ctx); err != nil {
		logger.Error("Shutting down HTTP web server", "err", err)
	}
	logger.Info("HTTP web server gracefully stopped")

	if kafkaRelay != nil {
		if err := kafkaRelay.Close(); err != nil {
			logger.Error("Closing Kafka relay", "err", err)
		}
	}
}

func openStore(ctx context.Context, c *config.Config, logger cmtlog.Logger) (backend, error) {
	switch c.Store.Driver {
	case config.DriverPostgres:
		store, err := repository.ConnectPostgres(ctx, c.Store.PostgresDSN, 10, logger)
		if err != nil {
			return nil, err
		}
		if c.Store.Migrate {
			if err := store.Migrate(); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil
	default:
		logger.Info("Opening badger store", "path", c.Store.BadgerPath, "in_memory", c.Store.InMemory)
		return repository.OpenBadger(c.Store.BadgerPath, c.Store.InMemory, logger)
	}
}
