package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"robopool/config"
	"robopool/engine"
	"robopool/fleet"
	"robopool/fleet/mirfleet"
	"robopool/messaging"
	"robopool/poolstate"
	"robopool/store"
	"robopool/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "robopool.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("robopool", Version)
		return
	}

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err == nil {
		log.Printf("robopool: loaded .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cloud, err := cfg.ApplyEnv(os.Getenv)
	if err != nil {
		log.Fatalf("apply environment: %v", err)
	}
	if cloud {
		log.Printf("robopool: database credentials from service binding")
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("robopool: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("robopool: redis not available (%v), running without cache", err)
	} else {
		log.Printf("robopool: redis connected (%s)", cfg.Redis.Address)
	}
	cancel()
	defer redisClient.Close()

	// Pool state manager
	pool := poolstate.NewManager(db, poolstate.NewRedisStore(redisClient))
	if err := pool.SyncFromSQL(); err != nil {
		log.Printf("robopool: redis sync from SQL: %v", err)
	}

	// Fleet backends, keyed by the vendor tag stored in the inventory
	fleets := fleet.NewRegistry()
	baseURL, err := cfg.Mir.BaseURL()
	if err != nil {
		log.Fatalf("mir base url: %v", err)
	}
	mirAdapter, err := mirfleet.New(mirfleet.Config{
		BaseURL:      baseURL,
		Username:     cfg.Mir.Username,
		Password:     cfg.Mir.Password,
		Proxy:        cfg.Mir.Proxy,
		Timeout:      cfg.Mir.Timeout,
		PollInterval: cfg.Mir.PollInterval,
		Params:       mirfleet.ParamsFromConfig(&cfg.Mir),
	})
	if err != nil {
		log.Fatalf("mir adapter: %v", err)
	}
	fleets.Register(mirfleet.VendorTag, mirAdapter)
	log.Printf("robopool: %s registered for vendor %q at %s", mirAdapter.Name(), mirfleet.VendorTag, baseURL)

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("robopool: messaging connect failed (%v)", err)
	} else {
		log.Printf("robopool: messaging connected (%s)", cfg.Messaging.Backend)
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Fleets:     fleets,
		Pool:       pool,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Inbound commands from the warehouse system
	cmdHandler := messaging.NewCommandHandler(eng.Dispatcher(), db, cfg.Messaging.StationID, cfg.Messaging.EventsTopic)
	consumer := messaging.NewConsumer(msgClient, cfg.Messaging.CommandsTopic, cmdHandler)
	if err := consumer.Start(); err != nil {
		log.Printf("robopool: command consumer subscribe failed: %v", err)
	} else {
		log.Printf("robopool: command consumer listening on %s", cfg.Messaging.CommandsTopic)
	}

	// Outbox drainer (pool events)
	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("robopool: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("robopool: ready (%s)", Version)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("robopool: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("robopool: stopped")
}
