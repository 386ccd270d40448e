package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/crowd-organ/gesture.host/internal/api"
	"github.com/crowd-organ/gesture.host/internal/config"
	"github.com/crowd-organ/gesture.host/internal/db"
	"github.com/crowd-organ/gesture.host/internal/engine"
	"github.com/crowd-organ/gesture.host/internal/gesture"
	"github.com/crowd-organ/gesture.host/internal/monitoring"
	"github.com/crowd-organ/gesture.host/internal/publish"
	"github.com/crowd-organ/gesture.host/internal/telemetry"
	"github.com/crowd-organ/gesture.host/internal/version"
)

var (
	listen     = flag.String("listen", envOr("GESTURE_LISTEN", ":8080"), "HTTP listen address")
	udpAddr    = flag.String("udp", envOr("GESTURE_UDP", ":9000"), "UDP telemetry listen address")
	dbPath     = flag.String("db", envOr("GESTURE_DB", "gesture_events.db"), "event journal path, empty disables journaling")
	configPath = flag.String("config", envOr("GESTURE_CONFIG", ""), "tuning JSON path (optional)")
	mqttAddr   = flag.String("mqtt", envOr("GESTURE_MQTT", ""), "MQTT broker host:port, empty disables publishing")
	mqttTopic  = flag.String("mqtt-topic", envOr("GESTURE_MQTT_TOPIC", ""), "MQTT topic prefix override")
	migrations = flag.String("migrations", "migrations", "journal migrations directory, skipped when absent")
	tickHz     = flag.Int("tick-hz", 60, "detector tick rate")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadTuning() *config.TuningConfig {
	path := *configPath
	if path == "" {
		// The default tuning file is optional; a bare host runs on defaults.
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.EmptyTuningConfig()
		}
		path = config.DefaultConfigPath
	}

	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}
	log.Printf("loaded tuning config from %s", path)
	return cfg
}

func main() {
	// .env carries venue-specific addresses on touring rigs; absence is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to load .env: %v", err)
	}
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if *tickHz < 1 {
		log.Fatal("tick-hz must be at least 1")
	}

	log.Printf("gesture host %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	tuning := loadTuning()
	eng := engine.New(tuning)
	eng.SetClock(func() int64 { return time.Now().UnixMilli() })

	eng.AddSink(engine.SinkFunc(func(event gesture.Event) {
		monitoring.Logf("gesture %s subject=%d strength=%.2f", event.Type, event.Subject, event.Strength)
	}))

	var journal *db.DB
	if *dbPath != "" {
		var err error
		journal, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open event journal: %v", err)
		}
		defer journal.Close()
		if _, statErr := os.Stat(*migrations); statErr == nil {
			if err := journal.MigrateUp(*migrations); err != nil {
				log.Fatalf("failed to migrate event journal: %v", err)
			}
		}
		eng.AddSink(journal)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *mqttAddr != "" {
		publisher, err := publish.Dial(ctx, publish.Options{
			BrokerAddr:  *mqttAddr,
			ClientID:    "gesture-host",
			TopicPrefix: *mqttTopic,
		})
		if err != nil {
			log.Fatalf("failed to connect to MQTT broker: %v", err)
		}
		defer publisher.Close()
		eng.AddSink(publisher)
	}

	var wg sync.WaitGroup

	// UDP telemetry intake
	listener := telemetry.NewListener(telemetry.ListenerConfig{
		Address: *udpAddr,
		Sink:    eng,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("telemetry listener error: %v", err)
		}
		log.Print("telemetry routine terminated")
	}()

	// detector tick loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Second / time.Duration(*tickHz))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				eng.Tick()
			case <-ctx.Done():
				log.Print("tick routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(eng, journal, tuning).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("HTTP server listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
