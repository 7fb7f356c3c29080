package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"SignalPull/internal/di"
	"SignalPull/pkg/config"
	"SignalPull/pkg/trace"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	envPath := flag.String("env", ".env", "dotenv file path")
	flag.Parse()

	// A missing .env is normal outside local development.
	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv: %v", err)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := trace.Init(trace.Config{
		Enabled:     cfg.Trace.Enabled,
		ServiceName: cfg.Trace.ServiceName,
	}); err != nil {
		log.Fatalf("trace init failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("env=%s instruments=%v interval=%s", cfg.Environment, cfg.Pipeline.Instruments, cfg.Interval())

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
