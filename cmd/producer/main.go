package main

import (
	"context"
	"flag"
	"log"
	"os"

	"StockPulse/internal/di"
	"StockPulse/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/producer.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := cfg.RequireKafka(); err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := di.InitializeProducer(cfg)
	if err != nil {
		log.Fatalf("producer initialization failed: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Printf("producer error: %v", err)
		os.Exit(1)
	}
}
