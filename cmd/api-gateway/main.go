package main

import (
	"context"
	"log"
	"os"

	"github.com/leocisternasa/mediprotek-test/internal/gateway"
)

func main() {
	ctx := context.Background()
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/api-gateway.yaml"
	}
	runtime, err := gateway.NewRuntime(ctx, configPath)
	if err != nil {
		log.Fatalf("bootstrap runtime: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run gateway: %v", err)
	}
}
