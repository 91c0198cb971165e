package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storyreel/app"
	"storyreel/config"
	"storyreel/types"
)

func main() {
	requestFile := flag.String("request", "", "Path to an assembly request JSON file")
	configFile := flag.String("config", "", "Path to a YAML config file (defaults to $STORYREEL_CONFIG)")
	flag.Parse()

	if *requestFile == "" {
		flag.Usage()
		log.Fatal("--request is required")
	}

	log.Println("🎬 Storyreel - Batch render")

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	req, err := readRequest(*requestFile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatalf("❌ Failed to initialize pipeline: %v", err)
	}
	defer a.Close()

	assembly, err := a.Service.Prepare(ctx, req)
	if err != nil {
		log.Fatalf("❌ Request rejected: %v", err)
	}

	if err := a.Service.RunSync(ctx, assembly.ID); err != nil {
		log.Fatalf("❌ Assembly %s failed: %v", assembly.ID, err)
	}

	status, err := a.Service.Status(ctx, assembly.ID)
	if err != nil {
		log.Fatalf("❌ Failed to read status: %v", err)
	}
	log.Printf("✅ Assembly %s %s", assembly.ID, status.Status)
	if status.OutputURI != "" {
		fmt.Println(status.OutputURI)
		return
	}
	fmt.Println(status.Output)
}

func readRequest(path string) (*types.AssemblyRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request %s: %w", path, err)
	}
	var req types.AssemblyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request %s: %w", path, err)
	}
	return &req, nil
}
