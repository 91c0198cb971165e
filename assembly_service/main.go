package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyreel/api"
	"storyreel/app"
	"storyreel/config"
	"storyreel/janitor"
	"storyreel/pipeline"
	"storyreel/shared/kafka"
	"storyreel/types"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file (defaults to $STORYREEL_CONFIG)")
	kafkaMode := flag.Bool("kafka", true, "Consume assembly requests from Kafka")
	redisLock := flag.Bool("redis-lock", true, "Share the avatar render lock through Redis")
	flag.Parse()

	log.Println("🎬 Assembly Service - Starting...")

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{Redis: *redisLock, Events: *kafkaMode})
	if err != nil {
		log.Fatalf("❌ Failed to initialize pipeline: %v", err)
	}

	var consumer *kafka.Consumer
	if *kafkaMode {
		consumer, err = startConsumer(ctx, cfg, a)
		if err != nil {
			log.Printf("⚠️  Kafka consumer unavailable, serving HTTP only: %v", err)
		}
	}

	sweeper := janitor.New(a.Repo, a.Tracker, cfg.Retention())
	if err := sweeper.Start(cfg.Janitor.Schedule); err != nil {
		log.Fatalf("❌ Failed to schedule janitor: %v", err)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(a.Service),
	}
	go func() {
		log.Printf("🚀 API Server listening on %s", server.Addr)
		log.Println("📌 Endpoints:")
		log.Println("   POST /api/assemblies                            - Submit an assembly")
		log.Println("   GET  /api/assemblies/:id                        - Assembly status")
		log.Println("   POST /api/assemblies/:id/scenes/:index/regenerate - Regenerate a scene image")
		log.Println("   GET  /api/health                                - Health check")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Received termination signal, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Shutdown error: %v", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Printf("❌ Error closing Kafka consumer: %v", err)
		}
	}
	sweeper.Stop()

	log.Println("Waiting for running assemblies...")
	if err := a.Close(); err != nil {
		log.Printf("❌ Error closing resources: %v", err)
	}
	log.Println("👋 Assembly Service stopped")
}

func startConsumer(ctx context.Context, cfg *config.Config, a *app.App) (*kafka.Consumer, error) {
	handler := &kafka.TypedMessageHandler[types.AssemblyRequest]{
		Validate: func(req *types.AssemblyRequest) error { return req.Validate() },
		Process: func(ctx context.Context, req *types.AssemblyRequest) error {
			assembly, err := a.Service.Submit(ctx, req)
			if errors.Is(err, pipeline.ErrExists) {
				log.Printf("⚠️  Skipping redelivered assembly %s", req.ID)
				return nil
			}
			if err != nil {
				// A rejected request is recorded; redelivering it cannot help.
				if assembly != nil {
					log.Printf("⚠️  Assembly %s rejected: %v", assembly.ID, err)
					return nil
				}
				return err
			}
			log.Printf("✅ Assembly %s queued from Kafka", assembly.ID)
			return nil
		},
		MarkRejected: true,
	}

	log.Printf("🔗 Kafka Brokers: %v", cfg.Kafka.Brokers)
	log.Printf("📋 Topic: %s", cfg.Kafka.RequestsTopic)
	log.Printf("👥 Consumer Group: %s", cfg.Kafka.GroupID)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.RequestsTopic,
		GroupID: cfg.Kafka.GroupID,
		Handler: handler,
	})
	if err != nil {
		return nil, err
	}

	if err := consumer.Start(ctx); err != nil {
		consumer.Close()
		return nil, err
	}
	return consumer, nil
}
