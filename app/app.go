// Package app wires the pipeline from configuration for the CLI and the service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"storyreel/acquire"
	"storyreel/avatar"
	"storyreel/compose"
	"storyreel/config"
	"storyreel/media"
	"storyreel/narration"
	"storyreel/pipeline"
	"storyreel/providers"
	"storyreel/publish"
	"storyreel/shared/kafka"
	"storyreel/storage"
	"storyreel/store"

	"github.com/redis/go-redis/v9"
)

// Options selects the shared infrastructure a process uses
type Options struct {
	// Redis shares the avatar render lock between workers
	Redis bool
	// Events publishes status events to Kafka
	Events bool
}

// App holds the wired pipeline and what must be closed with it
type App struct {
	Config  *config.Config
	Repo    store.Repository
	Service *pipeline.Service
	Tracker *pipeline.Tracker

	closers []func() error
}

// Build constructs every collaborator from cfg. Optional integrations are
// skipped when their settings are empty.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	repo, err := buildRepository(cfg)
	if err != nil {
		return nil, err
	}
	a.Repo = repo

	var events pipeline.EventPublisher
	if opts.Events && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, producer.Close)
		events = producer
	}
	a.Tracker = pipeline.NewTracker(repo, events)

	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	acquirer := acquire.New(registry, acquire.Options{
		Timeout:     cfg.AcquireTimeout(),
		Concurrency: cfg.Acquisition.Concurrency,
		Sink:        repo,
	})

	runner := media.FFmpegRunner{Bin: cfg.FFmpeg}
	prober := media.FFProbe{Timeout: cfg.ProbeTimeout()}

	var avatarRenderer compose.AvatarRenderer
	if cfg.LipSync.Bin != "" {
		locker, err := a.buildLocker(ctx, cfg, opts)
		if err != nil {
			return nil, err
		}
		avatarRenderer = avatar.NewRenderer(
			avatar.CommandLipSync{Bin: cfg.LipSync.Bin, Args: cfg.LipSync.Args},
			runner,
			locker,
			avatar.Options{Timeout: cfg.AvatarTimeout(), FaceRender: cfg.LipSync.FaceRender},
		)
	}
	composer := compose.NewComposer(prober, runner, avatarRenderer, cfg.RenderTimeout())

	var narrator narration.Narrator
	if cfg.OpenAI.APIKey != "" {
		narrator = narration.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.TTSVoice, cfg.OpenAI.TTSModel)
	}

	var objects storage.ObjectStore
	if cfg.S3.Bucket != "" {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			UsePathStyle: cfg.S3.PathStyle,
			Endpoint:     cfg.S3.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		objects = s3
	}

	var publisher pipeline.Publisher
	if cfg.YouTube.ServiceAccountFile != "" {
		yt, err := publish.NewYouTube(ctx, cfg.YouTube.ServiceAccountFile)
		if err != nil {
			return nil, err
		}
		publisher = yt
	}

	svc, err := pipeline.NewService(pipeline.Deps{
		Repo:      repo,
		Tracker:   a.Tracker,
		Acquirer:  acquirer,
		Composer:  composer,
		Narrator:  narrator,
		Inputs:    storage.NewFetcher(objects, nil),
		Publisher: publisher,
		WorkRoot:  cfg.WorkRoot,
		MaxRuns:   cfg.MaxRuns,
	})
	if err != nil {
		return nil, err
	}
	a.Service = svc

	ok = true
	return a, nil
}

func buildRepository(cfg *config.Config) (store.Repository, error) {
	if cfg.Database.URL == "" {
		log.Println("⚠️  DATABASE_URL not set, assemblies are kept in memory")
		return store.NewMemory(), nil
	}
	return store.OpenPostgres(cfg.Database.URL)
}

// buildRegistry registers Google only when it is configured, since the
// client cannot be created without credentials
func buildRegistry(ctx context.Context, cfg *config.Config) (*providers.Registry, error) {
	var google providers.VisualProvider
	if cfg.Google.APIKey != "" && cfg.Google.CSEID != "" {
		g, err := providers.NewGoogle(ctx, cfg.Google.APIKey, cfg.Google.CSEID, nil)
		if err != nil {
			return nil, err
		}
		google = g
	}
	return providers.NewDefaultRegistry(
		providers.NewDallE(cfg.OpenAI.APIKey, nil),
		providers.NewBing(cfg.Acquisition.BingBaseURL, nil),
		google,
	)
}

func (a *App) buildLocker(ctx context.Context, cfg *config.Config, opts Options) (avatar.Locker, error) {
	if !opts.Redis || cfg.Redis.Addr == "" {
		return avatar.NewKeyedMutex(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.Printf("✅ Redis connected at %s", cfg.Redis.Addr)
	a.closers = append(a.closers, client.Close)
	return avatar.NewRedisLocker(client, cfg.AvatarTimeout()+5*time.Minute), nil
}

// Close waits for running assemblies and releases connections
func (a *App) Close() error {
	if a.Service != nil {
		a.Service.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
