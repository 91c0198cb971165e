package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration shared by the CLI and the assembly service.
// Values come from an optional YAML file and are overridden by the environment.
type Config struct {
	WorkRoot string `yaml:"work_root"`
	FFmpeg   string `yaml:"ffmpeg_bin"`

	Timeouts    TimeoutConfig  `yaml:"timeouts"`
	Acquisition AcquireConfig  `yaml:"acquisition"`
	OpenAI      OpenAIConfig   `yaml:"openai"`
	Google      GoogleConfig   `yaml:"google"`
	LipSync     LipSyncConfig  `yaml:"lipsync"`
	Redis       RedisConfig    `yaml:"redis"`
	Database    DatabaseConfig `yaml:"database"`
	S3          S3Config       `yaml:"s3"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Janitor     JanitorConfig  `yaml:"janitor"`
	YouTube     YouTubeConfig  `yaml:"youtube"`
	Port        string         `yaml:"port"`
	// MaxRuns bounds assemblies rendering at once in the service
	MaxRuns     int            `yaml:"max_runs"`
}

type TimeoutConfig struct {
	ProbeSeconds   int `yaml:"probe_seconds"`
	AcquireSeconds int `yaml:"acquire_seconds"`
	AvatarSeconds  int `yaml:"avatar_seconds"`
	RenderSeconds  int `yaml:"render_seconds"`
}

type AcquireConfig struct {
	Concurrency int    `yaml:"concurrency"`
	BingBaseURL string `yaml:"bing_base_url"`
}

type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	TTSVoice string `yaml:"tts_voice"`
	TTSModel string `yaml:"tts_model"`
}

type GoogleConfig struct {
	APIKey string `yaml:"api_key"`
	CSEID  string `yaml:"cse_id"`
}

type LipSyncConfig struct {
	Bin        string   `yaml:"bin"`
	Args       []string `yaml:"args"`
	FaceRender string   `yaml:"facerender"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type S3Config struct {
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
	Endpoint  string `yaml:"endpoint"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	RequestsTopic string   `yaml:"requests_topic"`
	EventsTopic   string   `yaml:"events_topic"`
	GroupID       string   `yaml:"group_id"`
}

type JanitorConfig struct {
	Schedule       string `yaml:"schedule"`
	RetentionHours int    `yaml:"retention_hours"`
}

type YouTubeConfig struct {
	ServiceAccountFile string `yaml:"service_account_file"`
}

// ProbeTimeout returns the ffprobe deadline
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Timeouts.ProbeSeconds) * time.Second
}

// AcquireTimeout returns the per-provider-call deadline
func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.Timeouts.AcquireSeconds) * time.Second
}

// AvatarTimeout returns the lip-sync plus transcode deadline
func (c *Config) AvatarTimeout() time.Duration {
	return time.Duration(c.Timeouts.AvatarSeconds) * time.Second
}

// RenderTimeout returns the deadline for a single ffmpeg render
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Timeouts.RenderSeconds) * time.Second
}

// Retention returns how long finished work directories are kept
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Janitor.RetentionHours) * time.Hour
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		WorkRoot: "media/videos",
		FFmpeg:   "ffmpeg",
		Timeouts: TimeoutConfig{
			ProbeSeconds:   30,
			AcquireSeconds: 60,
			AvatarSeconds:  900,
			RenderSeconds:  3600,
		},
		Acquisition: AcquireConfig{
			Concurrency: 4,
			BingBaseURL: "https://www.bing.com",
		},
		OpenAI: OpenAIConfig{
			TTSVoice: "alloy",
			TTSModel: "tts-1",
		},
		LipSync: LipSyncConfig{
			FaceRender: "pirender",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9093"},
			RequestsTopic: "assembly-requests",
			EventsTopic:   "assembly-events",
			GroupID:       "assembly-service-consumer-group",
		},
		Janitor: JanitorConfig{
			Schedule:       "@hourly",
			RetentionHours: 72,
		},
		Port:    "8081",
		MaxRuns: 1,
	}
}

// Load reads .env (if present), the YAML file at path (if present) and then
// applies environment overrides. An empty path falls back to $STORYREEL_CONFIG.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("STORYREEL_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// optional file
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.WorkRoot == "" {
		return fmt.Errorf("work root must not be empty")
	}
	if c.MaxRuns < 1 {
		return fmt.Errorf("max concurrent renders must be at least 1, got %d", c.MaxRuns)
	}
	if c.Acquisition.Concurrency < 1 {
		return fmt.Errorf("acquisition concurrency must be at least 1, got %d", c.Acquisition.Concurrency)
	}
	if c.Timeouts.AcquireSeconds <= 0 || c.Timeouts.AvatarSeconds <= 0 || c.Timeouts.RenderSeconds <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func applyEnv(c *Config) {
	c.WorkRoot = getEnvOrDefault("WORK_ROOT", c.WorkRoot)
	c.FFmpeg = getEnvOrDefault("FFMPEG_BIN", c.FFmpeg)
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.MaxRuns = getEnvInt("MAX_CONCURRENT_RENDERS", c.MaxRuns)

	c.Timeouts.ProbeSeconds = getEnvInt("FFPROBE_TIMEOUT_SECONDS", c.Timeouts.ProbeSeconds)
	c.Timeouts.AcquireSeconds = getEnvInt("ACQUIRE_TIMEOUT_SECONDS", c.Timeouts.AcquireSeconds)
	c.Timeouts.AvatarSeconds = getEnvInt("AVATAR_TIMEOUT_SECONDS", c.Timeouts.AvatarSeconds)
	c.Timeouts.RenderSeconds = getEnvInt("RENDER_TIMEOUT_SECONDS", c.Timeouts.RenderSeconds)

	c.Acquisition.Concurrency = getEnvInt("ACQUIRE_CONCURRENCY", c.Acquisition.Concurrency)
	c.Acquisition.BingBaseURL = getEnvOrDefault("BING_BASE_URL", c.Acquisition.BingBaseURL)

	c.OpenAI.APIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.TTSVoice = getEnvOrDefault("OPENAI_TTS_VOICE", c.OpenAI.TTSVoice)
	c.OpenAI.TTSModel = getEnvOrDefault("OPENAI_TTS_MODEL", c.OpenAI.TTSModel)

	c.Google.APIKey = getEnvOrDefault("GOOGLE_API_KEY", c.Google.APIKey)
	c.Google.CSEID = getEnvOrDefault("GOOGLE_CSE_ID", c.Google.CSEID)

	c.LipSync.Bin = getEnvOrDefault("LIPSYNC_BIN", c.LipSync.Bin)
	if args := os.Getenv("LIPSYNC_ARGS"); args != "" {
		c.LipSync.Args = strings.Fields(args)
	}
	c.LipSync.FaceRender = getEnvOrDefault("LIPSYNC_FACERENDER", c.LipSync.FaceRender)

	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASS", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Database.URL = getEnvOrDefault("DATABASE_URL", c.Database.URL)

	c.S3.Region = getEnvOrDefault("S3_REGION", c.S3.Region)
	c.S3.Bucket = getEnvOrDefault("S3_BUCKET", c.S3.Bucket)
	c.S3.Prefix = getEnvOrDefault("S3_PREFIX", c.S3.Prefix)
	c.S3.PathStyle = getEnvBool("S3_PATH_STYLE", c.S3.PathStyle)
	c.S3.Endpoint = getEnvOrDefault("S3_ENDPOINT", c.S3.Endpoint)

	if brokers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.Kafka.RequestsTopic = getEnvOrDefault("KAFKA_TOPIC_ASSEMBLY_REQUESTS", c.Kafka.RequestsTopic)
	c.Kafka.EventsTopic = getEnvOrDefault("KAFKA_TOPIC_ASSEMBLY_EVENTS", c.Kafka.EventsTopic)
	c.Kafka.GroupID = getEnvOrDefault("KAFKA_CONSUMER_GROUP_ID", c.Kafka.GroupID)

	c.Janitor.Schedule = getEnvOrDefault("JANITOR_SCHEDULE", c.Janitor.Schedule)
	c.Janitor.RetentionHours = getEnvInt("JANITOR_RETENTION_HOURS", c.Janitor.RetentionHours)

	c.YouTube.ServiceAccountFile = getEnvOrDefault("YOUTUBE_SERVICE_ACCOUNT_FILE", c.YouTube.ServiceAccountFile)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
