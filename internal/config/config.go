package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Supabase    SupabaseConfig
	ObjectStore ObjectStoreConfig
	Embedding   EmbeddingConfig
	Audit       AuditConfig
	Static      StaticConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SupabaseConfig covers the hosted backend: Postgres, GoTrue auth and the
// primary storage bucket.
type SupabaseConfig struct {
	URL           string
	AnonKey       string
	ServiceKey    string
	JWTSecret     string
	StorageBucket string
}

// ObjectStoreConfig describes the legacy object-store deployment. Records
// written before the bucket rename still reference this bucket, so it feeds
// the signed-URL fallback chain.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

type EmbeddingConfig struct {
	Provider   string // "openai" or "ollama"
	APIKey     string
	Model      string
	OllamaURL  string
	Dimensions int
}

type AuditConfig struct {
	ConfigPath   string
	AnthropicKey string
}

type StaticConfig struct {
	PublicDir string
}

// Load reads configuration from the environment. A .env file is honored when
// present. If the primary variable names fail validation, the legacy
// VITE_-prefixed schema is tried before giving up.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := loadWithPrefix("")
	if err != nil {
		return nil, err
	}
	if verr := cfg.Validate(); verr != nil {
		legacy, lerr := loadWithPrefix("VITE_")
		if lerr == nil && legacy.Validate() == nil {
			return legacy, nil
		}
		return nil, verr
	}
	return cfg, nil
}

func loadWithPrefix(prefix string) (*Config, error) {
	port, err := getEnvInt("PORT", 3001)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	dims, err := getEnvInt("EMBEDDING_DIMENSIONS", 1536)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_DIMENSIONS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Supabase: SupabaseConfig{
			URL:           getEnv(prefix+"SUPABASE_URL", ""),
			AnonKey:       getEnv(prefix+"SUPABASE_ANON_KEY", ""),
			ServiceKey:    getEnv(prefix+"SUPABASE_SERVICE_ROLE_KEY", ""),
			JWTSecret:     getEnv(prefix+"SUPABASE_JWT_SECRET", ""),
			StorageBucket: getEnv("STORAGE_BUCKET", "documents"),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  getEnv("OBJECT_STORE_ENDPOINT", ""),
			AccessKey: getEnv("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("OBJECT_STORE_SECRET_KEY", ""),
			Bucket:    getEnv("OBJECT_STORE_BUCKET", ""),
			Region:    getEnv("OBJECT_STORE_REGION", ""),
		},
		Embedding: EmbeddingConfig{
			Provider:   getEnv("EMBEDDING_PROVIDER", "openai"),
			APIKey:     getEnv("EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			OllamaURL:  getEnv("OLLAMA_URL", "http://localhost:11434"),
			Dimensions: dims,
		},
		Audit: AuditConfig{
			ConfigPath:   getEnv("AUDIT_CONFIG_PATH", "config/audit-checklist.json"),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
		},
		Static: StaticConfig{
			PublicDir: getEnv("PUBLIC_DIR", "public"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Supabase.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.Supabase.AnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if c.Supabase.ServiceKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	if c.Supabase.JWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LegacyBuckets lists older bucket names that stored file paths may still
// reference, most likely first.
func (c *Config) LegacyBuckets() []string {
	var buckets []string
	if c.ObjectStore.Bucket != "" && c.ObjectStore.Bucket != c.Supabase.StorageBucket {
		buckets = append(buckets, c.ObjectStore.Bucket)
	}
	return buckets
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
