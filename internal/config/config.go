package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/itdjship/chat-bot-app/internal/faults"
)

const (
	EmbeddingRemote = "remote"
	EmbeddingLocal  = "local"

	IndexMemory   = "memory"
	IndexPostgres = "postgres"
	IndexQdrant   = "qdrant"
)

// profile presets: the three original deployments of this service
var profiles = map[string]struct{ embedding, index, persona string }{
	"remote-memory": {EmbeddingRemote, IndexMemory, "neutral"},
	"local-memory":  {EmbeddingLocal, IndexMemory, "neutral"},
	"local-sql":     {EmbeddingLocal, IndexPostgres, "cybersec-buddy"},
}

type Config struct {
	ListenAddr string
	AuthToken  string

	EmbeddingProvider string
	IndexBackend      string
	Persona           string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	//remote provider (Gemini)
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string
	EmbeddingDim   int
	Temperature    float32
	HasTemperature bool

	//local provider (any OpenAI-compatible endpoint, e.g. ollama)
	LocalEmbedBaseURL string
	LocalEmbedAPIKey  string
	LocalEmbedModel   string

	//postgres backend
	PostgresDSN   string
	PostgresTable string

	//qdrant backend
	QdrantHost       string
	QdrantPort       int
	QdrantUseTLS     bool
	QdrantCollection string

	RedisAddr     string
	RedisPassword string
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Load reads .env (if present) plus the environment, applies the selected
// profile and validates everything the chosen variant needs. All validation
// failures are ConfigurationError.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:        envOr("LISTEN_ADDR", ServerListenAddr),
		AuthToken:         os.Getenv("AUTH_TOKEN"),
		EmbeddingProvider: os.Getenv("EMBEDDING_PROVIDER"),
		IndexBackend:      os.Getenv("INDEX_BACKEND"),
		Persona:           os.Getenv("PERSONA"),
		GeminiAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:       envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel:    envOr("GOOGLE_EMBEDDING_MODEL", "gemini-embedding-001"),
		LocalEmbedBaseURL: envOr("LOCAL_EMBED_BASE_URL", "http://localhost:11434/v1"),
		LocalEmbedAPIKey:  envOr("LOCAL_EMBED_API_KEY", "unused"),
		LocalEmbedModel:   envOr("LOCAL_EMBED_MODEL", "all-minilm"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		PostgresTable:     envOr("POSTGRES_TABLE", "rag_documents"),
		QdrantHost:        envOr("QDRANT_HOST", "localhost"),
		QdrantUseTLS:      os.Getenv("QDRANT_USE_TLS") == "true",
		QdrantCollection:  envOr("QDRANT_COLLECTION", "rag-documents"),
		RedisAddr:         envOr("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
	}

	if p, ok := profiles[os.Getenv("APP_PROFILE")]; ok {
		if cfg.EmbeddingProvider == "" {
			cfg.EmbeddingProvider = p.embedding
		}
		if cfg.IndexBackend == "" {
			cfg.IndexBackend = p.index
		}
		if cfg.Persona == "" {
			cfg.Persona = p.persona
		}
	} else if prof := os.Getenv("APP_PROFILE"); prof != "" {
		return nil, faults.Errorf(faults.Configuration, "unknown profile %q", prof)
	}
	if cfg.EmbeddingProvider == "" {
		cfg.EmbeddingProvider = EmbeddingRemote
	}
	if cfg.IndexBackend == "" {
		cfg.IndexBackend = IndexMemory
	}
	if cfg.Persona == "" {
		cfg.Persona = "neutral"
	}

	var err error
	if cfg.ChunkSize, err = envInt("CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = envInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.TopK, err = envInt("TOP_K", 5); err != nil {
		return nil, err
	}
	if cfg.EmbeddingDim, err = envInt("EMBEDDING_DIM", 1536); err != nil {
		return nil, err
	}
	if cfg.QdrantPort, err = envInt("QDRANT_PORT", QdrantGrpcPort); err != nil {
		return nil, err
	}
	if raw := os.Getenv("MODEL_TEMPERATURE"); raw != "" {
		t, convErr := strconv.ParseFloat(raw, 32)
		if convErr != nil {
			return nil, faults.Errorf(faults.Configuration, "MODEL_TEMPERATURE: %v", convErr)
		}
		cfg.Temperature = float32(t)
		cfg.HasTemperature = true
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return faults.Errorf(faults.Configuration, "chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return faults.Errorf(faults.Configuration,
			"chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return faults.Errorf(faults.Configuration, "top-k must be positive, got %d", c.TopK)
	}

	switch c.EmbeddingProvider {
	case EmbeddingRemote:
		if c.GeminiAPIKey == "" {
			return faults.Errorf(faults.Configuration, "GOOGLE_API_KEY is required for the remote embedding provider")
		}
	case EmbeddingLocal:
		if c.LocalEmbedBaseURL == "" {
			return faults.Errorf(faults.Configuration, "LOCAL_EMBED_BASE_URL is required for the local embedding provider")
		}
	default:
		return faults.Errorf(faults.Configuration, "unknown embedding provider %q", c.EmbeddingProvider)
	}

	switch c.IndexBackend {
	case IndexMemory:
	case IndexPostgres:
		if c.PostgresDSN == "" {
			return faults.Errorf(faults.Configuration, "POSTGRES_DSN is required for the postgres index backend")
		}
		if !tableNamePattern.MatchString(c.PostgresTable) {
			return faults.Errorf(faults.Configuration, "invalid postgres table name %q", c.PostgresTable)
		}
	case IndexQdrant:
		if c.QdrantHost == "" {
			return faults.Errorf(faults.Configuration, "QDRANT_HOST is required for the qdrant index backend")
		}
	default:
		return faults.Errorf(faults.Configuration, "unknown index backend %q", c.IndexBackend)
	}

	//the synthesizer is always Gemini, regardless of where embeddings come from
	if c.GeminiAPIKey == "" {
		return faults.Errorf(faults.Configuration, "GOOGLE_API_KEY is required for answer synthesis")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, faults.Errorf(faults.Configuration, "%s: %v", key, fmt.Errorf("not an integer: %q", raw))
	}
	return v, nil
}
