package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	Audio     AudioConfig
	Embedding EmbeddingConfig
	Telemetry TelemetryConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver     string
	SQLitePath string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize uint64
}

type GeminiConfig struct {
	APIKey         string
	APIKeyFile     string
	ChatModel      string
	EmbeddingModel string
	SpeechModel    string
	MaxRetries     int
	// Timeout bounds a single attempt; retries get a fresh one.
	Timeout        time.Duration
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type AudioConfig struct {
	Voice           string
	Speed           float64
	// PlaybackTimeout returns a session to idle when the client never
	// confirms playback of a reply. 0 waits indefinitely.
	PlaybackTimeout time.Duration
}

type EmbeddingConfig struct {
	// Backend is either "qdrant" or "sqlite".
	Backend    string
	SQLitePath string
	// MaxInterviewRecords caps stored interview_response records per user. 0 means unbounded.
	MaxInterviewRecords int
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	OTLPInsecure bool
	StdoutTraces bool
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

var defaults = map[string]any{
	"PORT": "3000",
	"ENV":  "development",

	"DB_DRIVER":      "postgres",
	"DB_SQLITE_PATH": "./data/voice_interview.db",
	"DB_HOST":        "localhost",
	"DB_PORT":        "5432",
	"DB_USER":        "postgres",
	"DB_PASSWORD":    "postgres",
	"DB_NAME":        "voice_interview",

	"QDRANT_URL":         "http://localhost:6334",
	"QDRANT_API_KEY":     "",
	"QDRANT_COLLECTION":  "voice_interview_embeddings",
	"QDRANT_VECTOR_SIZE": 768,

	"GEMINI_API_KEY":         "",
	"GEMINI_API_KEY_FILE":    "",
	"GEMINI_CHAT_MODEL":      "gemini-2.5-flash",
	"GEMINI_EMBEDDING_MODEL": "text-embedding-004",
	"GEMINI_SPEECH_MODEL":    "gemini-2.5-flash-preview-tts",
	"GEMINI_MAX_RETRIES":     3,
	"GEMINI_TIMEOUT":         "30s",

	"UPLOAD_PATH":   "./uploads",
	"MAX_FILE_SIZE": 26214400,

	"TTS_VOICE":        "Kore",
	"TTS_SPEED":        1.0,
	"PLAYBACK_TIMEOUT": "2m",

	"EMBEDDING_BACKEND":               "qdrant",
	"EMBEDDING_SQLITE_PATH":           "./data/embeddings.db",
	"EMBEDDING_MAX_INTERVIEW_RECORDS": 0,

	"OTEL_SERVICE_NAME":  "voice-interview",
	"OTLP_ENDPOINT":      "",
	"OTLP_INSECURE":      false,
	"OTEL_STDOUT_TRACES": false,

	"LOG_JSON":  false,
	"LOG_DEBUG": false,
}

// Load reads configuration from the environment, after loading an optional .env file.
func Load() *Config {
	return LoadViper(NewViper())
}

// LoadViper is Load for a caller-prepared viper instance, e.g. one with
// command-line flags bound.
func LoadViper(v *viper.Viper) *Config {
	_ = godotenv.Load()
	return FromViper(v)
}

// NewViper returns a viper instance bound to the environment with every default set.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			SQLitePath: v.GetString("DB_SQLITE_PATH"),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetString("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			DBName:     v.GetString("DB_NAME"),
		},
		Qdrant: QdrantConfig{
			URL:        v.GetString("QDRANT_URL"),
			APIKey:     v.GetString("QDRANT_API_KEY"),
			Collection: v.GetString("QDRANT_COLLECTION"),
			VectorSize: v.GetUint64("QDRANT_VECTOR_SIZE"),
		},
		Gemini: GeminiConfig{
			APIKey:         v.GetString("GEMINI_API_KEY"),
			APIKeyFile:     v.GetString("GEMINI_API_KEY_FILE"),
			ChatModel:      v.GetString("GEMINI_CHAT_MODEL"),
			EmbeddingModel: v.GetString("GEMINI_EMBEDDING_MODEL"),
			SpeechModel:    v.GetString("GEMINI_SPEECH_MODEL"),
			MaxRetries:     v.GetInt("GEMINI_MAX_RETRIES"),
			Timeout:        v.GetDuration("GEMINI_TIMEOUT"),
		},
		Storage: StorageConfig{
			UploadPath:  v.GetString("UPLOAD_PATH"),
			MaxFileSize: v.GetInt64("MAX_FILE_SIZE"),
		},
		Audio: AudioConfig{
			Voice:           v.GetString("TTS_VOICE"),
			Speed:           v.GetFloat64("TTS_SPEED"),
			PlaybackTimeout: v.GetDuration("PLAYBACK_TIMEOUT"),
		},
		Embedding: EmbeddingConfig{
			Backend:             strings.ToLower(v.GetString("EMBEDDING_BACKEND")),
			SQLitePath:          v.GetString("EMBEDDING_SQLITE_PATH"),
			MaxInterviewRecords: v.GetInt("EMBEDDING_MAX_INTERVIEW_RECORDS"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTLP_ENDPOINT"),
			OTLPInsecure: v.GetBool("OTLP_INSECURE"),
			StdoutTraces: v.GetBool("OTEL_STDOUT_TRACES"),
		},
		Log: LogConfig{
			JSON:  v.GetBool("LOG_JSON"),
			Debug: v.GetBool("LOG_DEBUG"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GeminiAPIKey resolves the model API key. When APIKeyFile is set it takes
// precedence over APIKey. The returned key is always trimmed.
func (c *Config) GeminiAPIKey() (string, error) {
	key := c.Gemini.APIKey
	if file := strings.TrimSpace(c.Gemini.APIKeyFile); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading gemini api key from file %q: %w", file, err)
		}
		key = string(data)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("gemini api key is not configured")
	}
	return key, nil
}
