package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Provider names accepted by AI_MODEL, STT_PROVIDER and TTS_PROVIDER.
const (
	ModelAnthropic = "AnthropicAI"
	ModelOpenAI    = "OpenAI"
	ModelGemini    = "Gemini"

	STTHume   = "hume"
	STTGoogle = "google"

	TTSWaveNet    = "wavenet"
	TTSElevenLabs = "elevenlabs"
)

// Config holds all configuration for the application.
type Config struct {
	Environment   string `envconfig:"ENVIRONMENT" default:"development" validate:"oneof=development staging production test"`
	Port          int    `envconfig:"PORT" default:"8501" validate:"gt=0,lte=65535"`
	AppBaseURL    string `envconfig:"APP_BASE_URL" default:"http://localhost:8501" validate:"url"`
	Debug         bool   `envconfig:"DEBUG" default:"false"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"INFO" validate:"oneof=DEBUG INFO WARN WARNING ERROR debug info warn warning error"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	SessionSecret string `envconfig:"SESSION_SECRET" default:"tafep-development-session-secret" validate:"min=16"`

	AIModel         string `envconfig:"AI_MODEL" default:"AnthropicAI" validate:"oneof=AnthropicAI OpenAI Gemini"`
	AIModelVersion  string `envconfig:"AI_MODEL_VERSION"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY" validate:"required_if=AIModel AnthropicAI"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY" validate:"required_if=AIModel OpenAI"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY" validate:"required_if=AIModel Gemini"`

	STTProvider        string        `envconfig:"STT_PROVIDER" default:"hume" validate:"oneof=hume google"`
	HumeAPIKey         string        `envconfig:"HUME_API_KEY" validate:"required_if=STTProvider hume"`
	HumeSecretKey      string        `envconfig:"HUME_SECRET_KEY" validate:"required_if=STTProvider hume"`
	HumeConfigID       string        `envconfig:"HUME_CONFIG_ID" validate:"required_if=STTProvider hume"`
	HumeAPIHost        string        `envconfig:"HUME_API_HOST" default:"api.hume.ai" validate:"required"`
	HumeMessageTimeout time.Duration `envconfig:"HUME_MESSAGE_TIMEOUT" default:"2s" validate:"gt=0"`

	GoogleCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	GoogleProject     string `envconfig:"GOOGLE_CLOUD_PROJECT"`

	TTSProvider       string `envconfig:"TTS_PROVIDER" default:"wavenet" validate:"oneof=wavenet elevenlabs"`
	TTSVoice          string `envconfig:"TTS_VOICE" default:"en-US-Wavenet-D" validate:"required"`
	TTSModel          string `envconfig:"TTS_MODEL" default:"eleven_multilingual_v2" validate:"required"`
	ElevenLabsAPIKey  string `envconfig:"ELEVENLABS_API_KEY" validate:"required_if=TTSProvider elevenlabs"`
	ElevenLabsVoiceID string `envconfig:"ELEVENLABS_VOICE_ID" default:"dFsPk3Np2rLsQ5viBQeB" validate:"required"`
	SpeechQueueSize   int    `envconfig:"SPEECH_QUEUE_SIZE" default:"16" validate:"gt=0"`

	SampleRate         int     `envconfig:"SAMPLE_RATE" default:"16000" validate:"gt=0"`
	SampleWidth        int     `envconfig:"SAMPLE_WIDTH" default:"2" validate:"oneof=2"`
	Channels           int     `envconfig:"CHANNELS" default:"1" validate:"oneof=1 2"`
	ChunkSize          int     `envconfig:"CHUNK_SIZE" default:"1024" validate:"gt=0"`
	SilenceThreshold   int     `envconfig:"SILENCE_THRESHOLD" default:"500" validate:"gte=0,lte=32767"`
	MinAudioLength     float64 `envconfig:"MIN_AUDIO_LENGTH" default:"0.5" validate:"gte=0"`
	MaxSilenceDuration float64 `envconfig:"MAX_SILENCE_DURATION" default:"2.0" validate:"gt=0"`
	MaxUploadBytes     int64   `envconfig:"MAX_UPLOAD_BYTES" default:"10485760" validate:"gt=0"`

	ProbeLimit             int `envconfig:"PROBE_LIMIT" default:"3" validate:"gt=0"`
	MaxConversationHistory int `envconfig:"MAX_CONVERSATION_HISTORY" default:"20" validate:"gt=0"`

	SessionStore string        `envconfig:"SESSION_STORE" default:"memory" validate:"oneof=memory redis"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"24h" validate:"gt=0"`
	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"localhost:6379" validate:"required_if=SessionStore redis"`
	RedisPass    string        `envconfig:"REDIS_PASSWORD"`
	RedisDB      int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`

	CaseStore string `envconfig:"CASE_STORE" default:"memory" validate:"oneof=memory surreal"`
	DBUrl     string `envconfig:"SURREAL_URL" validate:"required_if=CaseStore surreal"`
	DBNs      string `envconfig:"SURREAL_NS" validate:"required_if=CaseStore surreal"`
	DBDb      string `envconfig:"SURREAL_DB" validate:"required_if=CaseStore surreal"`
	DBUser    string `envconfig:"SURREAL_USER"`
	DBPass    string `envconfig:"SURREAL_PASS"`

	EmailProvider string `envconfig:"EMAIL_PROVIDER" default:"log" validate:"oneof=log resend"`
	EmailAPIKey   string `envconfig:"EMAIL_API_KEY" validate:"required_if=EmailProvider resend"`
	EmailSender   string `envconfig:"EMAIL_SENDER" default:"TAFEP <cases@tafep.local>"`
	CaseInbox     string `envconfig:"CASE_INBOX" validate:"omitempty,email"`

	DebugDir           string `envconfig:"DEBUG_DIR" default:"debug" validate:"required"`
	LogsDir            string `envconfig:"LOGS_DIR" default:"logs" validate:"required"`
	TempDir            string `envconfig:"TEMP_DIR" default:"temp" validate:"required"`
	PromptsDir         string `envconfig:"PROMPTS_DIR"`
	MaxDebugRecordings int    `envconfig:"MAX_DEBUG_RECORDINGS" default:"100" validate:"gt=0"`

	TracingEnabled bool   `envconfig:"PUBSUB_TRACING_ENABLED" default:"false"`
	TracingService string `envconfig:"PUBSUB_TRACING_SERVICE_NAME" default:"tafep-voice"`
	ZipkinURL      string `envconfig:"PUBSUB_TRACING_ZIPKIN_URL" default:"http://localhost:9411/api/v2/spans"`
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	loadDotEnv()
	return FromEnv()
}

// LoadUnvalidated is Load without validation, for reporting on a broken setup.
func LoadUnvalidated() (*Config, error) {
	loadDotEnv()
	return read()
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}
}

// FromEnv builds a Config from the current process environment without touching .env.
func FromEnv() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid or missing setting at once.
func (c *Config) Validate() error {
	var problems []string

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if c.usesGoogle() {
		switch {
		case c.GoogleCredentials == "":
			problems = append(problems, "GOOGLE_APPLICATION_CREDENTIALS is required for Google speech services")
		default:
			if _, err := os.Stat(c.GoogleCredentials); err != nil {
				problems = append(problems, fmt.Sprintf("Google credentials file not found at: %s", c.GoogleCredentials))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (c *Config) usesGoogle() bool {
	return c.STTProvider == STTGoogle || c.TTSProvider == TTSWaveNet
}

// ValidationError lists every configuration problem found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n- " + strings.Join(e.Problems, "\n- ")
}

// envNames maps struct field names to their environment variable for error messages.
var envNames = func() map[string]string {
	names := make(map[string]string)
	for _, f := range fieldsOf(Config{}) {
		names[f.Name] = f.Tag.Get("envconfig")
	}
	return names
}()

func describe(fe validator.FieldError) string {
	name := envNames[fe.StructField()]
	if name == "" {
		name = fe.StructField()
	}
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %q validation (value %v)", name, fe.Tag(), fe.Value())
	}
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ModelVersion returns AI_MODEL_VERSION or the provider default.
func (c *Config) ModelVersion() string {
	if c.AIModelVersion != "" {
		return c.AIModelVersion
	}
	switch c.AIModel {
	case ModelOpenAI:
		return "gpt-4"
	case ModelGemini:
		return "gemini-2.5-flash"
	default:
		return "claude-3-5-sonnet-latest"
	}
}

// HumeTokenURL is the OAuth2 client-credentials endpoint for the configured host.
func (c *Config) HumeTokenURL() string {
	return fmt.Sprintf("https://%s/v0/oauth2/token", c.HumeAPIHost)
}

// HumeWebSocketURL builds the EVI chat URL for an access token.
func (c *Config) HumeWebSocketURL(accessToken string) string {
	q := url.Values{}
	q.Set("access_token", accessToken)
	q.Set("config_id", c.HumeConfigID)
	return fmt.Sprintf("wss://%s/v0/evi/chat?%s", c.HumeAPIHost, q.Encode())
}

// SetupDirectories creates the debug, logs and temp directories.
func (c *Config) SetupDirectories() error {
	for _, dir := range []string{c.DebugDir, c.LogsDir, c.TempDir} {
		if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
