package internal

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=8080"`
	MetricsPort    int    `env:"METRICS_PORT,default=9090"`
	// Tokens are only verified here; their lifetime is chosen by the issuer.
	JWTSecret string `env:"JWT_SECRET,required=true"`

	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=500ms"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	CleanupInterval    time.Duration `env:"CLEANUP_INTERVAL,default=60s"`
	CleanupCron        string        `env:"CLEANUP_CRON"`
	CompactionInterval time.Duration `env:"COMPACTION_INTERVAL,default=10m"`

	UploadDir      string `env:"UPLOAD_DIR,default=uploads"`
	MaxUploadBytes int    `env:"MAX_UPLOAD_BYTES,default=52428800"`

	TypingRatePerSecond float64 `env:"TYPING_RATE_PER_SECOND,default=5"`
	TypingBurst         int     `env:"TYPING_BURST,default=10"`
}

// LoadConfig reads an optional .env file then the environment.
// Variables already set in the environment win over the file.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	switch {
	case c.CleanupInterval <= 0:
		return fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", c.CleanupInterval)
	case c.CompactionInterval <= 0:
		return fmt.Errorf("COMPACTION_INTERVAL must be positive, got %s", c.CompactionInterval)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	case c.BufferSize <= 0 || c.ConnectionBufferSize <= 0:
		return fmt.Errorf("BUFFER_SIZE and CONNECTION_BUFFER_SIZE must be positive")
	case c.TypingRatePerSecond <= 0 || c.TypingBurst <= 0:
		return fmt.Errorf("TYPING_RATE_PER_SECOND and TYPING_BURST must be positive")
	}
	return nil
}
