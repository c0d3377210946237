package tts

import (
	"fmt"
	"strings"
	"time"
)

// Engine names accepted by the tts.engine setting.
const (
	EnginePiper = "piper"
	EngineGTTS  = "gtts"
	EngineMock  = "mock"
)

// Config contains all speech configuration options.
type Config struct {
	Engine   string  `yaml:"engine" env:"RECITE_TTS_ENGINE" envDefault:"piper"`
	Language string  `yaml:"language" env:"RECITE_TTS_LANGUAGE" envDefault:"en"`
	Rate     float64 `yaml:"rate" env:"RECITE_TTS_RATE" envDefault:"1.0"`
	Volume   float64 `yaml:"volume" env:"RECITE_TTS_VOLUME" envDefault:"1.0"`

	// Engine-specific configurations
	Piper PiperConfig `yaml:"piper"`
	GTTS  GTTSConfig  `yaml:"gtts"`
	Mock  MockConfig  `yaml:"mock"`

	Cache CacheConfig `yaml:"cache"`
}

// PiperConfig contains settings for the offline Piper engine.
type PiperConfig struct {
	Binary  string        `yaml:"binary" env:"RECITE_TTS_PIPER_BINARY" envDefault:"piper"`
	Model   string        `yaml:"model" env:"RECITE_TTS_PIPER_MODEL" envDefault:"en_US-lessac-medium"`
	Config  string        `yaml:"config" env:"RECITE_TTS_PIPER_CONFIG"`
	Speaker int           `yaml:"speaker" env:"RECITE_TTS_PIPER_SPEAKER" envDefault:"0"`
	Timeout time.Duration `yaml:"timeout" env:"RECITE_TTS_PIPER_TIMEOUT" envDefault:"30s"`
}

// GTTSConfig contains settings for the networked Google TTS engine, which
// shells out to gtts-cli and decodes its MP3 output with ffmpeg.
type GTTSConfig struct {
	Binary            string        `yaml:"binary" env:"RECITE_TTS_GTTS_BINARY" envDefault:"gtts-cli"`
	FFmpeg            string        `yaml:"ffmpeg" env:"RECITE_TTS_GTTS_FFMPEG" envDefault:"ffmpeg"`
	Slow              bool          `yaml:"slow" env:"RECITE_TTS_GTTS_SLOW" envDefault:"false"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"RECITE_TTS_GTTS_REQUESTS_PER_MINUTE" envDefault:"60"`
	Timeout           time.Duration `yaml:"timeout" env:"RECITE_TTS_GTTS_TIMEOUT" envDefault:"30s"`
}

// MockConfig contains settings for the mock engine.
type MockConfig struct {
	WordsPerMinute int      `yaml:"words_per_minute" env:"RECITE_TTS_MOCK_WORDS_PER_MINUTE" envDefault:"180"`
	FailUtterances []string `yaml:"fail_utterances" env:"RECITE_TTS_MOCK_FAIL_UTTERANCES"`
}

// CacheConfig sizes the synthesis cache. A zero DiskMB disables the disk tier.
type CacheConfig struct {
	Dir              string `yaml:"dir" env:"RECITE_TTS_CACHE_DIR"`
	MemoryMB         int    `yaml:"memory_mb" env:"RECITE_TTS_CACHE_MEMORY_MB" envDefault:"32"`
	DiskMB           int    `yaml:"disk_mb" env:"RECITE_TTS_CACHE_DISK_MB" envDefault:"256"`
	CompressionLevel int    `yaml:"compression_level" env:"RECITE_TTS_CACHE_COMPRESSION_LEVEL" envDefault:"3"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:   EnginePiper,
		Language: "en",
		Rate:     1.0,
		Volume:   1.0,
		Piper:    DefaultPiperConfig(),
		GTTS:     DefaultGTTSConfig(),
		Mock:     DefaultMockConfig(),
		Cache:    DefaultCacheConfig(),
	}
}

// DefaultPiperConfig returns default Piper configuration.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:  "piper",
		Model:   "en_US-lessac-medium",
		Timeout: 30 * time.Second,
	}
}

// DefaultGTTSConfig returns default gTTS configuration.
func DefaultGTTSConfig() GTTSConfig {
	return GTTSConfig{
		Binary:            "gtts-cli",
		FFmpeg:            "ffmpeg",
		RequestsPerMinute: 60,
		Timeout:           30 * time.Second,
	}
}

// DefaultMockConfig returns default mock configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		WordsPerMinute: 180,
	}
}

// DefaultCacheConfig returns default cache sizing.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MemoryMB:         32,
		DiskMB:           256,
		CompressionLevel: 3,
	}
}

// Validate checks if the configuration is valid. Engine names are
// normalized to lower case.
func (c *Config) Validate() error {
	validEngines := []string{EnginePiper, EngineGTTS, EngineMock}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = e
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w '%s': must be one of %v", ErrUnknownEngine, c.Engine, validEngines)
	}

	if err := ValidateLanguage(c.Language); err != nil {
		return err
	}
	if err := ValidateRate(c.Rate); err != nil {
		return err
	}
	if c.Volume < 0.0 || c.Volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", c.Volume)
	}

	switch c.Engine {
	case EnginePiper:
		if err := c.Piper.Validate(); err != nil {
			return fmt.Errorf("piper config: %w", err)
		}
	case EngineGTTS:
		if err := c.GTTS.Validate(); err != nil {
			return fmt.Errorf("gtts config: %w", err)
		}
	case EngineMock:
		if err := c.Mock.Validate(); err != nil {
			return fmt.Errorf("mock config: %w", err)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	return nil
}

// Validate checks if the Piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("piper binary path cannot be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("piper model cannot be empty")
	}
	if c.Speaker < 0 {
		return fmt.Errorf("speaker must not be negative, got %d", c.Speaker)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the gTTS configuration is valid.
func (c *GTTSConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("gtts binary path cannot be empty")
	}
	if c.FFmpeg == "" {
		return fmt.Errorf("ffmpeg binary path cannot be empty")
	}
	if c.RequestsPerMinute < 1 || c.RequestsPerMinute > 600 {
		return fmt.Errorf("requests_per_minute must be between 1 and 600, got %d", c.RequestsPerMinute)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.WordsPerMinute < 50 || c.WordsPerMinute > 1000 {
		return fmt.Errorf("words_per_minute must be between 50 and 1000, got %d", c.WordsPerMinute)
	}
	return nil
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.MemoryMB < 0 || c.DiskMB < 0 {
		return fmt.Errorf("cache sizes must not be negative")
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 22 {
		return fmt.Errorf("compression_level must be between 0 and 22, got %d", c.CompressionLevel)
	}
	return nil
}

// ValidateRate checks a speech rate multiplier.
func ValidateRate(rate float64) error {
	if rate < 0.5 || rate > 2.0 {
		return fmt.Errorf("%w, got %.2f", ErrInvalidRate, rate)
	}
	return nil
}

// ValidateLanguage checks that lang looks like a language tag ("en",
// "en-US", "pt_BR").
func ValidateLanguage(lang string) error {
	if len(lang) < 2 || len(lang) > 12 {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	for _, r := range lang {
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	return nil
}

// ToEngineConfig returns the voice settings shared by every engine.
func (c *Config) ToEngineConfig() EngineConfig {
	return EngineConfig{
		Language: c.Language,
		Rate:     c.Rate,
		Volume:   c.Volume,
	}
}
