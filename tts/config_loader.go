package tts

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("tts.engine") {
		cfg.Engine = viper.GetString("tts.engine")
	}
	if viper.IsSet("tts.language") {
		cfg.Language = viper.GetString("tts.language")
	}
	if viper.IsSet("tts.rate") {
		cfg.Rate = viper.GetFloat64("tts.rate")
	}
	if viper.IsSet("tts.volume") {
		cfg.Volume = viper.GetFloat64("tts.volume")
	}

	var err error
	if cfg.Piper, err = loadPiperConfig(); err != nil {
		return cfg, err
	}
	if cfg.GTTS, err = loadGTTSConfig(); err != nil {
		return cfg, err
	}
	cfg.Mock = loadMockConfig()
	cfg.Cache = loadCacheConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid TTS configuration: %w", err)
	}

	return cfg, nil
}

// loadPiperConfig loads Piper-specific configuration from Viper.
func loadPiperConfig() (PiperConfig, error) {
	cfg := DefaultPiperConfig()

	if viper.IsSet("tts.piper.binary") {
		cfg.Binary = viper.GetString("tts.piper.binary")
	}
	if viper.IsSet("tts.piper.model") {
		cfg.Model = viper.GetString("tts.piper.model")
	}
	if viper.IsSet("tts.piper.config") {
		cfg.Config = viper.GetString("tts.piper.config")
	}
	if viper.IsSet("tts.piper.speaker") {
		cfg.Speaker = viper.GetInt("tts.piper.speaker")
	}
	if viper.IsSet("tts.piper.timeout") {
		d, err := parseDuration("tts.piper.timeout")
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = d
	}

	return cfg, nil
}

// loadGTTSConfig loads gTTS-specific configuration from Viper.
func loadGTTSConfig() (GTTSConfig, error) {
	cfg := DefaultGTTSConfig()

	if viper.IsSet("tts.gtts.binary") {
		cfg.Binary = viper.GetString("tts.gtts.binary")
	}
	if viper.IsSet("tts.gtts.ffmpeg") {
		cfg.FFmpeg = viper.GetString("tts.gtts.ffmpeg")
	}
	if viper.IsSet("tts.gtts.slow") {
		cfg.Slow = viper.GetBool("tts.gtts.slow")
	}
	if viper.IsSet("tts.gtts.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("tts.gtts.requests_per_minute")
	}
	if viper.IsSet("tts.gtts.timeout") {
		d, err := parseDuration("tts.gtts.timeout")
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = d
	}

	return cfg, nil
}

// loadMockConfig loads mock-specific configuration from Viper.
func loadMockConfig() MockConfig {
	cfg := DefaultMockConfig()

	if viper.IsSet("tts.mock.words_per_minute") {
		cfg.WordsPerMinute = viper.GetInt("tts.mock.words_per_minute")
	}
	if viper.IsSet("tts.mock.fail_utterances") {
		cfg.FailUtterances = viper.GetStringSlice("tts.mock.fail_utterances")
	}

	return cfg
}

// loadCacheConfig loads synthesis cache sizing from Viper.
func loadCacheConfig() CacheConfig {
	cfg := DefaultCacheConfig()

	if viper.IsSet("tts.cache.dir") {
		cfg.Dir = viper.GetString("tts.cache.dir")
	}
	if viper.IsSet("tts.cache.memory_mb") {
		cfg.MemoryMB = viper.GetInt("tts.cache.memory_mb")
	}
	if viper.IsSet("tts.cache.disk_mb") {
		cfg.DiskMB = viper.GetInt("tts.cache.disk_mb")
	}
	if viper.IsSet("tts.cache.compression_level") {
		cfg.CompressionLevel = viper.GetInt("tts.cache.compression_level")
	}

	return cfg
}

func parseDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// SetDefaults sets default values in Viper for speech configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("tts.engine", defaults.Engine)
	viper.SetDefault("tts.language", defaults.Language)
	viper.SetDefault("tts.rate", defaults.Rate)
	viper.SetDefault("tts.volume", defaults.Volume)

	// Piper defaults
	viper.SetDefault("tts.piper.binary", defaults.Piper.Binary)
	viper.SetDefault("tts.piper.model", defaults.Piper.Model)
	viper.SetDefault("tts.piper.speaker", defaults.Piper.Speaker)
	viper.SetDefault("tts.piper.timeout", defaults.Piper.Timeout.String())

	// gTTS defaults
	viper.SetDefault("tts.gtts.binary", defaults.GTTS.Binary)
	viper.SetDefault("tts.gtts.ffmpeg", defaults.GTTS.FFmpeg)
	viper.SetDefault("tts.gtts.slow", defaults.GTTS.Slow)
	viper.SetDefault("tts.gtts.requests_per_minute", defaults.GTTS.RequestsPerMinute)
	viper.SetDefault("tts.gtts.timeout", defaults.GTTS.Timeout.String())

	// Mock defaults
	viper.SetDefault("tts.mock.words_per_minute", defaults.Mock.WordsPerMinute)

	// Cache defaults
	viper.SetDefault("tts.cache.memory_mb", defaults.Cache.MemoryMB)
	viper.SetDefault("tts.cache.disk_mb", defaults.Cache.DiskMB)
	viper.SetDefault("tts.cache.compression_level", defaults.Cache.CompressionLevel)
}
