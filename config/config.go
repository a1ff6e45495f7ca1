package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for the OCR service.
type Config struct {
	ServerPort     string
	MaxUploadBytes int64

	Engine         string // "tesseract" or "paddle"
	TessdataPrefix string
	Language       string
	PaddleURL      string
	GPUEnabled     bool

	LogLevel string
}

// Load reads configuration from an optional YAML file and OCR_API_*
// environment variables, falling back to defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "5000")
	v.SetDefault("upload.max_bytes", 20*1024*1024)
	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.tessdata_prefix", "/usr/share/tesseract-ocr/5/tessdata/")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.paddle_url", "http://paddleocr:8866/predict/ocr_system")
	v.SetDefault("ocr.gpu_enabled", false)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("OCR_API")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, everything has a default.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:     v.GetString("server.port"),
		MaxUploadBytes: v.GetInt64("upload.max_bytes"),
		Engine:         v.GetString("ocr.engine"),
		TessdataPrefix: v.GetString("ocr.tessdata_prefix"),
		Language:       v.GetString("ocr.language"),
		PaddleURL:      v.GetString("ocr.paddle_url"),
		GPUEnabled:     v.GetBool("ocr.gpu_enabled"),
		LogLevel:       v.GetString("log.level"),
	}

	if cfg.Engine != "tesseract" && cfg.Engine != "paddle" {
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}

	return cfg, nil
}
