package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
)

// EnvPrefix is prepended to every setting when read from the environment,
// e.g. ANJ_SERVER_PORT.
const EnvPrefix = "ANJ"

type Config struct {
	ServerPort        string
	TesseractDataPath string
	OCRLanguage       string
	PaddleOCRURL      string
	OCRWorkers        int
	DBPath            string
	MaxFileSize       int64
	RateLimit         int
	RateBurst         int
	MaxConcurrent     int
	LogLevel          string
}

// Load reads settings from an optional .env file, the ANJ_* environment and
// an optional plain "key value" config file. Environment values win over the
// config file.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	fset := ff.NewFlagSet("anj")
	var (
		serverPort    = fset.StringLong("server-port", "8080", "HTTP server port")
		tessdata      = fset.StringLong("tessdata-prefix", "/usr/share/tesseract-ocr/5/tessdata/", "Tesseract tessdata directory")
		ocrLanguage   = fset.StringLong("ocr-language", "eng", "Tesseract language(s), e.g. eng or eng+hin")
		paddleURL     = fset.StringLong("paddleocr-url", "", "PaddleOCR HTTP endpoint; empty disables it")
		ocrWorkers    = fset.IntLong("ocr-workers", 4, "Concurrent OCR workers for scanned PDF pages")
		dbPath        = fset.StringLong("db-path", "anj-invoice.db", "Bill history database file")
		maxUploadMB   = fset.IntLong("max-upload-mb", 10, "Maximum upload size in MB")
		rateLimit     = fset.IntLong("rate-limit", 10, "Upload requests per second")
		rateBurst     = fset.IntLong("rate-burst", 20, "Upload request burst")
		maxConcurrent = fset.IntLong("max-concurrent", 4, "Maximum concurrent text extractions")
		logLevel      = fset.StringLong("log-level", "info", "Log level: debug, info, warn, error")
	)

	opts := []ff.Option{ff.WithEnvVarPrefix(EnvPrefix)}
	if configFile != "" {
		opts = append(opts,
			ff.WithConfigFile(configFile),
			ff.WithConfigFileParser(ff.PlainParser),
		)
	}

	if err := ff.Parse(fset, nil, opts...); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &Config{
		ServerPort:        *serverPort,
		TesseractDataPath: *tessdata,
		OCRLanguage:       *ocrLanguage,
		PaddleOCRURL:      *paddleURL,
		OCRWorkers:        *ocrWorkers,
		DBPath:            *dbPath,
		MaxFileSize:       int64(*maxUploadMB) << 20,
		RateLimit:         *rateLimit,
		RateBurst:         *rateBurst,
		MaxConcurrent:     *maxConcurrent,
		LogLevel:          *logLevel,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("server port is required")
	}
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d bytes", c.MaxFileSize)
	}
	if c.OCRWorkers < 1 {
		return fmt.Errorf("ocr workers must be at least 1, got %d", c.OCRWorkers)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent extractions must be at least 1, got %d", c.MaxConcurrent)
	}
	return nil
}
