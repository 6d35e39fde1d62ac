// Package config loads reviewload settings from an optional YAML file and
// REVIEWLOAD_* environment variables.
package config

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/warp/review-loader/review"
)

// Config holds all configuration for reviewload.
// Environment variables override YAML values. CLI flags override both.
type Config struct {
	// LogPath is the audit log sink used when no log path argument is given.
	LogPath string `yaml:"log_path" env:"REVIEWLOAD_LOG_PATH" env-default:"load_to_db_data.txt" validate:"required"`

	// Diagnostics logger
	LogLevel  string `yaml:"log_level" env:"REVIEWLOAD_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" env:"REVIEWLOAD_LOG_FORMAT" env-default:"console" validate:"oneof=console json"`

	Input InputConfig `yaml:"input"`
	Store StoreConfig `yaml:"store"`
	API   APIConfig   `yaml:"api"`
}

// InputConfig describes the delimited input files.
type InputConfig struct {
	Delimiter    string        `yaml:"delimiter" env:"REVIEWLOAD_DELIMITER" env-default:"," validate:"required"`
	StrictQuotes bool          `yaml:"strict_quotes" env:"REVIEWLOAD_STRICT_QUOTES" env-default:"false"`
	HeaderLines  int           `yaml:"header_lines" env:"REVIEWLOAD_HEADER_LINES" env-default:"1" validate:"min=1"`
	DateLayout   string        `yaml:"date_layout" env:"REVIEWLOAD_DATE_LAYOUT" env-default:"2006-01-02 15:04:05" validate:"required"`
	Columns      ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig maps record fields to header names.
type ColumnsConfig struct {
	ReviewID   string `yaml:"review_id" env:"REVIEWLOAD_COLUMN_REVIEW_ID" env-default:"reviewId" validate:"required"`
	UserName   string `yaml:"user_name" env:"REVIEWLOAD_COLUMN_USER_NAME" env-default:"userName" validate:"required"`
	Content    string `yaml:"content" env:"REVIEWLOAD_COLUMN_CONTENT" env-default:"content" validate:"required"`
	Score      string `yaml:"score" env:"REVIEWLOAD_COLUMN_SCORE" env-default:"score" validate:"required"`
	ThumbsUp   string `yaml:"thumbs_up_count" env:"REVIEWLOAD_COLUMN_THUMBS_UP_COUNT" env-default:"thumbsUpCount" validate:"required"`
	CreatedAt  string `yaml:"created_at" env:"REVIEWLOAD_COLUMN_CREATED_AT" env-default:"date" validate:"required"`
	AppVersion string `yaml:"app_version" env:"REVIEWLOAD_COLUMN_APP_VERSION" env-default:"appVersion" validate:"required"`
}

// StoreConfig holds load-path store options.
type StoreConfig struct {
	// RejectDuplicateReviews fails rows whose reviewId is already stored.
	RejectDuplicateReviews bool `yaml:"reject_duplicate_reviews" env:"REVIEWLOAD_REJECT_DUPLICATE_REVIEWS" env-default:"false"`
}

// APIConfig holds settings for the serve command.
type APIConfig struct {
	Addr           string   `yaml:"addr" env:"REVIEWLOAD_API_ADDR" env-default:":8080" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"REVIEWLOAD_API_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost:5173"`
}

// Load reads path (if non-empty) with environment overrides, or the
// environment alone, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and the column mapping.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Input.DelimiterRune(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Input.Columns.Columns().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DelimiterRune returns the single-character field delimiter. "\t" and
// "tab" both select a tab.
func (in InputConfig) DelimiterRune() (rune, error) {
	d := in.Delimiter
	if d == `\t` || strings.EqualFold(d, "tab") {
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	return r, nil
}

// CSVOptions converts the input settings for review.OpenCSV.
func (in InputConfig) CSVOptions() (review.CSVOptions, error) {
	r, err := in.DelimiterRune()
	if err != nil {
		return review.CSVOptions{}, err
	}
	return review.CSVOptions{Delimiter: r, StrictQuotes: in.StrictQuotes, HeaderLines: in.HeaderLines}, nil
}

// Columns converts the mapping to review.Columns.
func (c ColumnsConfig) Columns() review.Columns {
	return review.Columns{
		ReviewID:   c.ReviewID,
		UserName:   c.UserName,
		Content:    c.Content,
		Score:      c.Score,
		ThumbsUp:   c.ThumbsUp,
		CreatedAt:  c.CreatedAt,
		AppVersion: c.AppVersion,
	}
}
