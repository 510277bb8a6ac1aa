package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hankgalt/partition-orchestra/pkg/utils"
)

const EnvPrefix = "PARTITION"

const (
	SourceLocal = "local"
	SourceGCS   = "gcs"
)

const (
	ERR_CONFIG_UNKNOWN_SOURCE = "config: source must be local or gcs"
	ERR_CONFIG_FILE_REQUIRED  = "config: file is required"
	ERR_CONFIG_BAD_DELIMITER  = "config: delimiter must be a single character"
)

var (
	ErrConfigUnknownSource = errors.New(ERR_CONFIG_UNKNOWN_SOURCE)
	ErrConfigFileRequired  = errors.New(ERR_CONFIG_FILE_REQUIRED)
	ErrConfigBadDelimiter  = errors.New(ERR_CONFIG_BAD_DELIMITER)
)

// Config holds the run command configuration
type Config struct {
	Source         string
	File           string
	Bucket         string
	Delimiter      rune
	HasHeader      bool
	KeyColumn      string
	Size           int
	MaxConcurrency int
	ProgressEvery  int
	DBFile         string
	ReportDir      string
	LogKey         string
	RunID          string
	MetricsAddr    string
}

// LoadConfig resolves flags, PARTITION_* env vars, .env files & defaults, in that order.
func LoadConfig(v *viper.Viper, flags *pflag.FlagSet) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		// Don't fail if .env can't be loaded
		_ = godotenv.Load()
	}

	env, err := utils.BuildExecutorEnv()
	if err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("source", SourceLocal)
	v.SetDefault("delimiter", ",")
	v.SetDefault("header", true)
	v.SetDefault("key-column", "id")
	v.SetDefault("size", env.PartitionSize)
	v.SetDefault("max-concurrency", env.MaxConcurrency)
	v.SetDefault("progress-every", env.ProgressEvery)
	v.SetDefault("db-file", "partitions.db")
	v.SetDefault("report-dir", "reports")
	v.SetDefault("bucket", os.Getenv("BUCKET"))

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	delim := []rune(v.GetString("delimiter"))
	if len(delim) != 1 {
		return nil, ErrConfigBadDelimiter
	}

	size, err := intSetting(v, "size")
	if err != nil {
		return nil, err
	}
	maxConcurrency, err := intSetting(v, "max-concurrency")
	if err != nil {
		return nil, err
	}
	progressEvery, err := intSetting(v, "progress-every")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Source:         strings.ToLower(v.GetString("source")),
		File:           v.GetString("file"),
		Bucket:         v.GetString("bucket"),
		Delimiter:      delim[0],
		HasHeader:      v.GetBool("header"),
		KeyColumn:      v.GetString("key-column"),
		Size:           size,
		MaxConcurrency: maxConcurrency,
		ProgressEvery:  progressEvery,
		DBFile:         v.GetString("db-file"),
		ReportDir:      v.GetString("report-dir"),
		LogKey:         v.GetString("log-key"),
		RunID:          v.GetString("run-id"),
		MetricsAddr:    v.GetString("metrics-addr"),
	}

	if cfg.Source != SourceLocal && cfg.Source != SourceGCS {
		return nil, ErrConfigUnknownSource
	}
	if cfg.File == "" {
		if cfg.Source == SourceGCS {
			cfg.File = utils.DEFAULT_DATA_PATH + "/" + utils.BuildFileName()
		} else {
			fp, err := utils.BuildFilePath()
			if err != nil {
				return nil, ErrConfigFileRequired
			}
			cfg.File = fp + string(os.PathSeparator) + utils.BuildFileName()
		}
	}

	return cfg, nil
}

// intSetting parses key with the env number rules, so 10_000 & 10,000 are accepted.
func intSetting(v *viper.Viper, key string) (int, error) {
	n, err := utils.ParseNonNegativeInt(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
