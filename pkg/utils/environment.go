package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

const DEFAULT_DATA_DIR = "data"
const DEFAULT_DATA_PATH string = "partitions"
const DEFAULT_FILE_NAME string = "elements.csv"
const DEFAULT_PARTITION_SIZE int = 100
const DEFAULT_PROGRESS_EVERY int = 1000

// ExecutorEnv is executor tuning read from the environment.
type ExecutorEnv struct {
	PartitionSize  int
	MaxConcurrency int // 0 runs one goroutine per batch
	ProgressEvery  int // 0 disables progress logs
}

// BuildFileName constructs the file name using the FILE_NAME env variable or defaults to DEFAULT_FILE_NAME.
func BuildFileName() string {
	fileName := os.Getenv("FILE_NAME")
	if fileName == "" {
		fileName = DEFAULT_FILE_NAME
		fmt.Printf("FILE_NAME environment variable is not set, using default: %s\n", DEFAULT_FILE_NAME)
	}

	return fileName
}

// BuildFilePath constructs the file path using the DATA_DIR env variable or defaults to "<DEFAULT_DATA_DIR>/<DEFAULT_DATA_PATH>".
func BuildFilePath() (string, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = DEFAULT_DATA_DIR
		fmt.Printf("DATA_DIR environment variable is not set, using default: %s\n", DEFAULT_DATA_DIR)
	}

	filePath := filepath.Join(dataDir, DEFAULT_DATA_PATH)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", fmt.Errorf("data path does not exist: %s", filePath)
	}

	return filePath, nil
}

// BuildCloudFileConfig reads the cloud object location from BUCKET & FILE_NAME.
func BuildCloudFileConfig() (domain.CloudFileConfig, error) {
	filePath, fileName := DEFAULT_DATA_PATH, BuildFileName()
	bucket := os.Getenv("BUCKET")
	if bucket == "" {
		return domain.CloudFileConfig{}, fmt.Errorf("BUCKET environment variable is not set")
	}

	return domain.CloudFileConfig{
		Name:   fileName,
		Path:   filePath,
		Bucket: bucket,
	}, nil
}

// BuildExecutorEnv reads PARTITION_SIZE, MAX_CONCURRENCY & PROGRESS_EVERY, applying defaults for unset values.
func BuildExecutorEnv() (ExecutorEnv, error) {
	env := ExecutorEnv{
		PartitionSize: DEFAULT_PARTITION_SIZE,
		ProgressEvery: DEFAULT_PROGRESS_EVERY,
	}

	if v := os.Getenv("PARTITION_SIZE"); v != "" {
		n, err := ParsePositiveInt(v)
		if err != nil {
			return env, fmt.Errorf("PARTITION_SIZE %q: %w", v, err)
		}
		env.PartitionSize = n
	}
	if v := os.Getenv("MAX_CONCURRENCY"); v != "" {
		n, err := ParseNonNegativeInt(v)
		if err != nil {
			return env, fmt.Errorf("MAX_CONCURRENCY %q: %w", v, err)
		}
		env.MaxConcurrency = n
	}
	if v := os.Getenv("PROGRESS_EVERY"); v != "" {
		n, err := ParseNonNegativeInt(v)
		if err != nil {
			return env, fmt.Errorf("PROGRESS_EVERY %q: %w", v, err)
		}
		env.ProgressEvery = n
	}

	return env, nil
}
