package sources

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/storage"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

// Error constants and variables
const (
	ErrMsgCloudCSVClientNotInitialized = "cloud csv: client is not initialized"
	ErrMsgCloudCSVObjectPathRequired   = "cloud csv: object path is required"
	ErrMsgCloudCSVBucketRequired       = "cloud csv: bucket name is required"
	ErrMsgCloudCSVUnsupportedProvider  = "cloud csv: unsupported provider, only 'gcs' is supported"
	ErrMsgCloudCSVMissingCreds         = "cloud csv: missing credentials path"
	ErrMsgCloudCSVObjectNotExist       = "cloud csv: object does not exist or error getting attributes"
	ErrMsgCloudCSVEmptyObject          = "cloud csv: object is empty"
)

var (
	ErrCloudCSVClientNotInitialized = errors.New(ErrMsgCloudCSVClientNotInitialized)
	ErrCloudCSVObjectPathRequired   = errors.New(ErrMsgCloudCSVObjectPathRequired)
	ErrCloudCSVBucketRequired       = errors.New(ErrMsgCloudCSVBucketRequired)
	ErrCloudCSVUnsupportedProvider  = errors.New(ErrMsgCloudCSVUnsupportedProvider)
	ErrCloudCSVMissingCreds         = errors.New(ErrMsgCloudCSVMissingCreds)
	ErrCloudCSVObjectNotExist       = errors.New(ErrMsgCloudCSVObjectNotExist)
	ErrCloudCSVEmptyObject          = errors.New(ErrMsgCloudCSVEmptyObject)
)

const (
	CloudCSVSource = "cloud-csv-source"
)

type CloudSource string

const (
	CloudSourceGCS CloudSource = "gcs"
)

// Cloud CSV (GCS) source.
type cloudCSVSource struct {
	path      string
	bucket    string
	size      int64
	delimiter rune
	hasHeader bool
	client    *storage.Client // GCP Storage client
}

// Close closes the storage client.
func (s *cloudCSVSource) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Name of the source.
func (s *cloudCSVSource) Name() string { return CloudCSVSource }

// Load streams the whole object through the CSV reader.
// Ensure the environment variable is set for GCP credentials.
func (s *cloudCSVSource) Load(ctx context.Context) ([]domain.CSVRow, error) {
	// Ensure client is initialized
	if s.client == nil {
		return nil, ErrCloudCSVClientNotInitialized
	}

	rc, err := s.client.Bucket(s.bucket).Object(s.path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloud csv: error creating reader for object %s in bucket %s: %w", s.path, s.bucket, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Println("cloud csv: error closing reader", err)
		}
	}()

	rows, err := ReadCSVRows(ctx, rc, s.delimiter, s.hasHeader)
	if err != nil {
		return rows, fmt.Errorf("cloud csv: gs://%s/%s: %w", s.bucket, s.path, err)
	}
	return rows, nil
}

// Cloud CSV (GCS) - source config.
type CloudCSVConfig struct {
	Provider  string // "gcs"
	Bucket    string
	Path      string
	Delimiter rune // e.g., ',', '|'
	HasHeader bool
}

// Name of the source.
func (c CloudCSVConfig) Name() string { return CloudCSVSource }

// Validate checks the config without touching the network.
func (c CloudCSVConfig) Validate() error {
	if c.Path == "" {
		return ErrCloudCSVObjectPathRequired
	}
	if c.Bucket == "" {
		return ErrCloudCSVBucketRequired
	}
	if c.Provider != "" && CloudSource(c.Provider) != CloudSourceGCS {
		return ErrCloudCSVUnsupportedProvider
	}
	// Ensure the environment variable is set for GCP credentials
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return ErrCloudCSVMissingCreds
	}
	return nil
}

// BuildSource builds a cloud CSV source from the config.
func (c CloudCSVConfig) BuildSource(ctx context.Context) (domain.ElementSource[domain.CSVRow], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.Delimiter == 0 {
		c.Delimiter = ',' // default
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloud csv: failed to create storage client: %w", err)
	}

	attrs, err := client.Bucket(c.Bucket).Object(c.Path).Attrs(ctx)
	if err != nil {
		if err := client.Close(); err != nil {
			log.Println("cloud csv: error closing client:", err)
		}
		log.Println("cloud csv: object does not exist:", err)
		return nil, ErrCloudCSVObjectNotExist
	}
	if attrs.Size <= 0 {
		if err := client.Close(); err != nil {
			log.Println("cloud csv: error closing client:", err)
		}
		return nil, ErrCloudCSVEmptyObject
	}

	return &cloudCSVSource{
		bucket:    c.Bucket,
		path:      c.Path,
		size:      attrs.Size,
		delimiter: c.Delimiter,
		hasHeader: c.HasHeader,
		client:    client,
	}, nil
}
