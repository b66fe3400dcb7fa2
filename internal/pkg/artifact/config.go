package artifact

import (
	"errors"
	"strings"
	"time"

	"github.com/ManuelReschke/PetsSanta/internal/pkg/env"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"

	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxBytes     = 25 << 20
)

// Config holds artifact storage configuration
type Config struct {
	Driver        string
	LocalDir      string
	PublicBaseURL string

	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicACL       bool

	FetchTimeout time.Duration
	MaxBytes     int64
}

// LoadConfig loads artifact configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Driver:          strings.ToLower(env.GetEnv("ARTIFACT_DRIVER", DriverLocal)),
		LocalDir:        env.GetEnv("ARTIFACT_LOCAL_DIR", "./uploads"),
		PublicBaseURL:   strings.TrimRight(env.GetEnv("ARTIFACT_PUBLIC_BASE_URL", ""), "/"),
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicACL:       env.GetEnvBool("S3_PUBLIC_ACL", false),
		FetchTimeout:    env.GetEnvSeconds("ARTIFACT_FETCH_TIMEOUT_SECONDS", DefaultFetchTimeout),
		MaxBytes:        int64(env.GetEnvInt("ARTIFACT_MAX_BYTES", DefaultMaxBytes)),
	}

	switch config.Driver {
	case DriverLocal:
		if config.PublicBaseURL == "" {
			config.PublicBaseURL = env.PublicBaseURL() + "/uploads"
		}
	case DriverS3:
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required for the s3 artifact driver")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required for the s3 artifact driver")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required for the s3 artifact driver")
		}
	default:
		return nil, errors.New("ARTIFACT_DRIVER must be local or s3")
	}

	return config, nil
}
