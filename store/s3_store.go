package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const ctxTimeout = 10 * time.Second

// S3Config holds connection settings for an S3-compatible backend.
type S3Config struct {
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	KeyPrefix       string `json:"key_prefix"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
}

// S3Store implements Store against an S3-compatible bucket. Object layout:
//
//	bucket/
//	└── [keyPrefix/]notes/
//	    ├── <id>.enc    # envelope
//	    └── <id>.meta   # metadata sidecar
//
// S3 object puts are atomic, which gives Write the same no-partial-read
// guarantee the filesystem store gets from temp+rename.
type S3Store struct {
	client     *minio.Client
	bucketName string
	keyPrefix  string
}

// NewS3Store connects to the configured endpoint and verifies the bucket
// exists.
func NewS3Store(config S3Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	s := &S3Store{
		client:     client,
		bucketName: config.Bucket,
		keyPrefix:  strings.Trim(config.KeyPrefix, "/"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", config.Bucket, err)
		}
	}

	return s, nil
}

// NewS3StoreFromConfig creates an S3Store from a generic StoreConfig.
func NewS3StoreFromConfig(config StoreConfig) (*S3Store, error) {
	data, err := json.Marshal(config.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal S3 config: %w", err)
	}

	var s3Config S3Config
	if err := json.Unmarshal(data, &s3Config); err != nil {
		return nil, fmt.Errorf("invalid S3 config: %w", err)
	}

	return NewS3Store(s3Config)
}

func (s *S3Store) notesPrefix() string {
	if s.keyPrefix == "" {
		return "notes/"
	}
	return s.keyPrefix + "/notes/"
}

func (s *S3Store) envelopeKey(id string) string {
	return path.Join(s.notesPrefix(), id+envelopeExt)
}

func (s *S3Store) metadataKey(id string) string {
	return path.Join(s.notesPrefix(), id+metadataExt)
}

func (s *S3Store) Create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	for i := 0; i < createRetries; i++ {
		id := uuid.New().String()

		_, err := s.client.StatObject(ctx, s.bucketName, s.envelopeKey(id), minio.StatObjectOptions{})
		if err != nil {
			if isNoSuchKey(err) {
				return id, nil
			}
			return "", fmt.Errorf("failed to check note existence: %w", err)
		}
	}
	return "", fmt.Errorf("failed to allocate a unique note ID after %d attempts", createRetries)
}

func (s *S3Store) List() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	prefix := s.notesPrefix()
	var ids []string
	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list notes: %w", object.Err)
		}
		name := strings.TrimPrefix(object.Key, prefix)
		if !strings.HasSuffix(name, envelopeExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, envelopeExt))
	}

	sort.Strings(ids)
	return ids, nil
}

func (s *S3Store) Read(id string) ([]byte, error) {
	if err := validateNoteID(id); err != nil {
		return nil, fmt.Errorf("invalid note ID: %w", err)
	}
	return s.getObject(s.envelopeKey(id), id)
}

func (s *S3Store) Write(id string, envelope []byte) error {
	if err := validateNoteID(id); err != nil {
		return fmt.Errorf("invalid note ID: %w", err)
	}
	if len(envelope) == 0 {
		return fmt.Errorf("envelope cannot be empty")
	}
	return s.putObject(s.envelopeKey(id), envelope)
}

func (s *S3Store) Delete(id string) error {
	if err := validateNoteID(id); err != nil {
		return fmt.Errorf("invalid note ID: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	// RemoveObject succeeds on missing keys, so check first to surface
	// ErrNoteNotFound the way the filesystem store does.
	if _, err := s.client.StatObject(ctx, s.bucketName, s.envelopeKey(id), minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("note %s: %w", id, ErrNoteNotFound)
		}
		return fmt.Errorf("failed to check note %s: %w", id, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, s.envelopeKey(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, s.metadataKey(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete metadata for note %s: %w", id, err)
	}
	return nil
}

func (s *S3Store) ReadMetadata(id string) (*NoteMetadata, error) {
	if err := validateNoteID(id); err != nil {
		return nil, fmt.Errorf("invalid note ID: %w", err)
	}

	data, err := s.getObject(s.metadataKey(id), id)
	if err != nil {
		return nil, err
	}

	var meta NoteMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for note %s: %w", id, err)
	}
	return &meta, nil
}

func (s *S3Store) WriteMetadata(id string, meta *NoteMetadata) error {
	if err := validateNoteID(id); err != nil {
		return fmt.Errorf("invalid note ID: %w", err)
	}
	if meta == nil {
		return fmt.Errorf("metadata cannot be nil")
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return s.putObject(s.metadataKey(id), data)
}

func (s *S3Store) GetType() string {
	return string(StoreTypeS3)
}

func (s *S3Store) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to reach bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucketName)
	}
	return nil
}

func (s *S3Store) Close() error {
	return nil
}

func (s *S3Store) getObject(key, id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	object, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("note %s: %w", id, ErrNoteNotFound)
		}
		return nil, fmt.Errorf("failed to read note %s: %w", id, err)
	}
	return data, nil
}

func (s *S3Store) putObject(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, s.bucketName, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
	}
	return false
}
