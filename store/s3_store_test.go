package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAccessKey = "minioadmin"
	testSecretKey = "minioadmin"
)

// s3TestConfig returns a config pointing at either the endpoint in
// S3_MINIO_ENDPOINT or a disposable MinIO container.
func s3TestConfig(t *testing.T) S3Config {
	t.Helper()

	endpoint := os.Getenv("S3_MINIO_ENDPOINT")
	if endpoint == "" {
		if testing.Short() {
			t.Skip("skipping S3 store test in short mode")
		}

		ctx := context.Background()
		req := testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     testAccessKey,
				"MINIO_ROOT_PASSWORD": testSecretKey,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		}

		minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			t.Skipf("cannot start MinIO container: %v", err)
		}
		t.Cleanup(func() {
			if err := minioContainer.Terminate(ctx); err != nil {
				t.Logf("Warning: failed to terminate MinIO container: %v", err)
			}
		})

		mappedPort, err := minioContainer.MappedPort(ctx, "9000")
		require.NoError(t, err)
		endpoint = fmt.Sprintf("localhost:%s", mappedPort.Port())
	} else {
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
		}
	}

	return S3Config{
		Endpoint:        endpoint,
		Bucket:          "ryokan-test",
		KeyPrefix:       "unit",
		AccessKeyID:     testAccessKey,
		SecretAccessKey: testSecretKey,
		UseSSL:          false,
	}
}

func TestS3Store(t *testing.T) {
	config := s3TestConfig(t)

	s, err := NewS3Store(config)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping())

	t.Run("WriteReadDelete", func(t *testing.T) {
		id, err := s.Create()
		require.NoError(t, err)

		envelope := []byte("opaque envelope bytes")
		require.NoError(t, s.Write(id, envelope))

		got, err := s.Read(id)
		require.NoError(t, err)
		assert.Equal(t, envelope, got)

		require.NoError(t, s.Delete(id))
		_, err = s.Read(id)
		assert.True(t, errors.Is(err, ErrNoteNotFound))
	})

	t.Run("List", func(t *testing.T) {
		id1, err := s.Create()
		require.NoError(t, err)
		id2, err := s.Create()
		require.NoError(t, err)

		require.NoError(t, s.Write(id1, []byte("a")))
		require.NoError(t, s.Write(id2, []byte("b")))

		ids, err := s.List()
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)

		require.NoError(t, s.Delete(id1))
		require.NoError(t, s.Delete(id2))
	})

	t.Run("Metadata", func(t *testing.T) {
		id, err := s.Create()
		require.NoError(t, err)
		require.NoError(t, s.Write(id, []byte("x")))

		meta := NewNoteMetadata("remote note")
		require.NoError(t, s.WriteMetadata(id, meta))

		got, err := s.ReadMetadata(id)
		require.NoError(t, err)
		assert.Equal(t, "remote note", got.Title)

		require.NoError(t, s.Delete(id))
	})

	t.Run("MissingNote", func(t *testing.T) {
		_, err := s.Read("00000000-0000-4000-8000-000000000000")
		assert.True(t, errors.Is(err, ErrNoteNotFound))
	})
}

func TestStoreFactory(t *testing.T) {
	fsStore, err := NewStore(StoreConfig{
		Type:   StoreTypeFileSystem,
		Config: map[string]interface{}{"base_path": t.TempDir()},
	})
	require.NoError(t, err)
	assert.Equal(t, string(StoreTypeFileSystem), fsStore.GetType())

	_, err = NewStore(StoreConfig{Type: StoreTypeFileSystem})
	assert.Error(t, err)

	_, err = NewStore(StoreConfig{Type: "carrier-pigeon"})
	assert.Error(t, err)
}
