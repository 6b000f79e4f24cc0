package storage

import (
	"bytes"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/logging"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs routes the global logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.Config{Level: "info"}) })
	return &buf
}

func TestOpen_Memory(t *testing.T) {
	buf := captureLogs(t)

	s, err := Open(context.Background(), &config.Config{StoreDriver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "sqlite"})
	assert.ErrorContains(t, err, `unknown store driver "sqlite"`)
}

func TestOpen_LogsConnectionOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("mongo", func(t *testing.T) {
		uri := os.Getenv("TEST_MONGODB_URI")
		if uri == "" {
			t.Skip("TEST_MONGODB_URI not set")
		}
		buf := captureLogs(t)

		s, err := Open(ctx, &config.Config{
			StoreDriver:     config.DriverMongo,
			MongoDBURI:      uri,
			MongoDBDatabase: "complaintdesk_test_" + uuid.NewString()[:8],
		})
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.(*MongoStore).complaints.Database().Drop(ctx)
			_ = s.Close(ctx)
		})

		assert.Equal(t, 1, strings.Count(buf.String(), "connected to MongoDB"))
	})

	t.Run("postgres", func(t *testing.T) {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			t.Skip("TEST_POSTGRES_DSN not set")
		}
		buf := captureLogs(t)

		s, err := Open(ctx, &config.Config{StoreDriver: config.DriverPostgres, PostgresDSN: dsn})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close(ctx) })

		assert.Equal(t, 1, strings.Count(buf.String(), "PostgreSQL connection established"))
	})
}
