package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revokedtokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.RevocationBackend = config.BackendMemory
	c.BcryptCost = 4
	c.PruneInterval = 0
	return c
}

func TestOpenRevocationStore(t *testing.T) {
	ctx := context.Background()
	rm := repomanager.NewPostgresRepositoryManager()

	t.Run("postgres", func(t *testing.T) {
		c := testConfig()
		c.RevocationBackend = config.BackendPostgres
		store, closer, err := openRevocationStore(ctx, c, nil, rm)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.IsType(t, &revokedtokens.PostgresRepository{}, store)
	})

	t.Run("memory", func(t *testing.T) {
		store, closer, err := openRevocationStore(ctx, testConfig(), nil, rm)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.IsType(t, &revokedtokens.MemoryRepository{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c := testConfig()
		c.RevocationBackend = config.BackendRedis
		c.RedisAddr = mr.Addr()

		store, closer, err := openRevocationStore(ctx, c, nil, rm)
		require.NoError(t, err)
		require.NotNil(t, closer)
		assert.IsType(t, &revokedtokens.RedisRepository{}, store)
		assert.NoError(t, closer())
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		c := testConfig()
		c.RevocationBackend = config.BackendRedis
		c.RedisAddr = addr

		_, _, err = openRevocationStore(ctx, c, nil, rm)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis ping")
	})

	t.Run("unknown", func(t *testing.T) {
		c := testConfig()
		c.RevocationBackend = "etcd"
		_, _, err := openRevocationStore(ctx, c, nil, rm)
		assert.EqualError(t, err, `unknown revocation backend "etcd"`)
	})
}

func TestNewApp_BadSecretDoesNotTakeDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := testConfig()
	c.SecretKey = ""

	_, err = newApp(context.Background(), c, db, repomanager.NewPostgresRepositoryManager(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signer init error")
	// db was not closed by newApp
	require.NoError(t, mock.ExpectationsWereMet())
}

func issuedTokens(t *testing.T, reader sdkmetric.Reader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "authkeeper.tokens.issued" {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestApp_ServesSessionAPI(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	app, err := newApp(context.Background(), testConfig(), db, repomanager.NewPostgresRepositoryManager(), nil, reader)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := pb.NewSessionServiceClient(conn)

	registered := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM users\s+WHERE email = \$1 OR username = \$2`).
		WithArgs("alice@example.com", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "admin", "registered_on"}))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"admin", "registered_on"}).AddRow(false, registered))
	mock.ExpectCommit()

	reg, err := client.Register(ctx, &pb.RegisterRequest{Email: "alice@example.com", Username: "alice", Password: "password1"})
	require.NoError(t, err)
	require.NotEmpty(t, reg.UserId)
	require.NotEmpty(t, reg.AccessToken)
	assert.Equal(t, int64(2), issuedTokens(t, reader))

	mock.ExpectQuery(`SELECT (.+) FROM users\s+WHERE id = \$1`).
		WithArgs(reg.UserId).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "admin", "registered_on"}).
			AddRow(reg.UserId, "alice@example.com", "alice", "x", false, registered))

	authCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+reg.AccessToken)
	st, err := client.Status(authCtx, &pb.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, "alice", st.Username)

	mock.ExpectClose()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}
