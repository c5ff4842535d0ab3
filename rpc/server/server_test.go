package server

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/AnalineS/tiercache/lib/batch"
	"github.com/AnalineS/tiercache/lib/fixtures"
	"github.com/AnalineS/tiercache/rpc/client"
	"github.com/AnalineS/tiercache/rpc/common"
	"github.com/AnalineS/tiercache/rpc/serializer"
	rpchttp "github.com/AnalineS/tiercache/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	code := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(code)
}

// startServer boots a server on an ephemeral port and returns its
// endpoint. The server is shut down when the test finishes.
func startServer(t *testing.T, ser serializer.IRPCSerializer) string {
	t.Helper()

	transport := rpchttp.NewHttpServerTransport()
	srv := NewRPCServer(common.ServerConfig{
		Endpoint:      "127.0.0.1:0",
		TimeoutSecond: 5,
		LogLevel:      "critical",
	}, transport, ser)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ServeNoInit() }()

	// wait until the listener is bound
	deadline := time.Now().Add(5 * time.Second)
	for transport.Addr() == nil {
		select {
		case err := <-serveErr:
			t.Fatalf("server exited early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("server never bound its listener")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return fmt.Sprintf("http://%s", transport.Addr())
}

// newTestClient dials the endpoint with the matching serializer.
func newTestClient(t *testing.T, endpoint string, ser serializer.IRPCSerializer) cacheRemote {
	t.Helper()

	store, err := client.NewRemoteStore(common.ClientConfig{
		Endpoints:     []string{endpoint},
		TimeoutSecond: 5,
	}, rpchttp.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	return store
}

// cacheRemote narrows the import for readability in tests.
type cacheRemote = interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, meta map[string]string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	IsReady() bool
}

func TestClientServerRoundTrip(t *testing.T) {
	for name, factory := range map[string]func() serializer.IRPCSerializer{
		"JSON": serializer.NewJSONSerializer,
		"GOB":  serializer.NewGOBSerializer,
	} {
		t.Run(name, func(t *testing.T) {
			ser := factory()
			endpoint := startServer(t, ser)
			store := newTestClient(t, endpoint, ser)
			ctx := context.Background()

			require.True(t, store.IsReady())

			// miss before any write
			_, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			// set and read back
			require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute, map[string]string{"priority": "high"}))
			value, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("v"), value)

			// delete
			require.NoError(t, store.Delete(ctx, "k"))
			_, ok, err = store.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestServerExpiresEntries(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	endpoint := startServer(t, ser)
	store := newTestClient(t, endpoint, ser)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), 10*time.Millisecond, nil))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must be a miss")
}

func TestServerClearAndStats(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	endpoint := startServer(t, ser)

	full, err := client.NewRemoteStore(common.ClientConfig{
		Endpoints:     []string{endpoint},
		TimeoutSecond: 5,
	}, rpchttp.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, full.Set(ctx, "a", []byte("11"), 0, nil))
	require.NoError(t, full.Set(ctx, "b", []byte("2222"), 0, nil))

	stats, err := full.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntryCount)
	assert.Equal(t, int64(6), stats.SizeBytes)
	assert.True(t, stats.Available)

	require.NoError(t, full.Clear(ctx))
	stats, err = full.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EntryCount)
}

func TestGetManyAndBatchingReader(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	endpoint := startServer(t, ser)

	store, err := client.NewRemoteStore(common.ClientConfig{
		Endpoints:     []string{endpoint},
		TimeoutSecond: 5,
	}, rpchttp.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	bulk, ok := store.(client.BulkReader)
	require.True(t, ok)
	ctx := context.Background()

	require.NoError(t, bulk.Set(ctx, "a", []byte("1"), 0, nil))
	require.NoError(t, bulk.Set(ctx, "b", []byte("2"), 0, nil))

	// combined round trip, absent keys missing from the result
	found, err := bulk.GetMany(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, found)

	// concurrent single-key reads coalesce into one combined call; the
	// long wait window means only the size trigger can flush in time
	reader := client.NewBatchingReader(bulk, batch.Config{MaxBatchSize: 3, MaxWait: time.Minute})
	defer reader.Close()

	keys := []string{"a", "b", "missing"}
	values := make([][]byte, len(keys))
	founds := make([]bool, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			value, ok, err := reader.Get(ctx, key)
			assert.NoError(t, err)
			values[i] = value
			founds[i] = ok
		}(i, key)
	}
	wg.Wait()

	assert.Equal(t, []byte("1"), values[0])
	assert.Equal(t, []byte("2"), values[1])
	assert.False(t, founds[2])
}

func TestUnsupportedMessageType(t *testing.T) {
	adapter := NewCacheServerAdapter()
	store := NewMemServerStore()

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTSuccess}, store)
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.NotEmpty(t, resp.Err)
}
