package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/AnalineS/tiercache/lib/cache"
	"github.com/AnalineS/tiercache/rpc/common"
	"github.com/AnalineS/tiercache/rpc/serializer"
	"github.com/AnalineS/tiercache/rpc/transport"
)

// NewRemoteStore creates a cache.RemoteStore speaking the cache
// protocol over the given transport and serializer. The transport is
// connected as part of construction.
func NewRemoteStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (cache.RemoteStore, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	s := &remoteStore{
		config:     config,
		transport:  transport,
		serializer: serializer,
	}
	s.ready.Store(true)

	return s, nil
}

type remoteStore struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	ready      atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache.RemoteStore)
// --------------------------------------------------------------------------

func (s *remoteStore) Get(ctx context.Context, key string) (value []byte, loaded bool, err error) {
	req := common.NewGetRequest(key)
	resp, err := invokeRPCRequest(ctx, req, s.transport, s.serializer)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

// GetMany fetches several keys in one round trip. Absent keys are
// simply missing from the result map.
func (s *remoteStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	req := common.NewGetManyRequest(keys)
	resp, err := invokeRPCRequest(ctx, req, s.transport, s.serializer)
	if err != nil {
		return nil, err
	}

	found := make(map[string][]byte, len(resp.Batch))
	for _, item := range resp.Batch {
		if item.Ok {
			found[item.Key] = item.Value
		}
	}
	return found, nil
}

func (s *remoteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, meta map[string]string) error {
	req := common.NewSetRequest(key, value, ttl, meta)
	_, err := invokeRPCRequest(ctx, req, s.transport, s.serializer)
	return err
}

func (s *remoteStore) Delete(ctx context.Context, key string) error {
	req := common.NewDeleteRequest(key)
	_, err := invokeRPCRequest(ctx, req, s.transport, s.serializer)
	return err
}

func (s *remoteStore) Clear(ctx context.Context) error {
	req := common.NewClearRequest()
	_, err := invokeRPCRequest(ctx, req, s.transport, s.serializer)
	return err
}

func (s *remoteStore) IsReady() bool {
	return s.ready.Load()
}

func (s *remoteStore) Stats(ctx context.Context) (cache.RemoteStats, error) {
	req := common.NewStatsRequest()
	resp, err := invokeRPCRequest(ctx, req, s.transport, s.serializer)
	if err != nil {
		return cache.RemoteStats{}, err
	}
	if resp.Stats == nil {
		return cache.RemoteStats{}, nil
	}
	return cache.RemoteStats{
		EntryCount:   resp.Stats.EntryCount,
		ExpiredCount: resp.Stats.ExpiredCount,
		SizeBytes:    resp.Stats.SizeBytes,
		Available:    true,
	}, nil
}

// Close releases the underlying transport. The store reports not ready
// afterwards.
func (s *remoteStore) Close() error {
	s.ready.Store(false)
	return s.transport.Close()
}
