package server

import (
	"fmt"
	"time"

	"github.com/AnalineS/tiercache/rpc/common"
)

// NewCacheServerAdapter creates the adapter answering the cache
// protocol operations.
func NewCacheServerAdapter() IRPCServerAdapter {
	return &cacheServerAdapter{}
}

type cacheServerAdapter struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IRPCServerAdapter)
// --------------------------------------------------------------------------

func (a *cacheServerAdapter) Handle(req *common.Message, store ServerStore) *common.Message {
	switch req.MsgType {

	case common.MsgTCacheGet:
		value, ok := store.Get(req.Key)
		return common.NewGetResponse(value, ok, nil)

	case common.MsgTCacheGetMany:
		batch := make([]common.BatchValue, len(req.Keys))
		for i, key := range req.Keys {
			value, ok := store.Get(key)
			batch[i] = common.BatchValue{Key: key, Value: value, Ok: ok}
		}
		return common.NewGetManyResponse(batch, nil)

	case common.MsgTCacheSet:
		ttl := time.Duration(req.TTLMs) * time.Millisecond
		store.Set(req.Key, req.Value, ttl)
		return common.NewSetResponse(nil)

	case common.MsgTCacheDelete:
		store.Delete(req.Key)
		return common.NewDeleteResponse(nil)

	case common.MsgTCacheClear:
		store.Clear()
		return common.NewClearResponse(nil)

	case common.MsgTCacheStats:
		return common.NewStatsResponse(store.Stats(), nil)

	default:
		return common.NewErrorResponse(fmt.Sprintf("unsupported message type: %s", req.MsgType))
	}
}
