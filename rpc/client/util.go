package client

import (
	"context"
	"fmt"

	"github.com/AnalineS/tiercache/lib/cache"
	"github.com/AnalineS/tiercache/rpc/common"
	"github.com/AnalineS/tiercache/rpc/serializer"
	"github.com/AnalineS/tiercache/rpc/transport"
)

// invokeRPCRequest is the shared request path of the remote store
// client: serialize, send, deserialize, and validate the response.
// A server-side error message classifies as permanent (the request
// reached the server; resending the same request will not help),
// transport failures keep their own classification.
func invokeRPCRequest(
	ctx context.Context,
	req *common.Message,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cache.ErrSerialization, err)
	}

	// Send the request
	respBytes, err := transport.Send(ctx, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("%w: %w", cache.ErrSerialization, err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, cache.Permanent(fmt.Errorf("server error: %s", resp.Err))
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
