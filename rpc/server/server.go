package server

import (
	"context"
	"fmt"

	"github.com/AnalineS/tiercache/rpc/common"
	"github.com/AnalineS/tiercache/rpc/serializer"
	"github.com/AnalineS/tiercache/rpc/transport"
	"github.com/bitmark-inc/logger"
)

// NewRPCServer creates a new cache store server.
// It takes a config, transport and serializer as parameters.
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		store:      NewMemServerStore(),
		adapter:    NewCacheServerAdapter(),
	}
}

type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	store      ServerStore
	adapter    IRPCServerAdapter
	log        *logger.L
}

// registerTransportHandler wires the decode/handle/encode pipeline into
// the transport layer.
func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Decode the request
		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = *common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
		} else {
			// Let the adapter handle the request
			respMsg = *s.adapter.Handle(&msg, s.store)
		}

		// Encode the response
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			s.log.Errorf("failed to serialize response: %v", err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse("failed to serialize response"))
		}
		return val
	})
}

// Serve initializes logging and the transport handler, then blocks
// listening for requests until Shutdown is called.
func (s *RPCServer) Serve() error {
	if err := common.InitLoggers(s.config); err != nil {
		return err
	}
	s.log = logger.New("rpc-server")
	s.log.Infof("created cache server")
	s.log.Infof(s.config.String())

	s.registerTransportHandler()
	return s.transport.Listen(s.config)
}

// ServeNoInit is Serve without global logger initialisation, for
// embedding into a process that already configured logging.
func (s *RPCServer) ServeNoInit() error {
	s.log = logger.New("rpc-server")
	s.registerTransportHandler()
	return s.transport.Listen(s.config)
}

// Shutdown stops the transport, letting in-flight requests finish
// until ctx expires.
func (s *RPCServer) Shutdown(ctx context.Context) error {
	return s.transport.Shutdown(ctx)
}
