// Package statusrpc serves a read-only snapshot of a running supervisor
// over gRPC, the same "serve a read model to an external collector" shape
// the teacher uses in cmd/peer.go and cmd/leader.go, narrowed to the single
// RPC this module needs (SPEC_FULL.md §4.I). It never influences scheduling
// decisions; the control loop only ever writes to it.
package statusrpc

import (
	"context"
	"fmt"
	"net"
	"sync"

	"clustersched/internal/config"
	"clustersched/internal/statusrpc/statuspb"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server owns the gRPC listener and the mutex-guarded snapshot the control
// loop updates once per tick.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener

	mu       sync.RWMutex
	snapshot *structpb.Struct
}

// Start binds a gRPC server to 127.0.0.1:<port> and begins serving in a
// background goroutine. runID and mode are fixed for the lifetime of the
// run and are included in every snapshot.
func Start(port int, runID uuid.UUID, mode config.Mode) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("statusrpc: listen: %w", err)
	}

	initial, err := newSnapshot(runID, mode, config.InitialClusterState, 0, 0)
	if err != nil {
		lis.Close()
		return nil, fmt.Errorf("statusrpc: build initial snapshot: %w", err)
	}

	s := &Server{snapshot: initial}
	s.grpcServer = grpc.NewServer()
	statuspb.RegisterStatusServer(s.grpcServer, s)

	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			logrus.WithError(err).Debug("statusrpc: server stopped")
		}
	}()
	s.listener = lis

	logrus.WithField("addr", lis.Addr().String()).Info("statusrpc: status RPC listening")
	return s, nil
}

// Update replaces the current snapshot. Called once per control-loop tick.
func (s *Server) Update(runID uuid.UUID, mode config.Mode, state config.ClusterState, elapsedMS uint64, tick uint64) {
	snap, err := newSnapshot(runID, mode, state, elapsedMS, tick)
	if err != nil {
		logrus.WithError(err).Debug("statusrpc: build snapshot failed")
		return
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

func newSnapshot(runID uuid.UUID, mode config.Mode, state config.ClusterState, elapsedMS, tick uint64) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"run_id":     runID.String(),
		"mode":       mode.String(),
		"state":      state.String(),
		"elapsed_ms": elapsedMS,
		"tick":       tick,
	})
}

// GetStatus implements statuspb.StatusServer.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, nil
}

// Stop gracefully stops the gRPC server and closes the listener. Safe to
// call on a nil *Server.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}
