/*
 * Copyright (c) 2025 The BatchServe Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/batchserve/batchserve-worker-go/logger"
)

// HealthServer exposes the standard grpc health checking service.
// The empty service name reports the liveness of the worker as a whole,
// every registered model reports under its own name.
type HealthServer struct {
	port       int32
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
}

func NewHealthServer(port int32) *HealthServer {
	return &HealthServer{
		port:   port,
		health: health.NewServer(),
	}
}

// Start binds the listener and serves in the background.
func (s *HealthServer) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen health port %d failed, err=%s", s.port, err.Error())
	}
	s.listener = ln
	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		if err := s.grpcServer.Serve(ln); err != nil {
			logger.Errorf("health server stopped serving, err=%s", err.Error())
		}
	}()
	logger.Infof("health server listening on %s", ln.Addr().String())
	return nil
}

// Addr returns the bound address, valid after Start.
func (s *HealthServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SetServing marks a model as ready to take inference requests.
func (s *HealthServer) SetServing(service string) {
	s.health.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
}

// SetNotServing marks a model as unavailable. Unloaded models keep
// answering NOT_SERVING rather than disappearing from the service map,
// so probes can tell "never loaded" from "loaded then stopped".
func (s *HealthServer) SetNotServing(service string) {
	s.health.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Stop flips every service to NOT_SERVING and drains open connections.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	logger.Infof("health server stopped")
}
