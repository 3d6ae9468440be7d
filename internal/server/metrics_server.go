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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/batchserve/batchserve-worker-go/internal/constants"
	"github.com/batchserve/batchserve-worker-go/logger"
)

// MetricsServer serves the prometheus scrape endpoint on its own port
// so that scraping never competes with the health service.
type MetricsServer struct {
	port     int32
	srv      *http.Server
	listener net.Listener
}

func NewMetricsServer(port int32) *MetricsServer {
	return &MetricsServer{
		port: port,
	}
}

// Start binds the listener and serves in the background.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen metrics port %d failed, err=%s", s.port, err.Error())
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{
		Handler: mux,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server stopped serving, err=%s", err.Error())
		}
	}()
	logger.Infof("metrics server listening on %s", ln.Addr().String())
	return nil
}

// Addr returns the bound address, valid after Start.
func (s *MetricsServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *MetricsServer) Stop() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Errorf("metrics server shutdown failed, err=%s", err.Error())
	}
	logger.Infof("metrics server stopped")
}
