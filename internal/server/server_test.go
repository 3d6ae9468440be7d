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
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/batchserve/batchserve-worker-go/internal/metrics"
)

func dialAddr(t *testing.T, addr string) string {
	t.Helper()
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Expected a host:port address, but got %s", addr)
	}
	return fmt.Sprintf("localhost:%s", port)
}

// Test the health service answers per-model serving status
func TestHealthServerServingStatus(t *testing.T) {
	srv := NewHealthServer(0)
	if err := srv.Start(); err != nil {
		t.Fatalf("Expected health server to start, but got err=%s", err.Error())
	}
	defer srv.Stop()

	conn, err := grpc.Dial(dialAddr(t, srv.Addr()), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Expected dial to succeed, but got err=%s", err.Error())
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ""})
	if err != nil {
		t.Fatalf("Expected overall check to succeed, but got err=%s", err.Error())
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("Expected SERVING, but got %s", resp.GetStatus())
	}

	srv.SetServing("resnet")
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "resnet"})
	if err != nil {
		t.Fatalf("Expected model check to succeed, but got err=%s", err.Error())
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("Expected SERVING for resnet, but got %s", resp.GetStatus())
	}

	srv.SetNotServing("resnet")
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "resnet"})
	if err != nil {
		t.Fatalf("Expected model check to succeed, but got err=%s", err.Error())
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("Expected NOT_SERVING for resnet, but got %s", resp.GetStatus())
	}
}

// Test unknown services report NotFound instead of a bogus status
func TestHealthServerUnknownService(t *testing.T) {
	srv := NewHealthServer(0)
	if err := srv.Start(); err != nil {
		t.Fatalf("Expected health server to start, but got err=%s", err.Error())
	}
	defer srv.Stop()

	conn, err := grpc.Dial(dialAddr(t, srv.Addr()), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Expected dial to succeed, but got err=%s", err.Error())
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "no-such-model"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("Expected NotFound, but got %v", err)
	}
}

// Test the metrics endpoint exposes the worker collectors
func TestMetricsServerScrape(t *testing.T) {
	metrics.ObserveRequest("resnet")

	srv := NewMetricsServer(0)
	if err := srv.Start(); err != nil {
		t.Fatalf("Expected metrics server to start, but got err=%s", err.Error())
	}
	defer srv.Stop()

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", dialAddr(t, srv.Addr())))
	if err != nil {
		t.Fatalf("Expected scrape to succeed, but got err=%s", err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Expected body read to succeed, but got err=%s", err.Error())
	}
	if !strings.Contains(string(body), "batchserve_requests_total") {
		t.Fatalf("Expected scrape output to contain batchserve_requests_total")
	}
}
