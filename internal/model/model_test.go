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

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/batchserve/batchserve-worker-go/inference"
	"github.com/batchserve/batchserve-worker-go/internal/common"
	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/processor/execcontext"
)

const dynamicModelConfig = `{
	"name": "resnet",
	"max_batch_size": 4,
	"instance_group": {"count": 1},
	"dynamic_batching": {
		"preferred_batch_size": [2],
		"max_queue_delay_microseconds": 10000000
	}
}`

const plainModelConfig = `{
	"name": "plain",
	"max_batch_size": 4,
	"instance_group": {"count": 1}
}`

type echoProcessor struct{}

func (p *echoProcessor) Infer(ctx *execcontext.ExecContext) (*processor.Result, error) {
	result := processor.NewResult(processor.WithIsSucceed(true))
	for _, req := range ctx.Requests() {
		result.SetOutput(req.Id(), append([]byte("echo:"), req.Input()...))
	}
	return result, nil
}

func newTestPool(t *testing.T) *ants.Pool {
	t.Helper()
	pool, err := ants.NewPool(4)
	if err != nil {
		t.Fatalf("Expected no error creating pool, but got %v", err)
	}
	t.Cleanup(pool.Release)
	return pool
}

func parseTestConfig(t *testing.T, raw string) *Config {
	t.Helper()
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("Expected no error parsing config, but got %v", err)
	}
	return cfg
}

func waitResponse(t *testing.T, req *inference.Request) *inference.Response {
	t.Helper()
	select {
	case resp := <-req.ResponseCh():
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a response, but got none within 2s")
		return nil
	}
}

// Test submitted requests flow through batching, execution and response
// delivery.
func TestModelEndToEnd(t *testing.T) {
	m := NewModel(parseTestConfig(t, dynamicModelConfig), &echoProcessor{})
	if err := m.Start(newTestPool(t)); err != nil {
		t.Fatalf("Expected no error starting model, but got %v", err)
	}
	defer m.Stop()

	req1 := inference.NewRequest("resnet", []byte("a"))
	req2 := inference.NewRequest("resnet", []byte("b"))
	if err := m.Submit(req1); err != nil {
		t.Fatalf("Expected no error submitting, but got %v", err)
	}
	if err := m.Submit(req2); err != nil {
		t.Fatalf("Expected no error submitting, but got %v", err)
	}

	if got := string(waitResponse(t, req1).Output()); got != "echo:a" {
		t.Fatalf("Expected output echo:a, but got %s", got)
	}
	if got := string(waitResponse(t, req2).Output()); got != "echo:b" {
		t.Fatalf("Expected output echo:b, but got %s", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Stats().GetPendingRequests() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected pending requests 0, but got %d", m.Stats().GetPendingRequests())
}

// Test Flush dispatches a window smaller than any preferred size.
func TestModelFlushClosesWindow(t *testing.T) {
	m := NewModel(parseTestConfig(t, dynamicModelConfig), &echoProcessor{})
	if err := m.Start(newTestPool(t)); err != nil {
		t.Fatalf("Expected no error starting model, but got %v", err)
	}
	defer m.Stop()

	req := inference.NewRequest("resnet", []byte("solo"))
	if err := m.Submit(req); err != nil {
		t.Fatalf("Expected no error submitting, but got %v", err)
	}
	select {
	case <-req.ResponseCh():
		t.Fatal("Expected request still batching, but got a response")
	case <-time.After(50 * time.Millisecond):
	}

	if err := m.Flush(); err != nil {
		t.Fatalf("Expected no error flushing, but got %v", err)
	}
	if got := string(waitResponse(t, req).Output()); got != "echo:solo" {
		t.Fatalf("Expected output echo:solo, but got %s", got)
	}
}

// Test a stopped model rejects new submissions.
func TestModelSubmitAfterStop(t *testing.T) {
	m := NewModel(parseTestConfig(t, plainModelConfig), &echoProcessor{})
	if err := m.Start(newTestPool(t)); err != nil {
		t.Fatalf("Expected no error starting model, but got %v", err)
	}
	m.Stop()

	err := m.Submit(inference.NewRequest("plain", []byte("late")))
	if !errors.Is(err, ErrModelStopped) {
		t.Fatalf("Expected ErrModelStopped, but got %v", err)
	}
}

// Test stopping a never-started model fails its queued requests instead of
// leaving them hanging.
func TestModelStopFailsQueuedRequests(t *testing.T) {
	m := NewModel(parseTestConfig(t, plainModelConfig), &echoProcessor{})

	req := inference.NewRequest("plain", []byte("stuck"))
	if err := m.Submit(req); err != nil {
		t.Fatalf("Expected no error submitting, but got %v", err)
	}
	m.Stop()

	resp := waitResponse(t, req)
	if !errors.Is(resp.Err(), ErrModelStopped) {
		t.Fatalf("Expected ErrModelStopped response, but got %v", resp.Err())
	}
	if got := m.Stats().GetPendingRequests(); got != 0 {
		t.Fatalf("Expected pending requests 0, but got %d", got)
	}
}

// Test the event sink sees every completed dispatch.
func TestModelEventSink(t *testing.T) {
	events := make(chan *common.DispatchEvent, 4)
	m := NewModel(parseTestConfig(t, plainModelConfig), &echoProcessor{},
		WithEventSink(func(event *common.DispatchEvent) { events <- event }))
	if err := m.Start(newTestPool(t)); err != nil {
		t.Fatalf("Expected no error starting model, but got %v", err)
	}
	defer m.Stop()

	req := inference.NewRequest("plain", []byte("a"))
	if err := m.Submit(req); err != nil {
		t.Fatalf("Expected no error submitting, but got %v", err)
	}
	waitResponse(t, req)

	select {
	case event := <-events:
		if event.GetModelName() != "plain" {
			t.Fatalf("Expected model plain, but got %s", event.GetModelName())
		}
		if event.GetRequestCount() != 1 {
			t.Fatalf("Expected request count 1, but got %d", event.GetRequestCount())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a dispatch event, but got none within 2s")
	}
}

// Test starting twice is refused.
func TestModelDoubleStart(t *testing.T) {
	m := NewModel(parseTestConfig(t, plainModelConfig), &echoProcessor{})
	pool := newTestPool(t)
	if err := m.Start(pool); err != nil {
		t.Fatalf("Expected no error starting model, but got %v", err)
	}
	defer m.Stop()

	if err := m.Start(pool); err == nil {
		t.Fatal("Expected an error starting twice, but got none")
	}
}

// Test register, find, unregister and name listing.
func TestRegistry(t *testing.T) {
	r := &Registry{}

	mb := NewModel(parseTestConfig(t, `{"name": "bert"}`), &echoProcessor{})
	ma := NewModel(parseTestConfig(t, `{"name": "albert"}`), &echoProcessor{})
	if err := r.Register(mb); err != nil {
		t.Fatalf("Expected no error registering, but got %v", err)
	}
	if err := r.Register(ma); err != nil {
		t.Fatalf("Expected no error registering, but got %v", err)
	}
	if err := r.Register(mb); err == nil {
		t.Fatal("Expected duplicate registration error, but got none")
	}

	found, ok := r.Find("bert")
	if !ok || found != mb {
		t.Fatal("Expected to find registered model bert, but did not")
	}
	if _, ok := r.Find("missing"); ok {
		t.Fatal("Expected missing model not found, but it was")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "albert" || names[1] != "bert" {
		t.Fatalf("Expected names [albert bert], but got %v", names)
	}
	if got := r.Len(); got != 2 {
		t.Fatalf("Expected length 2, but got %d", got)
	}

	removed, ok := r.Unregister("bert")
	if !ok || removed != mb {
		t.Fatal("Expected to unregister bert, but did not")
	}
	if _, ok := r.Find("bert"); ok {
		t.Fatal("Expected bert gone after unregister, but it is still there")
	}
}
