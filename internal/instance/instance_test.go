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

package instance

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	atom "go.uber.org/atomic"

	"github.com/batchserve/batchserve-worker-go/inference"
	"github.com/batchserve/batchserve-worker-go/internal/common"
	"github.com/batchserve/batchserve-worker-go/internal/dispatch"
	"github.com/batchserve/batchserve-worker-go/internal/payload"
	"github.com/batchserve/batchserve-worker-go/internal/utils"
	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/processor/execcontext"
)

type echoProcessor struct {
	inferCount *atom.Int32
}

func newEchoProcessor() *echoProcessor {
	return &echoProcessor{inferCount: atom.NewInt32(0)}
}

func (p *echoProcessor) Infer(ctx *execcontext.ExecContext) (*processor.Result, error) {
	p.inferCount.Inc()
	result := processor.NewResult(processor.WithStatus(processor.BatchStatusSucceed))
	for _, req := range ctx.Requests() {
		result.SetOutput(req.Id(), append([]byte("echo:"), req.Input()...))
	}
	return result, nil
}

type failingProcessor struct{}

func (p *failingProcessor) Infer(ctx *execcontext.ExecContext) (*processor.Result, error) {
	return nil, errors.New("model backend unavailable")
}

type panicOnceProcessor struct {
	echoProcessor
	panicked *atom.Bool
}

func (p *panicOnceProcessor) Infer(ctx *execcontext.ExecContext) (*processor.Result, error) {
	if p.panicked.CAS(false, true) {
		panic("tensor shape mismatch")
	}
	return p.echoProcessor.Infer(ctx)
}

type warmupEchoProcessor struct {
	echoProcessor
	warmupCount *atom.Int32
}

func (p *warmupEchoProcessor) Warmup(ctx *execcontext.ExecContext) error {
	p.warmupCount.Inc()
	return nil
}

func newQueuedPayload(t *testing.T, requests ...*inference.Request) *payload.Payload {
	t.Helper()
	p := payload.New(utils.NextPayloadId())
	for _, req := range requests {
		req.SetId(utils.NextRequestId())
		if err := p.AddRequest(req); err != nil {
			t.Fatalf("Expected no error adding request, but got %v", err)
		}
	}
	p.ExecMutex().Lock()
	p.SetState(payload.StateQueued)
	p.ExecMutex().Unlock()
	return p
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

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Expected condition to hold within timeout, but it did not")
}

func waitDone(t *testing.T, inst *Instance) {
	t.Helper()
	select {
	case <-inst.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected instance to stop, but it did not within 2s")
	}
}

// Test a started instance consumes a queued payload, runs the processor and
// answers every request.
func TestInstanceExecutesAndResponds(t *testing.T) {
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatalf("Expected no error creating pool, but got %v", err)
	}
	defer pool.Release()

	pq := dispatch.NewPayloadQueue(8, 0)
	req1 := inference.NewRequest("resnet", []byte("a"))
	req2 := inference.NewRequest("resnet", []byte("b"))
	p := newQueuedPayload(t, req1, req2)
	if err := pq.Enqueue(p); err != nil {
		t.Fatalf("Expected no error enqueueing, but got %v", err)
	}

	inst := NewInstance("resnet", 1, newEchoProcessor(), pq)
	if err := inst.Start(pool); err != nil {
		t.Fatalf("Expected no error starting instance, but got %v", err)
	}

	resp1 := waitResponse(t, req1)
	if resp1.Err() != nil {
		t.Fatalf("Expected no response error, but got %v", resp1.Err())
	}
	if got := string(resp1.Output()); got != "echo:a" {
		t.Fatalf("Expected output echo:a, but got %s", got)
	}
	resp2 := waitResponse(t, req2)
	if got := string(resp2.Output()); got != "echo:b" {
		t.Fatalf("Expected output echo:b, but got %s", got)
	}

	waitUntil(t, 2*time.Second, func() bool {
		return inst.Stats().GetDispatchCount() == 1
	})
	if got := inst.Stats().GetRequestCount(); got != 2 {
		t.Fatalf("Expected request count 2, but got %d", got)
	}

	pq.Close()
	waitDone(t, inst)
	if p.State() != payload.StateReleased {
		t.Fatalf("Expected payload released, but got state %s", p.State())
	}
}

// Test a processor error is delivered to every request of the batch.
func TestInstanceDeliversBatchError(t *testing.T) {
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatalf("Expected no error creating pool, but got %v", err)
	}
	defer pool.Release()

	pq := dispatch.NewPayloadQueue(8, 0)
	req1 := inference.NewRequest("resnet", []byte("a"))
	req2 := inference.NewRequest("resnet", []byte("b"))
	if err := pq.Enqueue(newQueuedPayload(t, req1, req2)); err != nil {
		t.Fatalf("Expected no error enqueueing, but got %v", err)
	}

	inst := NewInstance("resnet", 1, &failingProcessor{}, pq)
	if err := inst.Start(pool); err != nil {
		t.Fatalf("Expected no error starting instance, but got %v", err)
	}

	for _, req := range []*inference.Request{req1, req2} {
		resp := waitResponse(t, req)
		if resp.Err() == nil {
			t.Fatal("Expected a response error, but got none")
		}
		if !strings.Contains(resp.Err().Error(), "model backend unavailable") {
			t.Fatalf("Expected backend error, but got %v", resp.Err())
		}
	}

	waitUntil(t, 2*time.Second, func() bool {
		return inst.Stats().GetFailedCount() == 1
	})
	pq.Close()
	waitDone(t, inst)
}

// Test a processor panic fails the batch but keeps the consumer loop alive
// for the next payload.
func TestInstanceSurvivesProcessorPanic(t *testing.T) {
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatalf("Expected no error creating pool, but got %v", err)
	}
	defer pool.Release()

	pq := dispatch.NewPayloadQueue(8, 0)
	proc := &panicOnceProcessor{echoProcessor: *newEchoProcessor(), panicked: atom.NewBool(false)}
	inst := NewInstance("resnet", 1, proc, pq)
	if err := inst.Start(pool); err != nil {
		t.Fatalf("Expected no error starting instance, but got %v", err)
	}

	req1 := inference.NewRequest("resnet", []byte("a"))
	if err := pq.Enqueue(newQueuedPayload(t, req1)); err != nil {
		t.Fatalf("Expected no error enqueueing, but got %v", err)
	}
	resp1 := waitResponse(t, req1)
	if resp1.Err() == nil {
		t.Fatal("Expected a panic error response, but got none")
	}
	if !strings.Contains(resp1.Err().Error(), "processor panic") {
		t.Fatalf("Expected processor panic error, but got %v", resp1.Err())
	}

	req2 := inference.NewRequest("resnet", []byte("b"))
	if err := pq.Enqueue(newQueuedPayload(t, req2)); err != nil {
		t.Fatalf("Expected no error enqueueing, but got %v", err)
	}
	resp2 := waitResponse(t, req2)
	if resp2.Err() != nil {
		t.Fatalf("Expected recovery after panic, but got %v", resp2.Err())
	}
	if got := string(resp2.Output()); got != "echo:b" {
		t.Fatalf("Expected output echo:b, but got %s", got)
	}

	pq.Close()
	waitDone(t, inst)
}

// Test the completion hook reports the executed batch.
func TestInstanceDispatchEventHook(t *testing.T) {
	ass := assert.New(t)

	pool, err := ants.NewPool(2)
	ass.Nil(err)
	defer pool.Release()

	events := make(chan *common.DispatchEvent, 4)
	pq := dispatch.NewPayloadQueue(8, 0)
	inst := NewInstance("resnet", 1, newEchoProcessor(), pq, WithOnDispatch(func(event *common.DispatchEvent) {
		events <- event
	}))

	req1 := inference.NewRequest("resnet", []byte("a"))
	req2 := inference.NewRequest("resnet", []byte("b"), inference.WithBatchSize(3))
	p := newQueuedPayload(t, req1, req2)
	ass.Nil(pq.Enqueue(p))
	ass.Nil(inst.Start(pool))

	select {
	case event := <-events:
		ass.Equal(utils.GetDispatchUniqueId("resnet", inst.Id(), p.Id()), event.GetUniqueId())
		ass.Equal("resnet", event.GetModelName())
		ass.Equal(int32(4), event.GetBatchSize())
		ass.Equal(int32(2), event.GetRequestCount())
		ass.Equal(int32(0), event.GetMergedCount())
		ass.Equal(processor.BatchStatusSucceed.Descriptor(), event.GetStatus())
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a dispatch event, but got none within 2s")
	}

	pq.Close()
	waitDone(t, inst)
}

// Test Warmup runs before the first batch is served.
func TestInstanceWarmupBeforeServing(t *testing.T) {
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatalf("Expected no error creating pool, but got %v", err)
	}
	defer pool.Release()

	pq := dispatch.NewPayloadQueue(8, 0)
	proc := &warmupEchoProcessor{echoProcessor: *newEchoProcessor(), warmupCount: atom.NewInt32(0)}
	inst := NewInstance("resnet", 1, proc, pq)
	if err := inst.Start(pool); err != nil {
		t.Fatalf("Expected no error starting instance, but got %v", err)
	}

	req := inference.NewRequest("resnet", []byte("a"))
	if err := pq.Enqueue(newQueuedPayload(t, req)); err != nil {
		t.Fatalf("Expected no error enqueueing, but got %v", err)
	}
	waitResponse(t, req)

	if got := proc.warmupCount.Load(); got != 1 {
		t.Fatalf("Expected 1 warmup call, but got %d", got)
	}

	pq.Close()
	waitDone(t, inst)
}

// Test payloads merged on dequeue are answered and released together with
// the head.
func TestInstanceMergedBatchResponses(t *testing.T) {
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatalf("Expected no error creating pool, but got %v", err)
	}
	defer pool.Release()

	events := make(chan *common.DispatchEvent, 4)
	pq := dispatch.NewPayloadQueue(8, 100*time.Nanosecond)
	inst := NewInstance("resnet", 1, newEchoProcessor(), pq, WithOnDispatch(func(event *common.DispatchEvent) {
		events <- event
	}))

	req1 := inference.NewRequest("resnet", []byte("a"))
	req2 := inference.NewRequest("resnet", []byte("b"))
	p1 := newQueuedPayload(t, req1)
	p2 := newQueuedPayload(t, req2)
	p1.SetBatcherStart(time.Now().Add(-time.Second))
	p2.SetBatcherStart(time.Now().Add(-time.Second))
	if err := pq.Enqueue(p1); err != nil {
		t.Fatalf("Expected no error enqueueing, but got %v", err)
	}
	if err := pq.Enqueue(p2); err != nil {
		t.Fatalf("Expected no error enqueueing, but got %v", err)
	}

	if err := inst.Start(pool); err != nil {
		t.Fatalf("Expected no error starting instance, but got %v", err)
	}

	if got := string(waitResponse(t, req1).Output()); got != "echo:a" {
		t.Fatalf("Expected output echo:a, but got %s", got)
	}
	if got := string(waitResponse(t, req2).Output()); got != "echo:b" {
		t.Fatalf("Expected output echo:b, but got %s", got)
	}

	select {
	case event := <-events:
		if event.GetMergedCount() != 1 {
			t.Fatalf("Expected merged count 1, but got %d", event.GetMergedCount())
		}
		if event.GetRequestCount() != 2 {
			t.Fatalf("Expected request count 2, but got %d", event.GetRequestCount())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a dispatch event, but got none within 2s")
	}

	pq.Close()
	waitDone(t, inst)
	if p1.State() != payload.StateReleased || p2.State() != payload.StateReleased {
		t.Fatalf("Expected both payloads released, but got %s and %s", p1.State(), p2.State())
	}
}
