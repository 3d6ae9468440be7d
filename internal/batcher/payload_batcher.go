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

package batcher

import (
	"errors"
	"sync"
	"time"

	atom "go.uber.org/atomic"

	"github.com/batchserve/batchserve-worker-go/inference"
	"github.com/batchserve/batchserve-worker-go/internal/dispatch"
	"github.com/batchserve/batchserve-worker-go/internal/payload"
	"github.com/batchserve/batchserve-worker-go/internal/utils"
	"github.com/batchserve/batchserve-worker-go/logger"
)

var (
	ErrNilRequest      = errors.New("request is nil")
	ErrRequestTooLarge = errors.New("request batch size exceeds max_batch_size")
	ErrQueueFull       = errors.New("admission queue is full")
	ErrBatcherClosed   = errors.New("batcher is closed")
)

// PayloadBatcher is the producer side of an instance queue. It folds
// incoming requests into an in-formation payload, closes the payload out
// when it reaches a preferred batch size or the max batch size, and
// otherwise lets the delay window sweep it into the queue. Payloads closed
// out by size are marked saturated; payloads flushed by the window stay
// growable so the dequeue-side merge can still rescue them.
type PayloadBatcher struct {
	modelName       string
	maxBatchSize    int32
	maxQueueDelay   time.Duration
	maxQueueSize    int32
	preferredSizes  []int32
	dynamicEnable   bool
	waitForConsumer bool

	queue           *dispatch.PayloadQueue
	pendingRequests *atom.Int32

	mu         sync.Mutex
	cur        *payload.Payload
	flushTimer *time.Timer
	closed     bool
}

type Option func(*PayloadBatcher)

func WithPreferredBatchSizes(sizes []int32) Option {
	return func(b *PayloadBatcher) {
		b.preferredSizes = sizes
	}
}

func WithMaxQueueSize(maxQueueSize int32) Option {
	return func(b *PayloadBatcher) {
		b.maxQueueSize = maxQueueSize
	}
}

func WithDynamicBatching() Option {
	return func(b *PayloadBatcher) {
		b.dynamicEnable = true
	}
}

// WithWaitForConsumer makes Submit block until at least one consumer is
// waiting on the queue before dispatching a payload.
func WithWaitForConsumer() Option {
	return func(b *PayloadBatcher) {
		b.waitForConsumer = true
	}
}

func NewPayloadBatcher(modelName string, maxBatchSize int32, maxQueueDelay time.Duration, queue *dispatch.PayloadQueue, opts ...Option) *PayloadBatcher {
	b := &PayloadBatcher{
		modelName:       modelName,
		maxBatchSize:    maxBatchSize,
		maxQueueDelay:   maxQueueDelay,
		queue:           queue,
		pendingRequests: atom.NewInt32(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit admits one request into the batching window. It assigns the
// request id and enqueue time, and fails fast when the request cannot fit
// any batch or the admission cap is reached.
func (b *PayloadBatcher) Submit(req *inference.Request) error {
	if req == nil {
		return ErrNilRequest
	}
	if b.maxBatchSize > 0 && req.BatchSize() > b.maxBatchSize {
		return ErrRequestTooLarge
	}
	if b.maxQueueSize > 0 && b.pendingRequests.Load() >= b.maxQueueSize {
		logger.Warnf("Model %s admission queue full, pending=%d, cap=%d", b.modelName, b.pendingRequests.Load(), b.maxQueueSize)
		return ErrQueueFull
	}
	if b.waitForConsumer {
		b.queue.WaitForConsumer()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBatcherClosed
	}
	if req.Id() == 0 {
		req.SetId(utils.NextRequestId())
	}
	req.SetEnqueueTime(time.Now())

	if !b.dynamicEnable {
		p := b.newPayloadLocked()
		if err := b.appendLocked(p, req); err != nil {
			b.mu.Unlock()
			return err
		}
		err := b.dispatchLocked(p, false)
		b.mu.Unlock()
		return err
	}

	if b.cur == nil {
		b.cur = b.newPayloadLocked()
		b.armTimerLocked(b.cur)
	} else if b.cur.BatchSize()+req.BatchSize() > b.maxBatchSize {
		// The window payload cannot grow further, close it out early.
		if err := b.flushLocked(true); err != nil {
			b.mu.Unlock()
			return err
		}
		b.cur = b.newPayloadLocked()
		b.armTimerLocked(b.cur)
	}

	if err := b.appendLocked(b.cur, req); err != nil {
		b.mu.Unlock()
		return err
	}

	var err error
	if size := b.cur.BatchSize(); size == b.maxBatchSize || b.isPreferredSize(size) {
		err = b.flushLocked(true)
	} else if b.maxQueueDelay <= 0 {
		// No delay budget to wait out, dispatch immediately.
		err = b.flushLocked(false)
	}
	b.mu.Unlock()
	return err
}

// Flush force-closes the current window, dispatching whatever accumulated.
func (b *PayloadBatcher) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(false)
}

// PendingRequests counts admitted requests not yet executed.
func (b *PayloadBatcher) PendingRequests() int32 {
	return b.pendingRequests.Load()
}

// ReleaseRequests returns admission capacity after requests finished.
func (b *PayloadBatcher) ReleaseRequests(n int32) {
	b.pendingRequests.Sub(n)
}

// Close flushes the in-formation payload and refuses further submits.
func (b *PayloadBatcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	err := b.flushLocked(false)
	b.closed = true
	return err
}

func (b *PayloadBatcher) newPayloadLocked() *payload.Payload {
	p := payload.New(utils.NextPayloadId())
	p.SetBatcherStart(time.Now())
	return p
}

func (b *PayloadBatcher) appendLocked(p *payload.Payload, req *inference.Request) error {
	p.ExecMutex().Lock()
	defer p.ExecMutex().Unlock()
	if err := p.AddRequest(req); err != nil {
		return err
	}
	b.pendingRequests.Inc()
	return nil
}

func (b *PayloadBatcher) isPreferredSize(size int32) bool {
	for _, preferred := range b.preferredSizes {
		if size == preferred {
			return true
		}
	}
	return false
}

func (b *PayloadBatcher) armTimerLocked(p *payload.Payload) {
	if b.maxQueueDelay <= 0 {
		return
	}
	b.flushTimer = time.AfterFunc(b.maxQueueDelay, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// The window may have been closed out by size in the meantime.
		if b.cur != p {
			return
		}
		if err := b.flushLocked(false); err != nil {
			logger.Errorf("Model %s window flush failed: %v", b.modelName, err)
		}
	})
}

// flushLocked dispatches the current window payload. Saturated marks the
// payload full so the dequeue-side merge leaves it alone.
func (b *PayloadBatcher) flushLocked(saturated bool) error {
	if b.cur == nil {
		return nil
	}
	p := b.cur
	b.cur = nil
	if b.flushTimer != nil {
		b.flushTimer.Stop()
		b.flushTimer = nil
	}
	return b.dispatchLocked(p, saturated)
}

func (b *PayloadBatcher) dispatchLocked(p *payload.Payload, saturated bool) error {
	p.ExecMutex().Lock()
	requestCount := int32(len(p.Requests()))
	if requestCount == 0 {
		p.ExecMutex().Unlock()
		return nil
	}
	if saturated {
		p.MarkSaturated()
	}
	p.SetState(payload.StateQueued)
	batchSize := p.BatchSize()
	p.ExecMutex().Unlock()

	if err := b.queue.Enqueue(p); err != nil {
		b.pendingRequests.Sub(requestCount)
		return err
	}
	logger.Debugf("Model %s dispatched payload %d, batchSize=%d, requests=%d, saturated=%t",
		b.modelName, p.Id(), batchSize, requestCount, saturated)
	return nil
}
