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
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	atom "go.uber.org/atomic"

	"github.com/batchserve/batchserve-worker-go/config"
	"github.com/batchserve/batchserve-worker-go/inference"
	"github.com/batchserve/batchserve-worker-go/internal/batcher"
	"github.com/batchserve/batchserve-worker-go/internal/common"
	"github.com/batchserve/batchserve-worker-go/internal/constants"
	"github.com/batchserve/batchserve-worker-go/internal/dispatch"
	"github.com/batchserve/batchserve-worker-go/internal/instance"
	"github.com/batchserve/batchserve-worker-go/internal/metrics"
	"github.com/batchserve/batchserve-worker-go/logger"
	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/stats"
)

var ErrModelStopped = errors.New("model is stopped")

// Model owns the serving pipeline of one registered model: the batcher
// that admits requests, the payload queue and the execution instances
// consuming it. All instances share the model's queue, so whichever one
// is free picks up the next batch.
type Model struct {
	config    *Config
	proc      processor.Processor
	queue     *dispatch.PayloadQueue
	batcher   *batcher.PayloadBatcher
	instances []*instance.Instance
	eventSink func(event *common.DispatchEvent)

	stopStatsCh chan struct{}
	started     *atom.Bool
	stopped     *atom.Bool
}

type Option func(*Model)

// WithEventSink forwards every completion event, after the model's own
// bookkeeping, to an external consumer such as the dispatch history.
func WithEventSink(fn func(event *common.DispatchEvent)) Option {
	return func(m *Model) {
		m.eventSink = fn
	}
}

func NewModel(cfg *Config, proc processor.Processor, opts ...Option) *Model {
	m := &Model{
		config:      cfg,
		proc:        proc,
		stopStatsCh: make(chan struct{}),
		started:     atom.NewBool(false),
		stopped:     atom.NewBool(false),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.queue = dispatch.NewPayloadQueue(cfg.MaxBatchSize(), cfg.MaxQueueDelay())

	batcherOpts := []batcher.Option{batcher.WithMaxQueueSize(cfg.MaxQueueSize())}
	if len(cfg.PreferredBatchSizes()) > 0 {
		batcherOpts = append(batcherOpts, batcher.WithPreferredBatchSizes(cfg.PreferredBatchSizes()))
	}
	if cfg.DynamicBatchingEnable() {
		batcherOpts = append(batcherOpts, batcher.WithDynamicBatching())
	}
	if config.GetWorkerConfig().WaitForConsumerEnable() {
		batcherOpts = append(batcherOpts, batcher.WithWaitForConsumer())
	}
	m.batcher = batcher.NewPayloadBatcher(cfg.Name(), cfg.MaxBatchSize(), cfg.MaxQueueDelay(), m.queue, batcherOpts...)

	for i := int32(0); i < cfg.InstanceCount(); i++ {
		m.instances = append(m.instances,
			instance.NewInstance(cfg.Name(), cfg.Version(), proc, m.queue, instance.WithOnDispatch(m.onDispatch)))
	}
	return m
}

func (m *Model) Name() string {
	return m.config.Name()
}

func (m *Model) Config() *Config {
	return m.config
}

func (m *Model) Processor() processor.Processor {
	return m.proc
}

// Start launches every instance on the shared pool and begins sampling
// queue gauges.
func (m *Model) Start(pool *ants.Pool) error {
	if !m.started.CAS(false, true) {
		return fmt.Errorf("model %s is already started", m.Name())
	}
	for _, inst := range m.instances {
		if err := inst.Start(pool); err != nil {
			return fmt.Errorf("start instance %d of model %s failed: %w", inst.Id(), m.Name(), err)
		}
	}
	if config.GetWorkerConfig().MetricsEnable() {
		go m.statsLoop()
	}
	logger.Infof("Model %s started with %d instances, maxBatchSize=%d, maxQueueDelay=%v",
		m.Name(), len(m.instances), m.config.MaxBatchSize(), m.config.MaxQueueDelay())
	return nil
}

// Submit admits one request into the model's batching window.
func (m *Model) Submit(req *inference.Request) error {
	if m.stopped.Load() {
		return ErrModelStopped
	}
	metrics.ObserveRequest(m.Name())
	if err := m.batcher.Submit(req); err != nil {
		metrics.ObserveAdmissionReject(m.Name(), rejectReason(err))
		return err
	}
	return nil
}

// Flush closes the current batching window regardless of its size.
func (m *Model) Flush() error {
	return m.batcher.Flush()
}

func (m *Model) Stats() *stats.ModelStats {
	snapshot := stats.NewModelStats(m.Name())
	snapshot.SetQueueSize(int32(m.queue.Size()))
	snapshot.SetWaitingConsumers(int32(m.queue.WaitingConsumerCount()))
	snapshot.SetPendingRequests(m.batcher.PendingRequests())
	for _, inst := range m.instances {
		snapshot.AddInstance(inst.Stats())
	}
	return snapshot
}

// Stop flushes the batcher, closes the queue and waits for the instances
// to drain it. Requests that never reached an instance are failed with
// ErrModelStopped.
func (m *Model) Stop() {
	if !m.stopped.CAS(false, true) {
		return
	}
	close(m.stopStatsCh)

	if err := m.batcher.Close(); err != nil {
		logger.Warnf("Close batcher of model %s failed: %v", m.Name(), err)
	}
	m.queue.Close()

	if m.started.Load() {
		timeout := time.NewTimer(constants.ShutdownTimeout)
		defer timeout.Stop()
	waitLoop:
		for _, inst := range m.instances {
			select {
			case <-inst.Done():
			case <-timeout.C:
				logger.Warnf("Model %s instances still busy after %v, dropping leftovers", m.Name(), constants.ShutdownTimeout)
				break waitLoop
			}
		}
	}

	for _, p := range m.queue.Drain() {
		requests := p.Requests()
		for _, req := range requests {
			req.SendResponse(inference.NewErrorResponse(req.Id(), ErrModelStopped))
		}
		p.Release()
		m.batcher.ReleaseRequests(int32(len(requests)))
	}

	if cp, ok := m.proc.(processor.CloseableProcessor); ok {
		if err := cp.Close(); err != nil {
			logger.Warnf("Close processor of model %s failed: %v", m.Name(), err)
		}
	}

	metrics.RemoveModel(m.Name())
	logger.Infof("Model %s stopped", m.Name())
}

func (m *Model) onDispatch(event *common.DispatchEvent) {
	m.batcher.ReleaseRequests(event.GetRequestCount())
	if m.eventSink != nil {
		m.eventSink(event)
	}
}

func (m *Model) statsLoop() {
	ticker := time.NewTicker(constants.StatsSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopStatsCh:
			return
		case <-ticker.C:
			metrics.ObserveQueueStats(m.Name(), m.queue.Size(), m.queue.WaitingConsumerCount(), m.batcher.PendingRequests())
		}
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, batcher.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, batcher.ErrRequestTooLarge):
		return "too_large"
	case errors.Is(err, batcher.ErrBatcherClosed):
		return "closed"
	default:
		return "invalid"
	}
}
