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
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/panjf2000/ants/v2"
	atom "go.uber.org/atomic"

	"github.com/batchserve/batchserve-worker-go/inference"
	"github.com/batchserve/batchserve-worker-go/internal/common"
	"github.com/batchserve/batchserve-worker-go/internal/dispatch"
	"github.com/batchserve/batchserve-worker-go/internal/metrics"
	"github.com/batchserve/batchserve-worker-go/internal/payload"
	"github.com/batchserve/batchserve-worker-go/internal/utils"
	"github.com/batchserve/batchserve-worker-go/logger"
	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/processor/execcontext"
	"github.com/batchserve/batchserve-worker-go/stats"
	"github.com/batchserve/batchserve-worker-go/tracer"
)

// Instance is one execution slot of a model. Every instance runs a
// consumer loop on the shared goroutine pool, blocking on the model's
// payload queue and executing whatever batch the dequeue hands back.
type Instance struct {
	id           int64
	modelName    string
	modelVersion int64
	proc         processor.Processor
	queue        *dispatch.PayloadQueue
	onDispatch   func(event *common.DispatchEvent)

	dispatchCount *atom.Int64
	requestCount  *atom.Int64
	mergedCount   *atom.Int64
	failedCount   *atom.Int64

	done chan struct{}
}

type Option func(*Instance)

// WithOnDispatch registers a completion hook, invoked on the instance's
// goroutine after every executed batch.
func WithOnDispatch(fn func(event *common.DispatchEvent)) Option {
	return func(inst *Instance) {
		inst.onDispatch = fn
	}
}

func NewInstance(modelName string, modelVersion int64, proc processor.Processor, queue *dispatch.PayloadQueue, opts ...Option) *Instance {
	inst := &Instance{
		id:            utils.NextInstanceId(),
		modelName:     modelName,
		modelVersion:  modelVersion,
		proc:          proc,
		queue:         queue,
		dispatchCount: atom.NewInt64(0),
		requestCount:  atom.NewInt64(0),
		mergedCount:   atom.NewInt64(0),
		failedCount:   atom.NewInt64(0),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

func (inst *Instance) Id() int64 {
	return inst.id
}

// Start submits the consumer loop to the pool. The loop runs until the
// model's payload queue is closed and drained.
func (inst *Instance) Start(pool *ants.Pool) error {
	return pool.Submit(inst.run)
}

// Done is closed once the consumer loop exited.
func (inst *Instance) Done() <-chan struct{} {
	return inst.done
}

func (inst *Instance) Stats() *stats.InstanceStats {
	snapshot := stats.NewInstanceStats(inst.id)
	snapshot.SetDispatchCount(inst.dispatchCount.Load())
	snapshot.SetRequestCount(inst.requestCount.Load())
	snapshot.SetMergedCount(inst.mergedCount.Load())
	snapshot.SetFailedCount(inst.failedCount.Load())
	return snapshot
}

func (inst *Instance) run() {
	defer close(inst.done)

	inst.warmup()

	logger.Infof("Model %s instance %d started", inst.modelName, inst.id)
	for {
		head, merged, err := inst.queue.Dequeue()
		if err != nil {
			logger.Infof("Model %s instance %d stopped: %v", inst.modelName, inst.id, err)
			return
		}
		inst.execute(head, merged)
	}
}

func (inst *Instance) warmup() {
	wp, ok := inst.proc.(processor.WarmupProcessor)
	if !ok {
		return
	}
	ctx := new(execcontext.ExecContext)
	ctx.Context = context.Background()
	ctx.SetModelName(inst.modelName)
	ctx.SetModelVersion(inst.modelVersion)
	ctx.SetInstanceId(inst.id)
	if err := wp.Warmup(ctx); err != nil {
		logger.Errorf("Model %s instance %d warmup failed: %v", inst.modelName, inst.id, err)
	}
}

// execute runs one dequeued batch through the processor and delivers the
// per-request responses. A processor panic fails the batch but never the
// consumer loop.
func (inst *Instance) execute(head *payload.Payload, merged []*payload.Payload) {
	requests := head.Requests()
	batchSize := head.BatchSize()
	queueDelay := time.Since(head.BatcherStart())
	uniqueId := utils.GetDispatchUniqueId(inst.modelName, inst.id, head.Id())

	ctx := new(execcontext.ExecContext)
	ctx.Context = context.Background()
	ctx.SetModelName(inst.modelName)
	ctx.SetModelVersion(inst.modelVersion)
	ctx.SetInstanceId(inst.id)
	ctx.SetPayloadId(head.Id())
	ctx.SetBatchSize(batchSize)
	ctx.SetMergedCount(int32(len(merged)))
	ctx.SetRequests(requests)
	ctx.SetDequeueTime(time.Now())

	startTime := time.Now()
	status := processor.BatchStatusSucceed

	defer func() {
		if e := recover(); e != nil {
			logger.Errorf("Model %s instance %d processor panic, uniqueId=%s, error=%v\n%s",
				inst.modelName, inst.id, uniqueId, e, debug.Stack())
			inst.deliverError(requests, fmt.Errorf("processor panic: %v", e))
			inst.finish(head, merged, uniqueId, processor.BatchStatusFailed, queueDelay, time.Since(startTime))
		}
	}()

	if t := tracer.GetTracer(); t != nil {
		ctx = t.Start(ctx)
	}
	result, err := inst.proc.Infer(ctx)
	if t := tracer.GetTracer(); t != nil {
		result = t.End(ctx, result)
	}

	if err != nil {
		logger.Errorf("Model %s instance %d batch failed, uniqueId=%s, err=%v", inst.modelName, inst.id, uniqueId, err)
		inst.deliverError(requests, err)
		inst.finish(head, merged, uniqueId, processor.BatchStatusFailed, queueDelay, time.Since(startTime))
		return
	}
	if result == nil {
		inst.deliverError(requests, fmt.Errorf("processor returned no result"))
		inst.finish(head, merged, uniqueId, processor.BatchStatusFailed, queueDelay, time.Since(startTime))
		return
	}
	if result.GetStatus().IsFinished() {
		status = result.GetStatus()
	}

	for _, req := range requests {
		if output, ok := result.GetOutput(req.Id()); ok {
			req.SendResponse(inference.NewResponse(req.Id(), output))
		} else if status == processor.BatchStatusSucceed {
			req.SendResponse(inference.NewResponse(req.Id(), nil))
		} else {
			req.SendResponse(inference.NewErrorResponse(req.Id(), fmt.Errorf("batch finished with status %s", status.Descriptor())))
		}
	}
	inst.finish(head, merged, uniqueId, status, queueDelay, time.Since(startTime))
}

func (inst *Instance) deliverError(requests []*inference.Request, err error) {
	for _, req := range requests {
		req.SendResponse(inference.NewErrorResponse(req.Id(), err))
	}
}

func (inst *Instance) finish(head *payload.Payload, merged []*payload.Payload, uniqueId string, status processor.BatchStatus, queueDelay, execDuration time.Duration) {
	requestCount := int32(len(head.Requests()))
	batchSize := head.BatchSize()
	mergedCount := int32(len(merged))

	head.Release()
	for _, p := range merged {
		p.Release()
	}

	inst.dispatchCount.Inc()
	inst.requestCount.Add(int64(requestCount))
	inst.mergedCount.Add(int64(mergedCount))
	if status != processor.BatchStatusSucceed {
		inst.failedCount.Inc()
	}

	metrics.ObserveDispatch(inst.modelName, batchSize, mergedCount, queueDelay, execDuration, status.Descriptor())

	if inst.onDispatch != nil {
		event := common.NewDispatchEvent(uniqueId, inst.modelName, inst.id, head.Id())
		event.SetBatchSize(batchSize)
		event.SetMergedCount(mergedCount)
		event.SetRequestCount(requestCount)
		event.SetQueueDelay(queueDelay)
		event.SetExecDuration(execDuration)
		event.SetStatus(status.Descriptor())
		inst.onDispatch(event)
	}
}
