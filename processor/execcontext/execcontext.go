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

package execcontext

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/batchserve/batchserve-worker-go/inference"
)

var _ context.Context = &ExecContext{}

// ExecContext carries one dequeued batch into a Processor. The requests
// slice holds the head payload's requests followed by the requests of every
// payload merged into it, in absorption order.
type ExecContext struct {
	context.Context

	modelName    string
	modelVersion int64
	instanceId   int64
	payloadId    int64
	batchSize    int32
	mergedCount  int32
	requests     []*inference.Request
	dequeueTime  time.Time
}

func (e *ExecContext) ModelName() string {
	return e.modelName
}

func (e *ExecContext) SetModelName(modelName string) {
	e.modelName = modelName
}

func (e *ExecContext) ModelVersion() int64 {
	return e.modelVersion
}

func (e *ExecContext) SetModelVersion(modelVersion int64) {
	e.modelVersion = modelVersion
}

func (e *ExecContext) InstanceId() int64 {
	return e.instanceId
}

func (e *ExecContext) SetInstanceId(instanceId int64) {
	e.instanceId = instanceId
}

func (e *ExecContext) PayloadId() int64 {
	return e.payloadId
}

func (e *ExecContext) SetPayloadId(payloadId int64) {
	e.payloadId = payloadId
}

func (e *ExecContext) BatchSize() int32 {
	return e.batchSize
}

func (e *ExecContext) SetBatchSize(batchSize int32) {
	e.batchSize = batchSize
}

func (e *ExecContext) MergedCount() int32 {
	return e.mergedCount
}

func (e *ExecContext) SetMergedCount(mergedCount int32) {
	e.mergedCount = mergedCount
}

func (e *ExecContext) Requests() []*inference.Request {
	return e.requests
}

func (e *ExecContext) SetRequests(requests []*inference.Request) {
	e.requests = requests
}

// InputField reads a field from the idx-th request's raw input, which is
// expected to be JSON. Out-of-range indexes yield an empty result.
func (e *ExecContext) InputField(idx int, path string) gjson.Result {
	if idx < 0 || idx >= len(e.requests) {
		return gjson.Result{}
	}
	return gjson.GetBytes(e.requests[idx].Input(), path)
}

func (e *ExecContext) DequeueTime() time.Time {
	return e.dequeueTime
}

func (e *ExecContext) SetDequeueTime(t time.Time) {
	e.dequeueTime = t
}
