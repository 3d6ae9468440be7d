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

package common

import "time"

// DispatchEvent records one executed batch: the head payload plus however
// many payloads were merged into it.
type DispatchEvent struct {
	uniqueId     string
	modelName    string
	instanceId   int64
	payloadId    int64
	batchSize    int32
	mergedCount  int32
	requestCount int32
	queueDelay   time.Duration
	execDuration time.Duration
	status       string
	dispatchTime time.Time
}

func NewDispatchEvent(uniqueId, modelName string, instanceId, payloadId int64) (rcvr *DispatchEvent) {
	rcvr = &DispatchEvent{
		uniqueId:     uniqueId,
		modelName:    modelName,
		instanceId:   instanceId,
		payloadId:    payloadId,
		dispatchTime: time.Now(),
	}
	return
}

func (rcvr *DispatchEvent) GetUniqueId() string {
	return rcvr.uniqueId
}

func (rcvr *DispatchEvent) GetModelName() string {
	return rcvr.modelName
}

func (rcvr *DispatchEvent) GetInstanceId() int64 {
	return rcvr.instanceId
}

func (rcvr *DispatchEvent) GetPayloadId() int64 {
	return rcvr.payloadId
}

func (rcvr *DispatchEvent) GetBatchSize() int32 {
	return rcvr.batchSize
}

func (rcvr *DispatchEvent) SetBatchSize(batchSize int32) {
	rcvr.batchSize = batchSize
}

func (rcvr *DispatchEvent) GetMergedCount() int32 {
	return rcvr.mergedCount
}

func (rcvr *DispatchEvent) SetMergedCount(mergedCount int32) {
	rcvr.mergedCount = mergedCount
}

func (rcvr *DispatchEvent) GetRequestCount() int32 {
	return rcvr.requestCount
}

func (rcvr *DispatchEvent) SetRequestCount(requestCount int32) {
	rcvr.requestCount = requestCount
}

func (rcvr *DispatchEvent) GetQueueDelay() time.Duration {
	return rcvr.queueDelay
}

func (rcvr *DispatchEvent) SetQueueDelay(queueDelay time.Duration) {
	rcvr.queueDelay = queueDelay
}

func (rcvr *DispatchEvent) GetExecDuration() time.Duration {
	return rcvr.execDuration
}

func (rcvr *DispatchEvent) SetExecDuration(execDuration time.Duration) {
	rcvr.execDuration = execDuration
}

func (rcvr *DispatchEvent) GetStatus() string {
	return rcvr.status
}

func (rcvr *DispatchEvent) SetStatus(status string) {
	rcvr.status = status
}

func (rcvr *DispatchEvent) GetDispatchTime() time.Time {
	return rcvr.dispatchTime
}

func (rcvr *DispatchEvent) SetDispatchTime(dispatchTime time.Time) {
	rcvr.dispatchTime = dispatchTime
}
