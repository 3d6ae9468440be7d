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

package stats

// InstanceStats is a point-in-time snapshot of one model instance.
type InstanceStats struct {
	instanceId    int64
	dispatchCount int64
	requestCount  int64
	mergedCount   int64
	failedCount   int64
}

func NewInstanceStats(instanceId int64) (rcvr *InstanceStats) {
	rcvr = &InstanceStats{instanceId: instanceId}
	return
}

func (rcvr *InstanceStats) GetInstanceId() int64 {
	return rcvr.instanceId
}

func (rcvr *InstanceStats) GetDispatchCount() int64 {
	return rcvr.dispatchCount
}

func (rcvr *InstanceStats) SetDispatchCount(dispatchCount int64) {
	rcvr.dispatchCount = dispatchCount
}

func (rcvr *InstanceStats) GetRequestCount() int64 {
	return rcvr.requestCount
}

func (rcvr *InstanceStats) SetRequestCount(requestCount int64) {
	rcvr.requestCount = requestCount
}

func (rcvr *InstanceStats) GetMergedCount() int64 {
	return rcvr.mergedCount
}

func (rcvr *InstanceStats) SetMergedCount(mergedCount int64) {
	rcvr.mergedCount = mergedCount
}

func (rcvr *InstanceStats) GetFailedCount() int64 {
	return rcvr.failedCount
}

func (rcvr *InstanceStats) SetFailedCount(failedCount int64) {
	rcvr.failedCount = failedCount
}

// ModelStats aggregates a model's queue depth and the stats of each of its
// instances.
type ModelStats struct {
	modelName        string
	queueSize        int32
	waitingConsumers int32
	pendingRequests  int32
	instances        []*InstanceStats
}

func NewModelStats(modelName string) (rcvr *ModelStats) {
	rcvr = &ModelStats{modelName: modelName}
	return
}

func (rcvr *ModelStats) GetModelName() string {
	return rcvr.modelName
}

func (rcvr *ModelStats) GetQueueSize() int32 {
	return rcvr.queueSize
}

func (rcvr *ModelStats) SetQueueSize(queueSize int32) {
	rcvr.queueSize = queueSize
}

func (rcvr *ModelStats) GetWaitingConsumers() int32 {
	return rcvr.waitingConsumers
}

func (rcvr *ModelStats) SetWaitingConsumers(waitingConsumers int32) {
	rcvr.waitingConsumers = waitingConsumers
}

func (rcvr *ModelStats) GetPendingRequests() int32 {
	return rcvr.pendingRequests
}

func (rcvr *ModelStats) SetPendingRequests(pendingRequests int32) {
	rcvr.pendingRequests = pendingRequests
}

func (rcvr *ModelStats) GetInstances() []*InstanceStats {
	return rcvr.instances
}

func (rcvr *ModelStats) AddInstance(stats *InstanceStats) {
	rcvr.instances = append(rcvr.instances, stats)
}
