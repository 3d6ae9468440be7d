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

package history

import "time"

// DispatchRecord is one executed batch as stored in the dispatch_history
// table. Timestamps are unix milliseconds, durations nanoseconds.
type DispatchRecord struct {
	UniqueId       string `db:"unique_id"`
	ModelName      string `db:"model_name"`
	InstanceId     int64  `db:"instance_id"`
	PayloadId      int64  `db:"payload_id"`
	BatchSize      int32  `db:"batch_size"`
	MergedCount    int32  `db:"merged_count"`
	RequestCount   int32  `db:"request_count"`
	QueueDelayNs   int64  `db:"queue_delay_ns"`
	ExecDurationNs int64  `db:"exec_duration_ns"`
	Status         string `db:"status"`
	GmtDispatch    int64  `db:"gmt_dispatch"`
}

func NewDispatchRecord() (rcvr *DispatchRecord) {
	rcvr = &DispatchRecord{}
	return
}

func (r *DispatchRecord) GetUniqueId() string {
	return r.UniqueId
}

func (r *DispatchRecord) GetModelName() string {
	return r.ModelName
}

func (r *DispatchRecord) GetInstanceId() int64 {
	return r.InstanceId
}

func (r *DispatchRecord) GetPayloadId() int64 {
	return r.PayloadId
}

func (r *DispatchRecord) GetBatchSize() int32 {
	return r.BatchSize
}

func (r *DispatchRecord) GetMergedCount() int32 {
	return r.MergedCount
}

func (r *DispatchRecord) GetRequestCount() int32 {
	return r.RequestCount
}

func (r *DispatchRecord) GetQueueDelay() time.Duration {
	return time.Duration(r.QueueDelayNs)
}

func (r *DispatchRecord) GetExecDuration() time.Duration {
	return time.Duration(r.ExecDurationNs)
}

func (r *DispatchRecord) GetStatus() string {
	return r.Status
}

func (r *DispatchRecord) GetDispatchTime() time.Time {
	return time.UnixMilli(r.GmtDispatch)
}
