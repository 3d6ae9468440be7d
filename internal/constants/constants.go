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

package constants

import "time"

const (
	// Dynamic batching defaults, applied when the model config leaves
	// the dynamic_batching block empty.
	MaxBatchSizeDefault  = 8
	MaxQueueDelayDefault = 100 * time.Microsecond
	MaxQueueSizeDefault  = 1024
	InstanceCountDefault = 1

	// Shared goroutine pool.
	SharedPoolSizeDefault = 64
	PoolExpiryDuration    = 30 * time.Second

	// Completion event pipeline.
	EventQueueSizeDefault       = 10000
	EventBatchSizeDefault       = 100
	EventHandlerPoolSizeDefault = 5
	EventRetrieveInterval       = 100 * time.Millisecond

	// Dispatch history retention.
	HistoryKeepMaxDefault = 10000

	// Serving endpoints.
	HealthPortDefault  = 8001
	MetricsPortDefault = 8002

	// Host metrics sampling.
	HostSampleInterval = 5 * time.Second

	// Queue depth gauges refresh.
	StatsSampleInterval = 5 * time.Second

	ControlRequestTimeout = 3 * time.Second

	// How long Stop waits for instances to finish in-flight batches.
	ShutdownTimeout = 10 * time.Second
)
