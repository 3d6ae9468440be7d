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

// Package metrics exposes the worker's Prometheus collectors. All series
// live under the batchserve namespace on the default registry.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	collector *Collector
	once      sync.Once
)

const namespace = "batchserve"

type Collector struct {
	requestsTotal         *prometheus.CounterVec
	admissionRejectsTotal *prometheus.CounterVec
	dispatchesTotal       *prometheus.CounterVec
	mergedPayloadsTotal   *prometheus.CounterVec
	queueDelaySeconds     *prometheus.HistogramVec
	batchSizeObserved     *prometheus.HistogramVec
	execDurationSeconds   *prometheus.HistogramVec
	queueLength           *prometheus.GaugeVec
	waitingConsumers      *prometheus.GaugeVec
	pendingRequests       *prometheus.GaugeVec
}

func GetCollector() *Collector {
	once.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := new(Collector)

	c.requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of inference requests submitted",
		},
		[]string{"model"},
	)

	c.admissionRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_rejects_total",
			Help:      "Total number of requests rejected before enqueueing",
		},
		[]string{"model", "reason"},
	)

	c.dispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Total number of batches handed to a model instance",
		},
		[]string{"model", "status"},
	)

	c.mergedPayloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_payloads_total",
			Help:      "Total number of payloads absorbed into a larger batch on dequeue",
		},
		[]string{"model"},
	)

	c.queueDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_delay_seconds",
			Help:      "Time a batch spent queued before execution",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"model"},
	)

	c.batchSizeObserved = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Total batch dimension of executed batches",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		},
		[]string{"model"},
	)

	c.execDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exec_duration_seconds",
			Help:      "Processor execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model", "status"},
	)

	c.queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Number of payloads waiting in the model queue",
		},
		[]string{"model"},
	)

	c.waitingConsumers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_consumers",
			Help:      "Number of instance goroutines blocked on dequeue",
		},
		[]string{"model"},
	)

	c.pendingRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Number of admitted requests not yet answered",
		},
		[]string{"model"},
	)

	return c
}

func (c *Collector) RecordRequest(model string) {
	c.requestsTotal.WithLabelValues(model).Inc()
}

func (c *Collector) RecordAdmissionReject(model, reason string) {
	c.admissionRejectsTotal.WithLabelValues(model, reason).Inc()
}

func (c *Collector) RecordDispatch(model string, batchSize, mergedCount int32, queueDelay, execDuration time.Duration, status string) {
	c.dispatchesTotal.WithLabelValues(model, status).Inc()
	c.mergedPayloadsTotal.WithLabelValues(model).Add(float64(mergedCount))
	c.queueDelaySeconds.WithLabelValues(model).Observe(queueDelay.Seconds())
	c.batchSizeObserved.WithLabelValues(model).Observe(float64(batchSize))
	c.execDurationSeconds.WithLabelValues(model, status).Observe(execDuration.Seconds())
}

func (c *Collector) RecordQueueStats(model string, queueLength, waitingConsumers int, pendingRequests int32) {
	c.queueLength.WithLabelValues(model).Set(float64(queueLength))
	c.waitingConsumers.WithLabelValues(model).Set(float64(waitingConsumers))
	c.pendingRequests.WithLabelValues(model).Set(float64(pendingRequests))
}

// RemoveModel drops every series labeled with the model, so an unloaded
// model stops exporting stale gauges.
func (c *Collector) RemoveModel(model string) {
	labels := prometheus.Labels{"model": model}
	c.requestsTotal.DeletePartialMatch(labels)
	c.admissionRejectsTotal.DeletePartialMatch(labels)
	c.dispatchesTotal.DeletePartialMatch(labels)
	c.mergedPayloadsTotal.DeletePartialMatch(labels)
	c.queueDelaySeconds.DeletePartialMatch(labels)
	c.batchSizeObserved.DeletePartialMatch(labels)
	c.execDurationSeconds.DeletePartialMatch(labels)
	c.queueLength.DeletePartialMatch(labels)
	c.waitingConsumers.DeletePartialMatch(labels)
	c.pendingRequests.DeletePartialMatch(labels)
}

func ObserveRequest(model string) {
	GetCollector().RecordRequest(model)
}

func ObserveAdmissionReject(model, reason string) {
	GetCollector().RecordAdmissionReject(model, reason)
}

func ObserveDispatch(model string, batchSize, mergedCount int32, queueDelay, execDuration time.Duration, status string) {
	GetCollector().RecordDispatch(model, batchSize, mergedCount, queueDelay, execDuration, status)
}

func ObserveQueueStats(model string, queueLength, waitingConsumers int, pendingRequests int32) {
	GetCollector().RecordQueueStats(model, queueLength, waitingConsumers, pendingRequests)
}

func RemoveModel(model string) {
	GetCollector().RemoveModel(model)
}
