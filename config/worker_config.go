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

package config

import (
	"sync"
	"time"

	"github.com/batchserve/batchserve-worker-go/internal/constants"
)

var (
	workerConfig *WorkerConfig
	once         sync.Once
)

func InitWorkerConfig(cfg *WorkerConfig) {
	once.Do(func() {
		workerConfig = cfg
	})
}

func GetWorkerConfig() *WorkerConfig {
	if workerConfig != nil {
		return workerConfig
	}
	return defaultWorkerConfig()
}

type Option func(*WorkerConfig)

func WithSharedPoolSize(sharedPoolSize int32) Option {
	return func(config *WorkerConfig) {
		config.sharedPoolSize = sharedPoolSize
	}
}

func WithEventQueueSize(eventQueueSize int32) Option {
	return func(config *WorkerConfig) {
		config.eventQueueSize = eventQueueSize
	}
}

func WithEventBatchSize(eventBatchSize int32) Option {
	return func(config *WorkerConfig) {
		config.eventBatchSize = eventBatchSize
	}
}

func WithHistoryKeepMax(historyKeepMax int32) Option {
	return func(config *WorkerConfig) {
		config.historyKeepMax = historyKeepMax
	}
}

func WithDisableDispatchHistory() Option {
	return func(config *WorkerConfig) {
		config.dispatchHistoryEnable = false
	}
}

func WithHealthPort(port int32) Option {
	return func(config *WorkerConfig) {
		config.healthPort = port
	}
}

func WithMetricsPort(port int32) Option {
	return func(config *WorkerConfig) {
		config.metricsPort = port
	}
}

func WithDisableMetrics() Option {
	return func(config *WorkerConfig) {
		config.metricsEnable = false
	}
}

func WithDisableHostMetrics() Option {
	return func(config *WorkerConfig) {
		config.hostMetricsEnable = false
	}
}

func WithEnableWaitForConsumer() Option {
	return func(config *WorkerConfig) {
		config.waitForConsumerEnable = true
	}
}

func WithControlTimeout(timeout time.Duration) Option {
	return func(config *WorkerConfig) {
		config.controlTimeout = timeout
	}
}

func NewWorkerConfig(opts ...Option) *WorkerConfig {
	once.Do(func() {
		workerConfig = defaultWorkerConfig()
		for _, opt := range opts {
			opt(workerConfig)
		}
	})
	return workerConfig
}

type WorkerConfig struct {
	sharedPoolSize        int32
	eventQueueSize        int32
	eventBatchSize        int32
	historyKeepMax        int32
	dispatchHistoryEnable bool
	healthPort            int32
	metricsPort           int32
	metricsEnable         bool
	hostMetricsEnable     bool
	waitForConsumerEnable bool
	controlTimeout        time.Duration
}

func (w *WorkerConfig) SharedPoolSize() int32 {
	return w.sharedPoolSize
}

func (w *WorkerConfig) EventQueueSize() int32 {
	return w.eventQueueSize
}

func (w *WorkerConfig) EventBatchSize() int32 {
	return w.eventBatchSize
}

func (w *WorkerConfig) HistoryKeepMax() int32 {
	return w.historyKeepMax
}

func (w *WorkerConfig) DispatchHistoryEnable() bool {
	return w.dispatchHistoryEnable
}

func (w *WorkerConfig) HealthPort() int32 {
	return w.healthPort
}

func (w *WorkerConfig) MetricsPort() int32 {
	return w.metricsPort
}

func (w *WorkerConfig) MetricsEnable() bool {
	return w.metricsEnable
}

func (w *WorkerConfig) HostMetricsEnable() bool {
	return w.hostMetricsEnable
}

func (w *WorkerConfig) WaitForConsumerEnable() bool {
	return w.waitForConsumerEnable
}

func (w *WorkerConfig) ControlTimeout() time.Duration {
	return w.controlTimeout
}

func defaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		sharedPoolSize:        constants.SharedPoolSizeDefault,
		eventQueueSize:        constants.EventQueueSizeDefault,
		eventBatchSize:        constants.EventBatchSizeDefault,
		historyKeepMax:        constants.HistoryKeepMaxDefault,
		dispatchHistoryEnable: true,
		healthPort:            constants.HealthPortDefault,
		metricsPort:           constants.MetricsPortDefault,
		metricsEnable:         true,
		hostMetricsEnable:     true,
		waitForConsumerEnable: false,
		controlTimeout:        constants.ControlRequestTimeout,
	}
}
