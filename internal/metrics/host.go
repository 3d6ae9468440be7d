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

package metrics

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/load"

	"github.com/batchserve/batchserve-worker-go/internal/constants"
	"github.com/batchserve/batchserve-worker-go/internal/utils"
	"github.com/batchserve/batchserve-worker-go/logger"
)

var (
	hostSampler     *HostSampler
	hostSamplerOnce sync.Once
)

// HostSampler periodically refreshes host-level gauges, so the scrape
// endpoint reports the same load figures an operator would check first
// when batches start queueing up.
type HostSampler struct {
	cpuLoad1          prometheus.Gauge
	cpuLoad5          prometheus.Gauge
	cpuLoad15         prometheus.Gauge
	cpuProcessors     prometheus.Gauge
	heapUsage         prometheus.Gauge
	heapUsedMegabytes prometheus.Gauge
	heapMaxMegabytes  prometheus.Gauge
	diskUsedPercent   prometheus.Gauge
}

func GetHostSampler() *HostSampler {
	hostSamplerOnce.Do(func() {
		hostSampler = newHostSampler()
	})
	return hostSampler
}

func newHostSampler() *HostSampler {
	s := new(HostSampler)
	s.cpuLoad1 = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_cpu_load1",
		Help:      "Host load average over 1 minute",
	})
	s.cpuLoad5 = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_cpu_load5",
		Help:      "Host load average over 5 minutes",
	})
	s.cpuLoad15 = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_cpu_load15",
		Help:      "Host load average over 15 minutes",
	})
	s.cpuProcessors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_cpu_processors",
		Help:      "Number of logical CPUs usable by the worker",
	})
	s.heapUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_heap_usage",
		Help:      "Ratio of heap in use to heap obtained from the OS",
	})
	s.heapUsedMegabytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_heap_used_megabytes",
		Help:      "Heap in use in megabytes",
	})
	s.heapMaxMegabytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_heap_max_megabytes",
		Help:      "Heap obtained from the OS in megabytes",
	})
	s.diskUsedPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "host_disk_used_percent",
		Help:      "Used percent of the filesystem the worker runs on",
	})
	return s
}

// Run samples once immediately, then on every tick until ctx is canceled.
func (s *HostSampler) Run(ctx context.Context) {
	s.sample()

	ticker := time.NewTicker(constants.HostSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *HostSampler) sample() {
	if avg, err := load.Avg(); err != nil {
		logger.Warnf("Failed to get system load average: %s", err.Error())
	} else {
		s.cpuLoad1.Set(avg.Load1)
		s.cpuLoad5.Set(avg.Load5)
		s.cpuLoad15.Set(avg.Load15)
	}
	s.cpuProcessors.Set(float64(runtime.NumCPU()))

	memstats := new(runtime.MemStats)
	runtime.ReadMemStats(memstats)
	s.heapUsage.Set(float64(memstats.HeapInuse) / math.Max(float64(memstats.HeapSys), 1))
	s.heapUsedMegabytes.Set(float64(memstats.HeapInuse) / 1024 / 1024)
	s.heapMaxMegabytes.Set(float64(memstats.HeapSys) / 1024 / 1024)

	if usedPercent, err := utils.GetUsedDiskSpacePercent(); err != nil {
		logger.Warnf("Failed to get used disk space percent: %s", err.Error())
	} else {
		s.diskUsedPercent.Set(usedPercent)
	}
}
