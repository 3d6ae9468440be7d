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

package utils

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/disk"
	atom "go.uber.org/atomic"
)

var (
	requestId  = atom.NewInt64(0)
	payloadId  = atom.NewInt64(0)
	instanceId = atom.NewInt64(0)
)

func NextRequestId() int64 {
	return requestId.Inc()
}

func NextPayloadId() int64 {
	return payloadId.Inc()
}

func NextInstanceId() int64 {
	return instanceId.Inc()
}

func SyncMapLen(m *sync.Map) int {
	length := 0
	m.Range(func(_, _ interface{}) bool {
		length++
		return true
	})
	return length
}

func GetUsedDiskSpacePercent() (float64, error) {
	path := "/"
	if runtime.GOOS == "windows" {
		path = "C:"
	}
	info, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return info.UsedPercent, nil
}
