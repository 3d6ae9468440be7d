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

package processor

type BatchStatus int32

const (
	BatchStatusUnknown       BatchStatus = 0
	BatchStatusRunning       BatchStatus = 1
	BatchStatusSucceed       BatchStatus = 2
	BatchStatusFailed        BatchStatus = 3
	BatchStatusPartialFailed BatchStatus = 4
)

var batchStatusDesc = map[BatchStatus]string{
	BatchStatusUnknown:       "unknown",
	BatchStatusRunning:       "running",
	BatchStatusSucceed:       "success",
	BatchStatusFailed:        "failed",
	BatchStatusPartialFailed: "partial_failed",
}

func (status BatchStatus) Descriptor() string {
	return batchStatusDesc[status]
}

func (status BatchStatus) IsFinished() bool {
	return status == BatchStatusSucceed || status == BatchStatusFailed || status == BatchStatusPartialFailed
}
