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

import "fmt"

// Result reports the outcome of one batch execution. Outputs are keyed by
// request id; a request without an output entry receives the batch-level
// error, if any.
type Result struct {
	status  BatchStatus
	outputs map[int64][]byte
}

type Option func(*Result)

func WithStatus(status BatchStatus) Option {
	return func(r *Result) {
		r.status = status
	}
}

func WithIsSucceed(isSucceed bool) Option {
	return func(r *Result) {
		if isSucceed {
			r.status = BatchStatusSucceed
		} else {
			r.status = BatchStatusFailed
		}
	}
}

func WithOutput(requestId int64, output []byte) Option {
	return func(r *Result) {
		r.outputs[requestId] = output
	}
}

func NewResult(opts ...Option) *Result {
	r := &Result{
		outputs: make(map[int64][]byte),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Result) GetStatus() BatchStatus {
	return r.status
}

func (r *Result) SetStatus(status BatchStatus) {
	r.status = status
}

func (r *Result) GetOutput(requestId int64) ([]byte, bool) {
	output, ok := r.outputs[requestId]
	return output, ok
}

func (r *Result) SetOutput(requestId int64, output []byte) {
	r.outputs[requestId] = output
}

func (r *Result) Outputs() map[int64][]byte {
	return r.outputs
}

func (r *Result) String() string {
	return fmt.Sprintf("Result [status=%s, outputs=%d]", r.status.Descriptor(), len(r.outputs))
}
