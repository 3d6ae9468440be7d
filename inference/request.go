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

package inference

import (
	"sync"
	"time"
)

// Request is a single inference call as submitted by a client. Its batch
// size is the batch dimension of the input tensor set, so one request may
// occupy more than one slot of a model's max_batch_size.
type Request struct {
	id            int64
	correlationId string
	modelName     string
	modelVersion  int64
	batchSize     int32
	input         []byte
	enqueueTime   time.Time

	respOnce sync.Once
	respCh   chan *Response
}

type RequestOption func(*Request)

func WithBatchSize(batchSize int32) RequestOption {
	return func(req *Request) {
		if batchSize > 0 {
			req.batchSize = batchSize
		}
	}
}

func WithCorrelationId(correlationId string) RequestOption {
	return func(req *Request) {
		req.correlationId = correlationId
	}
}

func WithModelVersion(version int64) RequestOption {
	return func(req *Request) {
		req.modelVersion = version
	}
}

func NewRequest(modelName string, input []byte, opts ...RequestOption) *Request {
	req := &Request{
		modelName: modelName,
		input:     input,
		batchSize: 1,
		respCh:    make(chan *Response, 1),
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

func (req *Request) Id() int64 {
	return req.id
}

func (req *Request) SetId(id int64) {
	req.id = id
}

func (req *Request) CorrelationId() string {
	return req.correlationId
}

func (req *Request) ModelName() string {
	return req.modelName
}

func (req *Request) ModelVersion() int64 {
	return req.modelVersion
}

func (req *Request) BatchSize() int32 {
	return req.batchSize
}

func (req *Request) Input() []byte {
	return req.input
}

func (req *Request) EnqueueTime() time.Time {
	return req.enqueueTime
}

func (req *Request) SetEnqueueTime(t time.Time) {
	req.enqueueTime = t
}

// SendResponse delivers the response for this request. Only the first
// delivery wins, later calls are dropped.
func (req *Request) SendResponse(resp *Response) {
	req.respOnce.Do(func() {
		req.respCh <- resp
	})
}

func (req *Request) ResponseCh() <-chan *Response {
	return req.respCh
}
