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

type Response struct {
	requestId int64
	output    []byte
	err       error
}

func NewResponse(requestId int64, output []byte) *Response {
	return &Response{
		requestId: requestId,
		output:    output,
	}
}

func NewErrorResponse(requestId int64, err error) *Response {
	return &Response{
		requestId: requestId,
		err:       err,
	}
}

func (resp *Response) RequestId() int64 {
	return resp.requestId
}

func (resp *Response) Output() []byte {
	return resp.output
}

func (resp *Response) Err() error {
	return resp.err
}
