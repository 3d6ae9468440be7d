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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncMapLen(t *testing.T) {
	m := new(sync.Map)

	if length := SyncMapLen(m); length != 0 {
		t.Errorf("Expect=0, actual=%d", length)
	}

	m.Store("key1", "value1")
	m.Store("key2", "value2")
	m.Store("key3", "value3")

	if length := SyncMapLen(m); length != 3 {
		t.Errorf("Expect=3, actual=%d", length)
	}

	m.Delete("key2")

	if length := SyncMapLen(m); length != 2 {
		t.Errorf("Expect=2, actual=%d", length)
	}
}

func TestNextPayloadId(t *testing.T) {
	a1 := NextPayloadId()
	a2 := NextPayloadId()
	a3 := NextPayloadId()
	ass := assert.New(t)
	ass.Equal(a2, a1+1)
	ass.Equal(a3, a2+1)
}

func TestNextRequestId(t *testing.T) {
	a1 := NextRequestId()
	a2 := NextRequestId()
	if a2 != a1+1 {
		t.Errorf("Expect monotonic request ids, got %d then %d", a1, a2)
	}
}
