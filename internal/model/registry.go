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

package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/batchserve/batchserve-worker-go/internal/utils"
)

var (
	registry *Registry
	once     sync.Once
)

// Registry maps model names to loaded models.
type Registry struct {
	models sync.Map // map[string]*Model
}

func GetRegistry() *Registry {
	once.Do(func() {
		registry = &Registry{models: sync.Map{}}
	})
	return registry
}

func (r *Registry) Register(m *Model) error {
	if _, loaded := r.models.LoadOrStore(m.Name(), m); loaded {
		return fmt.Errorf("model %s is already registered", m.Name())
	}
	return nil
}

func (r *Registry) Find(name string) (*Model, bool) {
	m, ok := r.models.Load(name)
	if ok && m != nil {
		return m.(*Model), ok
	}
	return nil, false
}

func (r *Registry) Unregister(name string) (*Model, bool) {
	m, ok := r.models.LoadAndDelete(name)
	if ok && m != nil {
		return m.(*Model), ok
	}
	return nil, false
}

func (r *Registry) Names() []string {
	var names []string
	r.models.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	return utils.SyncMapLen(&r.models)
}
