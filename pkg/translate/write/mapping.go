// Copyright 2023 Hedgehog
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package write

import (
	"sync"
)

// MappingContext keeps name to device index mappings per kind (e.g. interface
// name to interface index). It outlives batches and is safe for concurrent use.
type MappingContext struct {
	mu      sync.RWMutex
	indexes map[string]map[string]uint32
	next    map[string]uint32
}

func NewMappingContext() *MappingContext {
	return &MappingContext{
		indexes: map[string]map[string]uint32{},
		next:    map[string]uint32{},
	}
}

func (m *MappingContext) Index(kind, name string) (uint32, bool) {
	if m == nil {
		return 0, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indexes[kind][name]

	return idx, ok
}

func (m *MappingContext) Name(kind string, index uint32) (string, bool) {
	if m == nil {
		return "", false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, idx := range m.indexes[kind] {
		if idx == index {
			return name, true
		}
	}

	return "", false
}

// Assign returns existing index for the name or allocates the next free one
func (m *MappingContext) Assign(kind, name string) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.indexes[kind][name]; ok {
		return idx
	}

	if m.indexes[kind] == nil {
		m.indexes[kind] = map[string]uint32{}
	}

	idx := m.next[kind]
	m.next[kind] = idx + 1
	m.indexes[kind][name] = idx

	return idx
}

func (m *MappingContext) Remove(kind, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.indexes[kind], name)
}

func (m *MappingContext) Len(kind string) int {
	if m == nil {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.indexes[kind])
}
