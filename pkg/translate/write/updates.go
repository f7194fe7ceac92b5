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
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/iid"
)

// Multimap groups updates by node type, both types and updates per type keep
// insertion order.
type Multimap struct {
	types   []iid.ID
	updates map[string][]Update
}

func NewMultimap() *Multimap {
	return &Multimap{
		updates: map[string][]Update{},
	}
}

// Put adds the update under its own node type
func (m *Multimap) Put(u Update) {
	m.PutAs(u.ID.Wildcarded(), u)
}

// PutAs adds the update under the provided node type
func (m *Multimap) PutAs(typ iid.ID, u Update) {
	key := typ.Type()
	if _, exists := m.updates[key]; !exists {
		m.types = append(m.types, typ.Wildcarded())
	}
	m.updates[key] = append(m.updates[key], u)
}

func (m *Multimap) Get(typ iid.ID) []Update {
	if m == nil {
		return nil
	}

	return m.updates[typ.Type()]
}

func (m *Multimap) Contains(typ iid.ID) bool {
	if m == nil {
		return false
	}

	return len(m.updates[typ.Type()]) > 0
}

func (m *Multimap) Types() []iid.ID {
	if m == nil {
		return nil
	}

	return append([]iid.ID(nil), m.types...)
}

func (m *Multimap) Len() int {
	if m == nil {
		return 0
	}

	res := 0
	for _, updates := range m.updates {
		res += len(updates)
	}

	return res
}

func (m *Multimap) IsEmpty() bool {
	return m.Len() == 0
}

// Values returns all updates ordered by type insertion and then by update insertion
func (m *Multimap) Values() []Update {
	if m == nil {
		return nil
	}

	res := make([]Update, 0, m.Len())
	for _, typ := range m.types {
		res = append(res, m.updates[typ.Type()]...)
	}

	return res
}

func (m *Multimap) String() string {
	if m == nil {
		return "{}"
	}

	parts := lo.Map(m.types, func(typ iid.ID, _ int) string {
		return fmt.Sprintf("%s: %v", typ, m.updates[typ.Type()])
	})

	return "{" + strings.Join(parts, ", ") + "}"
}

// Updates is a single transaction worth of changes, creates and updates are
// kept separately from deletes.
type Updates struct {
	Updates *Multimap
	Deletes *Multimap
}

func NewUpdates() *Updates {
	return &Updates{
		Updates: NewMultimap(),
		Deletes: NewMultimap(),
	}
}

// Add puts the update into deletes or updates depending on its data
func (u *Updates) Add(update Update) {
	if update.IsDelete() {
		u.Deletes.Put(update)
	} else {
		u.Updates.Put(update)
	}
}

func (u *Updates) IsEmpty() bool {
	return u == nil || u.Updates.IsEmpty() && u.Deletes.IsEmpty()
}

// Types returns the union of node types from deletes and updates
func (u *Updates) Types() []iid.ID {
	if u == nil {
		return nil
	}

	return lo.UniqBy(append(u.Deletes.Types(), u.Updates.Types()...), func(typ iid.ID) string {
		return typ.Type()
	})
}

func (u *Updates) ContainsOnlySingleType() bool {
	return len(u.Types()) == 1
}

// IDs returns identifiers of all deletes followed by all updates
func (u *Updates) IDs() []iid.ID {
	if u == nil {
		return nil
	}

	return lo.Map(append(u.Deletes.Values(), u.Updates.Values()...), func(update Update, _ int) iid.ID {
		return update.ID
	})
}

func (u *Updates) String() string {
	return fmt.Sprintf("Updates{updates=%s, deletes=%s}", u.Updates, u.Deletes)
}
