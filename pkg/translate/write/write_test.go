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
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.githedgehog.com/translator/pkg/translate/iid"
)

type value struct {
	Name string
}

func TestNewUpdate(t *testing.T) {
	id := iid.MustParse("/interfaces/interface[eth0]")

	_, err := NewUpdate(id, nil, nil)
	require.ErrorIs(t, err, ErrNoData)

	var typedNil *value
	_, err = NewUpdate(id, typedNil, nil)
	require.ErrorIs(t, err, ErrNoData)

	create, err := NewUpdate(id, typedNil, &value{Name: "a"})
	require.NoError(t, err)
	require.True(t, create.IsCreate())
	require.Nil(t, create.Before)
	require.Equal(t, OpCreate, create.Op())

	upd, err := NewUpdate(id, &value{Name: "a"}, &value{Name: "b"})
	require.NoError(t, err)
	require.True(t, upd.IsUpdate())
	require.Equal(t, OpUpdate, upd.Op())

	del, err := NewDelete(id, &value{Name: "a"})
	require.NoError(t, err)
	require.True(t, del.IsDelete())
	require.Equal(t, "delete /interfaces/interface[eth0]", del.String())

	reversed := create.Reverse()
	require.True(t, reversed.IsDelete())
	require.Equal(t, create.After, reversed.Before)
}

func TestUpdates(t *testing.T) {
	updates := NewUpdates()
	require.True(t, updates.IsEmpty())

	a := iid.MustParse("/interfaces/interface[a]")
	b := iid.MustParse("/interfaces/interface[b]")
	sys := iid.MustParse("/system")

	updates.Add(Update{ID: sys, After: &value{}})
	updates.Add(Update{ID: a, After: &value{}})
	updates.Add(Update{ID: b, Before: &value{}})
	updates.Add(Update{ID: a, Before: &value{}, After: &value{Name: "x"}})

	require.False(t, updates.IsEmpty())
	require.Equal(t, 3, updates.Updates.Len())
	require.Equal(t, 1, updates.Deletes.Len())
	require.Len(t, updates.Updates.Get(iid.MustParse("/interfaces/interface[]")), 2)
	require.True(t, updates.Deletes.Contains(iid.MustParse("/interfaces/interface[zzz]")))
	require.False(t, updates.ContainsOnlySingleType())

	types := updates.Types()
	require.Len(t, types, 2)
	require.Equal(t, "/interfaces/interface[]", types[0].String())
	require.Equal(t, "/system", types[1].String())

	ids := updates.IDs()
	require.Len(t, ids, 4)
	require.True(t, ids[0].Equal(b))
	require.True(t, ids[1].Equal(sys))
	require.True(t, ids[2].Equal(a))
	require.True(t, ids[3].Equal(a))

	var nilUpdates *Updates
	require.True(t, nilUpdates.IsEmpty())
	require.Nil(t, nilUpdates.IDs())
}

func TestFailedErrors(t *testing.T) {
	id := iid.MustParse("/system")
	cause := errors.New("device unreachable")

	err := errors.Wrap(CreateFailed(id, cause), "wrapped")
	require.True(t, IsCreateFailed(err))
	require.False(t, IsUpdateFailed(err))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "failed to create /system: device unreachable")

	require.True(t, IsUpdateFailed(UpdateFailed(id, cause)))
	require.True(t, IsDeleteFailed(DeleteFailed(id, cause)))

	// already typed failures are kept as is
	kept := Failed(OpUpdate, id, err)
	require.True(t, IsCreateFailed(kept))

	require.True(t, IsDeleteFailed(Failed(OpDelete, id, cause)))
	require.NoError(t, Failed(OpDelete, id, nil))

	_, ok := AsFailed(cause)
	require.False(t, ok)
}

func TestMappingContext(t *testing.T) {
	m := NewMappingContext()

	require.Equal(t, uint32(0), m.Assign("interface", "eth0"))
	require.Equal(t, uint32(1), m.Assign("interface", "eth1"))
	require.Equal(t, uint32(0), m.Assign("interface", "eth0"))
	require.Equal(t, uint32(0), m.Assign("acl", "in"))

	idx, ok := m.Index("interface", "eth1")
	require.True(t, ok)
	require.Equal(t, uint32(1), idx)

	name, ok := m.Name("interface", 1)
	require.True(t, ok)
	require.Equal(t, "eth1", name)

	m.Remove("interface", "eth1")
	_, ok = m.Index("interface", "eth1")
	require.False(t, ok)
	require.Equal(t, 1, m.Len("interface"))

	var nilMapping *MappingContext
	_, ok = nilMapping.Index("interface", "eth0")
	require.False(t, ok)
}

func TestReverterFunc(t *testing.T) {
	called := false
	r := ReverterFunc(func(_ context.Context) error {
		called = true

		return nil
	})

	require.NoError(t, r.Revert(context.Background()))
	require.True(t, called)
	require.NoError(t, NoopReverter.Revert(context.Background()))
}
