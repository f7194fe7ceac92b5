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

package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

type journal struct {
	calls []string
	fail  map[string]error
}

type fakeWriter struct {
	typ     iid.ID
	journal *journal
}

var _ write.Writer = (*fakeWriter)(nil)

func (w *fakeWriter) ManagedType() iid.ID {
	return w.typ
}

func (w *fakeWriter) Update(_ context.Context, id iid.ID, before, after any, _ write.Context) error {
	call := fmt.Sprintf("%s %s", write.Update{ID: id, Before: before, After: after}.Op(), id)
	if before != nil && after != nil {
		call += fmt.Sprintf(" %v->%v", before, after)
	}
	w.journal.calls = append(w.journal.calls, call)

	if err := w.journal.fail[call]; err != nil {
		return write.Failed(write.Update{Before: before, After: after}.Op(), id, err)
	}

	return nil
}

func writer(j *journal, typ string) *fakeWriter {
	return &fakeWriter{typ: iid.MustParse(typ), journal: j}
}

type fakeContext struct {
	before map[string]any
	after  map[string]any
}

var _ write.Context = (*fakeContext)(nil)

func (c *fakeContext) ReadBefore(id iid.ID) (any, bool) {
	v, ok := c.before[id.String()]

	return v, ok
}

func (c *fakeContext) ReadAfter(id iid.ID) (any, bool) {
	v, ok := c.after[id.String()]

	return v, ok
}

func (c *fakeContext) Session() any {
	return nil
}

func (c *fakeContext) Mapping() *write.MappingContext {
	return nil
}

func types(ids []iid.ID) []string {
	res := []string{}
	for _, id := range ids {
		res = append(res, id.String())
	}

	return res
}

func batch(t *testing.T, updates ...write.Update) *write.Updates {
	t.Helper()

	res := write.NewUpdates()
	for _, u := range updates {
		res.Add(u)
	}

	return res
}

func upd(t *testing.T, id string, before, after any) write.Update {
	t.Helper()

	u, err := write.NewUpdate(iid.MustParse(id), before, after)
	require.NoError(t, err)

	return u
}

func newRegistry(t *testing.T, b *Builder) *Registry {
	t.Helper()

	ordered, err := b.Build()
	require.NoError(t, err)

	r, err := New(ordered)
	require.NoError(t, err)

	return r
}

func TestBuilderOrdering(t *testing.T) {
	j := &journal{}

	for _, tt := range []struct {
		name    string
		builder func() *Builder
		want    []string
	}{
		{
			name: "registration order",
			builder: func() *Builder {
				return NewBuilder().Add(writer(j, "/b")).Add(writer(j, "/a")).Add(writer(j, "/c"))
			},
			want: []string{"/b", "/a", "/c"},
		},
		{
			name: "parent before child",
			builder: func() *Builder {
				return NewBuilder().
					Add(writer(j, "/p[]/c[]")).
					Add(writer(j, "/x")).
					Add(writer(j, "/p[]"))
			},
			want: []string{"/x", "/p[]", "/p[]/c[]"},
		},
		{
			name: "parent before grandchild",
			builder: func() *Builder {
				return NewBuilder().
					Add(writer(j, "/p[]/c/g")).
					Add(writer(j, "/p[]"))
			},
			want: []string{"/p[]", "/p[]/c/g"},
		},
		{
			name: "explicit before",
			builder: func() *Builder {
				return NewBuilder().
					Add(writer(j, "/a")).
					AddBefore(writer(j, "/b"), iid.MustParse("/a"))
			},
			want: []string{"/b", "/a"},
		},
		{
			name: "explicit after",
			builder: func() *Builder {
				return NewBuilder().
					AddAfter(writer(j, "/a"), iid.MustParse("/b")).
					Add(writer(j, "/b"))
			},
			want: []string{"/b", "/a"},
		},
		{
			name: "keyed constraints are wildcarded",
			builder: func() *Builder {
				return NewBuilder().
					AddAfter(writer(j, "/a"), iid.MustParse("/b[x]")).
					Add(writer(j, "/b[]"))
			},
			want: []string{"/b[]", "/a"},
		},
		{
			name: "constraint only type is ordered but skipped",
			builder: func() *Builder {
				return NewBuilder().
					AddAfter(writer(j, "/b"), iid.MustParse("/z")).
					AddBefore(writer(j, "/a"), iid.MustParse("/z"))
			},
			want: []string{"/a", "/b"},
		},
		{
			name: "constraint on subtree child applies to owner",
			builder: func() *Builder {
				return NewBuilder().
					AddAfter(writer(j, "/i[]"), iid.MustParse("/acl[]/entry[]")).
					AddSubtree([]iid.ID{iid.MustParse("/acl[]/entry[]")}, writer(j, "/acl[]"))
			},
			want: []string{"/acl[]", "/i[]"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ordered, err := tt.builder().Build()
			require.NoError(t, err)
			require.Equal(t, tt.want, types(ordered.Types()))

			reversed := types(ordered.Reversed())
			for idx := range tt.want {
				require.Equal(t, tt.want[idx], reversed[len(reversed)-1-idx])
			}
		})
	}
}

func TestBuilderErrors(t *testing.T) {
	j := &journal{}

	for _, tt := range []struct {
		name    string
		builder func() *Builder
		err     error
	}{
		{
			name: "duplicate",
			builder: func() *Builder {
				return NewBuilder().Add(writer(j, "/a")).Add(writer(j, "/a"))
			},
			err: ErrDuplicateWriter,
		},
		{
			name: "duplicate with different keys",
			builder: func() *Builder {
				return NewBuilder().Add(writer(j, "/a[x]")).Add(writer(j, "/a[y]"))
			},
			err: ErrDuplicateWriter,
		},
		{
			name: "subtree child registered separately",
			builder: func() *Builder {
				return NewBuilder().
					AddSubtree([]iid.ID{iid.MustParse("/a/b")}, writer(j, "/a")).
					Add(writer(j, "/a/b"))
			},
			err: ErrDuplicateWriter,
		},
		{
			name: "cycle",
			builder: func() *Builder {
				return NewBuilder().
					AddBefore(writer(j, "/a"), iid.MustParse("/b")).
					AddBefore(writer(j, "/b"), iid.MustParse("/a"))
			},
			err: ErrCycle,
		},
		{
			name: "duplicate with different constraints",
			builder: func() *Builder {
				return NewBuilder().
					AddBefore(writer(j, "/c"), iid.MustParse("/a")).
					AddAfter(writer(j, "/c"), iid.MustParse("/b"))
			},
			err: ErrDuplicateWriter,
		},
		{
			name: "cycle through constraint only type",
			builder: func() *Builder {
				return NewBuilder().
					AddBefore(writer(j, "/a"), iid.MustParse("/z")).
					AddBefore(writer(j, "/z/b"), iid.MustParse("/a"))
			},
			err: ErrCycle,
		},
		{
			name: "child before parent",
			builder: func() *Builder {
				return NewBuilder().
					Add(writer(j, "/p")).
					AddBefore(writer(j, "/p/c"), iid.MustParse("/p"))
			},
			err: ErrCycle,
		},
		{
			name: "self constraint",
			builder: func() *Builder {
				return NewBuilder().AddBefore(writer(j, "/a"), iid.MustParse("/a"))
			},
			err: ErrCycle,
		},
		{
			name: "subtree child outside of subtree",
			builder: func() *Builder {
				return NewBuilder().AddSubtree([]iid.ID{iid.MustParse("/b/c")}, writer(j, "/a"))
			},
			err: ErrInvalidSubtree,
		},
		{
			name: "subtree of itself",
			builder: func() *Builder {
				return NewBuilder().AddSubtree([]iid.ID{iid.MustParse("/a")}, writer(j, "/a"))
			},
			err: ErrInvalidSubtree,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder().Build()
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSubtreeOpacity(t *testing.T) {
	j := &journal{}
	x := iid.MustParse("/acls/acl[]/entry[]")
	y := iid.MustParse("/acls/acl[]/entry[]/match")

	ordered, err := NewBuilder().
		AddSubtree([]iid.ID{x, y, x}, writer(j, "/acls/acl[]")).
		Add(writer(j, "/system")).
		Build()
	require.NoError(t, err)

	require.Equal(t, 2, ordered.Len())
	require.Equal(t, []string{"/acls/acl[]", "/system"}, types(ordered.Types()))

	w, ok := ordered.Get(iid.MustParse("/acls/acl[a1]"))
	require.True(t, ok)
	subtree, ok := w.(*SubtreeWriter)
	require.True(t, ok)
	require.Equal(t, []string{x.String(), y.String()}, types(subtree.HandledChildTypes()))
	require.True(t, subtree.Handles(iid.MustParse("/acls/acl[a1]/entry[e1]")))

	_, ok = ordered.Get(x)
	require.False(t, ok)
	require.True(t, ordered.Handles(x))
	require.Len(t, ordered.HandledTypes(), 4)

	owner, ok := ordered.SubtreeOwner(y)
	require.True(t, ok)
	require.Equal(t, "/acls/acl[]", owner.String())
}

func TestUpdateOrder(t *testing.T) {
	j := &journal{}
	r := newRegistry(t, NewBuilder().
		Add(writer(j, "/p[]")).
		AddAfter(writer(j, "/p[]/c[]"), iid.MustParse("/p[]")))

	ctx := context.Background()
	wctx := &fakeContext{}

	err := r.Update(ctx, batch(t,
		upd(t, "/p[p1]/c[c1]", nil, "c1"),
		upd(t, "/p[p1]", nil, "p1"),
	), wctx)
	require.NoError(t, err)
	require.Equal(t, []string{"create /p[p1]", "create /p[p1]/c[c1]"}, j.calls)

	j.calls = nil
	err = r.Update(ctx, batch(t,
		upd(t, "/p[p1]", "p1", nil),
		upd(t, "/p[p1]/c[c1]", "c1", nil),
	), wctx)
	require.NoError(t, err)
	require.Equal(t, []string{"delete /p[p1]/c[c1]", "delete /p[p1]"}, j.calls)
}

func TestUpdateDeletesBeforeUpdates(t *testing.T) {
	j := &journal{}
	r := newRegistry(t, NewBuilder().
		Add(writer(j, "/a[]")).
		Add(writer(j, "/b[]")))

	err := r.Update(context.Background(), batch(t,
		upd(t, "/a[x]", nil, "x"),
		upd(t, "/b[y]", "1", "2"),
		upd(t, "/a[z]", "z", nil),
		upd(t, "/b[w]", "w", nil),
	), &fakeContext{})
	require.NoError(t, err)
	require.Equal(t, []string{
		"delete /b[w]",
		"delete /a[z]",
		"create /a[x]",
		"update /b[y] 1->2",
	}, j.calls)
}

func TestUpdateMissingWriter(t *testing.T) {
	j := &journal{}
	r := newRegistry(t, NewBuilder().Add(writer(j, "/a")))

	err := r.Update(context.Background(), batch(t,
		upd(t, "/a", nil, "a"),
		upd(t, "/b", nil, "b"),
	), &fakeContext{})
	require.ErrorIs(t, err, ErrMissingWriter)
	require.ErrorContains(t, err, "/b")
	require.Empty(t, j.calls)

	err = r.UpdateSingle(context.Background(), iid.MustParse("/c"), nil, "c", &fakeContext{})
	require.ErrorIs(t, err, ErrMissingWriter)
	require.Empty(t, j.calls)

	// grouped under a handled type, but the id itself has no writer
	updates := write.NewUpdates()
	updates.Updates.PutAs(iid.MustParse("/a"), upd(t, "/x", nil, "x"))
	err = r.Update(context.Background(), updates, &fakeContext{})
	require.ErrorIs(t, err, ErrMissingWriter)
	require.ErrorContains(t, err, "/x")
	require.Empty(t, j.calls)
}

func TestUpdateEmpty(t *testing.T) {
	j := &journal{}
	r := newRegistry(t, NewBuilder().Add(writer(j, "/a")))

	require.NoError(t, r.Update(context.Background(), write.NewUpdates(), &fakeContext{}))
	require.NoError(t, r.Update(context.Background(), nil, &fakeContext{}))
	require.Empty(t, j.calls)
}

func TestPartialFailure(t *testing.T) {
	errWrite := errors.New("device said no")
	j := &journal{
		fail: map[string]error{
			"update /b 1->2": errWrite,
		},
	}
	r := newRegistry(t, NewBuilder().
		Add(writer(j, "/a")).
		Add(writer(j, "/b")).
		Add(writer(j, "/c")))

	err := r.Update(context.Background(), batch(t,
		upd(t, "/a", "1", "2"),
		upd(t, "/b", "1", "2"),
		upd(t, "/c", "1", "2"),
	), &fakeContext{})
	require.Error(t, err)
	require.ErrorIs(t, err, errWrite)
	require.True(t, write.IsUpdateFailed(err))

	bulk, ok := AsBulkUpdateError(err)
	require.True(t, ok)
	require.Equal(t, "/b", bulk.FailedType.String())
	require.Equal(t, []string{"/b", "/c"}, types(bulk.NotAttempted))
	require.Equal(t, []string{"update /a 1->2", "update /b 1->2"}, j.calls)

	j.calls = nil
	require.NoError(t, bulk.RevertChanges(context.Background()))
	require.Equal(t, []string{"update /a 2->1"}, j.calls)

	j.calls = nil
	require.NoError(t, bulk.RevertChanges(context.Background()))
	require.Empty(t, j.calls)
}

func TestPartialFailureInDeletes(t *testing.T) {
	errDelete := errors.New("in use")
	j := &journal{
		fail: map[string]error{
			"delete /p[p1]": errDelete,
		},
	}
	r := newRegistry(t, NewBuilder().
		Add(writer(j, "/p[]")).
		Add(writer(j, "/p[]/c[]")))

	err := r.Update(context.Background(), batch(t,
		upd(t, "/p[p1]", "p1", nil),
		upd(t, "/p[p1]/c[c1]", "c1", nil),
		upd(t, "/p[p2]", nil, "p2"),
	), &fakeContext{})
	require.True(t, write.IsDeleteFailed(err))

	bulk, ok := AsBulkUpdateError(err)
	require.True(t, ok)
	require.Equal(t, "/p[]", bulk.FailedType.String())
	require.Equal(t, []string{"/p[p1]", "/p[p2]"}, types(bulk.NotAttempted))

	j.calls = nil
	require.NoError(t, bulk.RevertChanges(context.Background()))
	require.Equal(t, []string{"create /p[p1]/c[c1]"}, j.calls)
}

func TestRevertFailure(t *testing.T) {
	errWrite := errors.New("write failed")
	errRevert := errors.New("revert failed")
	j := &journal{
		fail: map[string]error{
			"create /c": errWrite,
			"delete /b": errRevert,
		},
	}
	r := newRegistry(t, NewBuilder().
		Add(writer(j, "/a")).
		Add(writer(j, "/b")).
		Add(writer(j, "/c")).
		Add(writer(j, "/d")))

	err := r.Update(context.Background(), batch(t,
		upd(t, "/a", nil, "a"),
		upd(t, "/b", nil, "b"),
		upd(t, "/c", nil, "c"),
		upd(t, "/d", nil, "d"),
	), &fakeContext{})

	bulk, ok := AsBulkUpdateError(err)
	require.True(t, ok)
	require.Equal(t, []string{"/c", "/d"}, types(bulk.NotAttempted))

	j.calls = nil
	err = bulk.RevertChanges(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, errRevert)
	require.True(t, write.IsDeleteFailed(err))

	failed, ok := AsRevertFailedError(err)
	require.True(t, ok)
	require.Equal(t, []string{"/a", "/b"}, types(failed.NotReverted))
	require.Equal(t, []string{"delete /b"}, j.calls)

	j.calls = nil
	again := bulk.RevertChanges(context.Background())
	require.Equal(t, err, again)
	require.Empty(t, j.calls)
}

type contextReader struct {
	fakeWriter
	seen []any
}

func (w *contextReader) Update(ctx context.Context, id iid.ID, before, after any, wctx write.Context) error {
	v, _ := wctx.ReadAfter(iid.MustParse("/ref"))
	w.seen = append(w.seen, v)

	return w.fakeWriter.Update(ctx, id, before, after, wctx)
}

func TestRevertSwapsContext(t *testing.T) {
	j := &journal{
		fail: map[string]error{
			"create /b": errors.New("failed"),
		},
	}
	a := &contextReader{fakeWriter: fakeWriter{typ: iid.MustParse("/a"), journal: j}}
	r := newRegistry(t, NewBuilder().Add(a).Add(writer(j, "/b")))

	wctx := &fakeContext{
		before: map[string]any{"/ref": "old"},
		after:  map[string]any{"/ref": "new"},
	}

	err := r.Update(context.Background(), batch(t,
		upd(t, "/a", nil, "a"),
		upd(t, "/b", nil, "b"),
	), wctx)
	bulk, ok := AsBulkUpdateError(err)
	require.True(t, ok)
	require.NoError(t, bulk.RevertChanges(context.Background()))

	require.Equal(t, []any{"new", "old"}, a.seen)
	require.Equal(t, []string{"create /a", "create /b", "delete /a"}, j.calls)
}

func TestSubtreeUpdate(t *testing.T) {
	j := &journal{}
	entry := iid.MustParse("/acls/acl[]/entry[]")
	r := newRegistry(t, NewBuilder().
		AddSubtree([]iid.ID{entry}, writer(j, "/acls/acl[]")).
		AddAfter(writer(j, "/interfaces/interface[]"), entry))

	wctx := &fakeContext{
		before: map[string]any{"/acls/acl[a1]": "a1v1", "/acls/acl[a2]": "a2v1"},
		after:  map[string]any{"/acls/acl[a1]": "a1v2"},
	}

	err := r.Update(context.Background(), batch(t,
		upd(t, "/interfaces/interface[eth0]", nil, "eth0"),
		upd(t, "/acls/acl[a1]/entry[e1]", nil, "e1"),
		upd(t, "/acls/acl[a1]/entry[e2]", "e2", nil),
		upd(t, "/acls/acl[a2]/entry[e1]", "e1", nil),
		upd(t, "/acls/acl[a2]", "a2v1", nil),
	), wctx)
	require.NoError(t, err)
	// a1 has entries deleted and created, so it's invoked once per phase
	require.Equal(t, []string{
		"delete /acls/acl[a2]",
		"update /acls/acl[a1] a1v1->a1v2",
		"update /acls/acl[a1] a1v1->a1v2",
		"create /interfaces/interface[eth0]",
	}, j.calls)
}

func TestSubtreeDeleteBeforeUpdates(t *testing.T) {
	j := &journal{}
	r := newRegistry(t, NewBuilder().
		Add(writer(j, "/a")).
		AddSubtree([]iid.ID{iid.MustParse("/b/c[]")}, writer(j, "/b")))

	wctx := &fakeContext{
		before: map[string]any{"/b": "b1"},
		after:  map[string]any{"/b": "b2"},
	}

	err := r.Update(context.Background(), batch(t,
		upd(t, "/a", "a1", "a2"),
		upd(t, "/b/c[x]", "x", nil),
	), wctx)
	require.NoError(t, err)
	require.Equal(t, []string{
		"update /b b1->b2",
		"update /a a1->a2",
	}, j.calls)
}

func TestSubtreeDeleteRevert(t *testing.T) {
	j := &journal{fail: map[string]error{"update /a a1->a2": errors.New("boom")}}
	r := newRegistry(t, NewBuilder().
		Add(writer(j, "/a")).
		AddSubtree([]iid.ID{iid.MustParse("/b/c[]")}, writer(j, "/b")))

	wctx := &fakeContext{
		before: map[string]any{"/b": "b1"},
		after:  map[string]any{"/b": "b2"},
	}

	err := r.Update(context.Background(), batch(t,
		upd(t, "/a", "a1", "a2"),
		upd(t, "/b/c[x]", "x", nil),
	), wctx)
	bulk, ok := AsBulkUpdateError(err)
	require.True(t, ok)
	require.Equal(t, []string{"/a"}, types(bulk.NotAttempted))

	j.calls = nil
	require.NoError(t, bulk.RevertChanges(context.Background()))
	require.Equal(t, []string{"update /b b2->b1"}, j.calls)
}

func TestNotAttemptedInApplicationOrder(t *testing.T) {
	j := &journal{fail: map[string]error{"delete /d": errors.New("boom")}}
	r := newRegistry(t, NewBuilder().
		Add(writer(j, "/a")).
		Add(writer(j, "/b")).
		Add(writer(j, "/c")).
		Add(writer(j, "/d")))

	err := r.Update(context.Background(), batch(t,
		upd(t, "/b", nil, "b"),
		upd(t, "/a", nil, "a"),
		upd(t, "/c", "c", nil),
		upd(t, "/d", "d", nil),
	), &fakeContext{})
	bulk, ok := AsBulkUpdateError(err)
	require.True(t, ok)
	require.Equal(t, "/d", bulk.FailedType.String())
	require.Equal(t, []string{"/d", "/c", "/a", "/b"}, types(bulk.NotAttempted))
	require.Equal(t, []string{"delete /d"}, j.calls)
}

func TestSubtreeUpdateSingle(t *testing.T) {
	j := &journal{}
	r := newRegistry(t, NewBuilder().
		AddSubtree([]iid.ID{iid.MustParse("/acls/acl[]/entry[]")}, writer(j, "/acls/acl[]")))

	wctx := &fakeContext{
		after: map[string]any{"/acls/acl[a1]": "a1"},
	}

	err := r.UpdateSingle(context.Background(), iid.MustParse("/acls/acl[a1]/entry[e1]"), nil, "e1", wctx)
	require.NoError(t, err)
	require.Equal(t, []string{"create /acls/acl[a1]"}, j.calls)

	err = r.UpdateSingle(context.Background(), iid.MustParse("/acls/acl[a9]/entry[e1]"), nil, "e1", wctx)
	require.ErrorIs(t, err, write.ErrNoData)
}

func TestUpdateSingleFailure(t *testing.T) {
	errWrite := errors.New("boom")
	j := &journal{fail: map[string]error{"create /a": errWrite}}
	r := newRegistry(t, NewBuilder().Add(writer(j, "/a")))

	err := r.UpdateSingle(context.Background(), iid.MustParse("/a"), nil, "a", &fakeContext{})
	require.ErrorIs(t, err, errWrite)
	require.True(t, write.IsCreateFailed(err))

	_, ok := AsBulkUpdateError(err)
	require.False(t, ok)
}

func TestMetrics(t *testing.T) {
	j := &journal{fail: map[string]error{"create /b": errors.New("boom")}}
	ordered, err := NewBuilder().Add(writer(j, "/a")).Add(writer(j, "/b")).Build()
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	r, err := New(ordered, WithMetrics(metrics))
	require.NoError(t, err)

	require.NoError(t, r.Update(context.Background(), batch(t, upd(t, "/a", nil, "a")), &fakeContext{}))

	err = r.Update(context.Background(), batch(t, upd(t, "/b", nil, "b")), &fakeContext{})
	bulk, ok := AsBulkUpdateError(err)
	require.True(t, ok)
	require.NoError(t, bulk.RevertChanges(context.Background()))

	err = r.Update(context.Background(), batch(t, upd(t, "/x", nil, "x")), &fakeContext{})
	require.ErrorIs(t, err, ErrMissingWriter)

	require.InDelta(t, 1, testutil.ToFloat64(metrics.Batches.WithLabelValues(ResultCommitted)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.Batches.WithLabelValues(ResultFailed)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.Batches.WithLabelValues(ResultInvalid)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.Reverts.WithLabelValues(ResultReverted)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.Writes.WithLabelValues("/b", "create", "error")), 0)
}
