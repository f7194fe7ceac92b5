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

package composite

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

// RootWriter handles a single non-keyed node type
type RootWriter[D any] struct {
	*core[D]
}

var _ write.Writer = (*RootWriter[any])(nil)

func NewRootWriter[D any](managed iid.ID, customizer Customizer[D], opts ...Option[D]) (*RootWriter[D], error) {
	if managed.Last().List {
		return nil, errors.Wrapf(ErrInvalidWriter, "root writer can't manage list type %s", managed)
	}

	c, err := newCore(managed, customizer, opts...)
	if err != nil {
		return nil, err
	}

	return &RootWriter[D]{core: c}, nil
}

// ListWriter handles a keyed, repeatable node type registered on its own
type ListWriter[D any] struct {
	*core[D]
}

var _ write.Writer = (*ListWriter[any])(nil)

func NewListWriter[D any](managed iid.ID, customizer ListCustomizer[D], opts ...Option[D]) (*ListWriter[D], error) {
	c, err := newListCore(managed, customizer, opts...)
	if err != nil {
		return nil, err
	}

	return &ListWriter[D]{core: c}, nil
}

func newListCore[D any](managed iid.ID, customizer ListCustomizer[D], opts ...Option[D]) (*core[D], error) {
	if !managed.Last().List {
		return nil, errors.Wrapf(ErrInvalidWriter, "list writer can't manage non-list type %s", managed)
	}
	if customizer == nil {
		return nil, errors.Wrapf(ErrInvalidWriter, "customizer is nil for %s", managed)
	}

	c, err := newCore[D](managed, customizer, opts...)
	if err != nil {
		return nil, err
	}
	c.key = customizer.Key

	return c, nil
}

// ChildWriter handles a non-repeatable node nested into a parent of type P
type ChildWriter[P, D any] struct {
	*core[D]
	extract func(parent P) (D, bool)
}

var _ Child[any] = (*ChildWriter[any, any])(nil)

func NewChildWriter[P, D any](managed iid.ID, customizer Customizer[D], extract func(parent P) (D, bool), opts ...Option[D]) (*ChildWriter[P, D], error) {
	if managed.Last().List {
		return nil, errors.Wrapf(ErrInvalidWriter, "child writer can't manage list type %s", managed)
	}
	if extract == nil {
		return nil, errors.Wrapf(ErrInvalidWriter, "extract is nil for %s", managed)
	}

	c, err := newCore(managed, customizer, opts...)
	if err != nil {
		return nil, err
	}

	return &ChildWriter[P, D]{core: c, extract: extract}, nil
}

func (w *ChildWriter[P, D]) get(parent P) (D, bool) {
	if write.IsNil(parent) {
		var zero D

		return zero, false
	}

	data, ok := w.extract(parent)
	if !ok || write.IsNil(data) {
		return data, false
	}

	return data, true
}

func (w *ChildWriter[P, D]) WriteChild(ctx context.Context, parentID iid.ID, parent P, wctx write.Context) error {
	if data, ok := w.get(parent); ok {
		return w.writeCurrent(ctx, w.childID(parentID), data, wctx)
	}

	return nil
}

func (w *ChildWriter[P, D]) UpdateChild(ctx context.Context, parentID iid.ID, before, after P, wctx write.Context) error {
	id := w.childID(parentID)
	dataBefore, hasBefore := w.get(before)
	dataAfter, hasAfter := w.get(after)

	switch {
	case !hasBefore && hasAfter:
		return w.writeCurrent(ctx, id, dataAfter, wctx)
	case hasBefore && !hasAfter:
		return w.deleteCurrent(ctx, id, dataBefore, wctx)
	case hasBefore && hasAfter:
		return w.updateCurrent(ctx, id, dataBefore, dataAfter, wctx)
	default:
		return nil
	}
}

func (w *ChildWriter[P, D]) DeleteChild(ctx context.Context, parentID iid.ID, before P, wctx write.Context) error {
	if data, ok := w.get(before); ok {
		return w.deleteCurrent(ctx, w.childID(parentID), data, wctx)
	}

	return nil
}

// ChildListWriter handles a keyed, repeatable node nested into a parent of type P
type ChildListWriter[P, D any] struct {
	*core[D]
	extract func(parent P) ([]D, bool)
}

var _ Child[any] = (*ChildListWriter[any, any])(nil)

func NewChildListWriter[P, D any](managed iid.ID, customizer ListCustomizer[D], extract func(parent P) ([]D, bool), opts ...Option[D]) (*ChildListWriter[P, D], error) {
	if extract == nil {
		return nil, errors.Wrapf(ErrInvalidWriter, "extract is nil for %s", managed)
	}

	c, err := newListCore(managed, customizer, opts...)
	if err != nil {
		return nil, err
	}

	return &ChildListWriter[P, D]{core: c, extract: extract}, nil
}

func (w *ChildListWriter[P, D]) entries(parent P) []D {
	if write.IsNil(parent) {
		return nil
	}

	entries, ok := w.extract(parent)
	if !ok {
		return nil
	}

	return lo.Filter(entries, func(entry D, _ int) bool {
		return !write.IsNil(entry)
	})
}

func (w *ChildListWriter[P, D]) WriteChild(ctx context.Context, parentID iid.ID, parent P, wctx write.Context) error {
	id := w.childID(parentID)
	for _, entry := range w.entries(parent) {
		if err := w.writeCurrent(ctx, id, entry, wctx); err != nil {
			return err
		}
	}

	return nil
}

// UpdateChild diffs entries by key: after only is created, both is updated
// (skipped if equal) and before only is deleted
func (w *ChildListWriter[P, D]) UpdateChild(ctx context.Context, parentID iid.ID, before, after P, wctx write.Context) error {
	id := w.childID(parentID)

	entriesBefore := w.entries(before)
	entriesAfter := w.entries(after)

	byKeyBefore := lo.KeyBy(entriesBefore, w.key)
	byKeyAfter := lo.KeyBy(entriesAfter, w.key)

	for _, entry := range entriesAfter {
		if prev, exists := byKeyBefore[w.key(entry)]; exists {
			if err := w.updateCurrent(ctx, id, prev, entry, wctx); err != nil {
				return err
			}
		} else {
			if err := w.writeCurrent(ctx, id, entry, wctx); err != nil {
				return err
			}
		}
	}

	for _, entry := range entriesBefore {
		if _, exists := byKeyAfter[w.key(entry)]; !exists {
			if err := w.deleteCurrent(ctx, id, entry, wctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *ChildListWriter[P, D]) DeleteChild(ctx context.Context, parentID iid.ID, before P, wctx write.Context) error {
	id := w.childID(parentID)
	for _, entry := range w.entries(before) {
		if err := w.deleteCurrent(ctx, id, entry, wctx); err != nil {
			return err
		}
	}

	return nil
}

// Funcs is a Customizer built from functions, nil Write or Delete are no-ops
// and nil Update deletes the old value and writes the new one.
type Funcs[D any] struct {
	Write  func(ctx context.Context, id iid.ID, data D, wctx write.Context) error
	Update func(ctx context.Context, id iid.ID, before, after D, wctx write.Context) error
	Delete func(ctx context.Context, id iid.ID, before D, wctx write.Context) error
}

var _ Customizer[any] = (*Funcs[any])(nil)

func (f *Funcs[D]) WriteCurrentAttributes(ctx context.Context, id iid.ID, data D, wctx write.Context) error {
	if f.Write == nil {
		return nil
	}

	return f.Write(ctx, id, data, wctx)
}

func (f *Funcs[D]) UpdateCurrentAttributes(ctx context.Context, id iid.ID, before, after D, wctx write.Context) error {
	if f.Update != nil {
		return f.Update(ctx, id, before, after, wctx)
	}

	if err := f.DeleteCurrentAttributes(ctx, id, before, wctx); err != nil {
		return write.Failed(write.OpUpdate, id, err)
	}

	return f.WriteCurrentAttributes(ctx, id, after, wctx)
}

func (f *Funcs[D]) DeleteCurrentAttributes(ctx context.Context, id iid.ID, before D, wctx write.Context) error {
	if f.Delete == nil {
		return nil
	}

	return f.Delete(ctx, id, before, wctx)
}

// ListFuncs is Funcs with key extraction for list entries
type ListFuncs[D any] struct {
	Funcs[D]
	KeyFunc func(data D) string
}

var _ ListCustomizer[any] = (*ListFuncs[any])(nil)

func (f *ListFuncs[D]) Key(data D) string {
	return f.KeyFunc(data)
}
