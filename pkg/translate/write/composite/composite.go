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

// Package composite implements writers composed of the node's own attribute
// handling (Customizer) and nested child and augmentation writers.
package composite

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pkg/errors"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
	"k8s.io/apimachinery/pkg/api/equality"
)

var (
	ErrInvalidWriter = errors.New("invalid writer")
	ErrNotManaged    = errors.New("identifier is not managed by writer")
)

// Customizer handles the attributes of a single node, children are handled
// by child writers.
type Customizer[D any] interface {
	WriteCurrentAttributes(ctx context.Context, id iid.ID, data D, wctx write.Context) error
	UpdateCurrentAttributes(ctx context.Context, id iid.ID, before, after D, wctx write.Context) error
	DeleteCurrentAttributes(ctx context.Context, id iid.ID, before D, wctx write.Context) error
}

// ListCustomizer is a Customizer for keyed list entries.
type ListCustomizer[D any] interface {
	Customizer[D]
	Key(data D) string
}

// Child is a writer nested into a parent writer handling values of type P.
type Child[P any] interface {
	write.Writer
	WriteChild(ctx context.Context, parentID iid.ID, parent P, wctx write.Context) error
	UpdateChild(ctx context.Context, parentID iid.ID, before, after P, wctx write.Context) error
	DeleteChild(ctx context.Context, parentID iid.ID, before P, wctx write.Context) error
}

type Option[D any] func(c *core[D])

// WithChildren adds child writers, they are written in the provided order
// and deleted in reversed order
func WithChildren[D any](children ...Child[D]) Option[D] {
	return func(c *core[D]) {
		c.children = append(c.children, children...)
	}
}

// WithAugmentations adds augmentation writers, they're written after and
// deleted before child writers
func WithAugmentations[D any](augments ...Child[D]) Option[D] {
	return func(c *core[D]) {
		c.augments = append(c.augments, augments...)
	}
}

type core[D any] struct {
	managed    iid.ID
	customizer Customizer[D]
	children   []Child[D]
	augments   []Child[D]
	byType     map[string]Child[D]
	key        func(data D) string
}

func newCore[D any](managed iid.ID, customizer Customizer[D], opts ...Option[D]) (*core[D], error) {
	if managed.IsEmpty() {
		return nil, errors.Wrapf(ErrInvalidWriter, "managed type is empty")
	}
	if customizer == nil {
		return nil, errors.Wrapf(ErrInvalidWriter, "customizer is nil for %s", managed)
	}

	c := &core[D]{
		managed:    managed.Wildcarded(),
		customizer: customizer,
		byType:     map[string]Child[D]{},
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, child := range slices.Concat(c.children, c.augments) {
		if child == nil {
			return nil, errors.Wrapf(ErrInvalidWriter, "nil child writer for %s", c.managed)
		}

		childType := child.ManagedType()
		if childType.Len() != c.managed.Len()+1 || !c.managed.IsAncestorOf(childType) {
			return nil, errors.Wrapf(ErrInvalidWriter, "%s is not a direct child of %s", childType, c.managed)
		}
		if _, exists := c.byType[childType.Target()]; exists {
			return nil, errors.Wrapf(ErrInvalidWriter, "duplicate child writer for %s in %s", childType, c.managed)
		}

		c.byType[childType.Target()] = child
	}

	return c, nil
}

func (c *core[D]) ManagedType() iid.ID {
	return c.managed
}

func (c *core[D]) String() string {
	return fmt.Sprintf("Writer[%s]", c.managed.Target())
}

// resolveID substitutes the key of a wildcarded list identifier with the key
// of the data being written
func (c *core[D]) resolveID(id iid.ID, data D) iid.ID {
	if c.key != nil && id.Last().IsWildcarded() {
		return id.WithLastKey(c.key(data))
	}

	return id
}

func (c *core[D]) writeCurrent(ctx context.Context, id iid.ID, data D, wctx write.Context) error {
	id = c.resolveID(id, data)

	slog.Debug("Writing current", "writer", c.String(), "id", id)

	if err := c.customizer.WriteCurrentAttributes(ctx, id, data, wctx); err != nil {
		return write.Failed(write.OpCreate, id, err)
	}

	for _, child := range c.children {
		if err := child.WriteChild(ctx, id, data, wctx); err != nil {
			return errors.Wrapf(err, "failed to write child %s of %s", child.ManagedType().Target(), id)
		}
	}

	for _, aug := range c.augments {
		if err := aug.WriteChild(ctx, id, data, wctx); err != nil {
			return errors.Wrapf(err, "failed to write augmentation %s of %s", aug.ManagedType().Target(), id)
		}
	}

	return nil
}

func (c *core[D]) updateCurrent(ctx context.Context, id iid.ID, before, after D, wctx write.Context) error {
	id = c.resolveID(id, before)

	if equality.Semantic.DeepEqual(before, after) {
		slog.Debug("Skipping current, no changes", "writer", c.String(), "id", id)

		return nil
	}

	slog.Debug("Updating current", "writer", c.String(), "id", id)

	if err := c.customizer.UpdateCurrentAttributes(ctx, id, before, after, wctx); err != nil {
		return write.Failed(write.OpUpdate, id, err)
	}

	for _, child := range c.children {
		if err := child.UpdateChild(ctx, id, before, after, wctx); err != nil {
			return errors.Wrapf(err, "failed to update child %s of %s", child.ManagedType().Target(), id)
		}
	}

	for _, aug := range c.augments {
		if err := aug.UpdateChild(ctx, id, before, after, wctx); err != nil {
			return errors.Wrapf(err, "failed to update augmentation %s of %s", aug.ManagedType().Target(), id)
		}
	}

	return nil
}

func (c *core[D]) deleteCurrent(ctx context.Context, id iid.ID, before D, wctx write.Context) error {
	id = c.resolveID(id, before)

	slog.Debug("Deleting current", "writer", c.String(), "id", id)

	for _, aug := range slices.Backward(c.augments) {
		if err := aug.DeleteChild(ctx, id, before, wctx); err != nil {
			return errors.Wrapf(err, "failed to delete augmentation %s of %s", aug.ManagedType().Target(), id)
		}
	}

	for _, child := range slices.Backward(c.children) {
		if err := child.DeleteChild(ctx, id, before, wctx); err != nil {
			return errors.Wrapf(err, "failed to delete child %s of %s", child.ManagedType().Target(), id)
		}
	}

	if err := c.customizer.DeleteCurrentAttributes(ctx, id, before, wctx); err != nil {
		return write.Failed(write.OpDelete, id, err)
	}

	return nil
}

// apply classifies the change by presence of before and after
func (c *core[D]) apply(ctx context.Context, id iid.ID, before, after any, wctx write.Context) error {
	op := write.Update{Before: before, After: after}.Op()

	dataBefore, hasBefore, err := cast[D](before)
	if err != nil {
		return write.Failed(op, id, err)
	}
	dataAfter, hasAfter, err := cast[D](after)
	if err != nil {
		return write.Failed(op, id, err)
	}

	switch {
	case !hasBefore && hasAfter:
		return c.writeCurrent(ctx, id, dataAfter, wctx)
	case hasBefore && !hasAfter:
		return c.deleteCurrent(ctx, id, dataBefore, wctx)
	case hasBefore && hasAfter:
		return c.updateCurrent(ctx, id, dataBefore, dataAfter, wctx)
	default:
		return errors.Wrapf(write.ErrNoData, "writer %s for %s", c, id)
	}
}

// Update is the write.Writer entry point, id either points to the managed
// node or to a node below it
func (c *core[D]) Update(ctx context.Context, id iid.ID, before, after any, wctx write.Context) error {
	if id.SameType(c.managed) {
		return c.apply(ctx, id, before, after, wctx)
	}

	next, ok := id.Next(c.managed)
	if !ok {
		return errors.Wrapf(ErrNotManaged, "%s by %s", id, c)
	}

	if child, exists := c.byType[next.Type]; exists {
		slog.Debug("Delegating to child writer", "writer", c.String(), "child", child.ManagedType().Target(), "id", id)

		return child.Update(ctx, id, before, after, wctx) //nolint:wrapcheck
	}

	return c.updateFromCurrent(ctx, id, wctx)
}

// updateFromCurrent is used if there is no dedicated writer for the subtree
// the identifier points to. The whole current node is re-read from the
// context and replayed, so unchanged siblings are written again.
func (c *core[D]) updateFromCurrent(ctx context.Context, id iid.ID, wctx write.Context) error {
	currentID := id.Cut(c.managed.Len())

	if wctx == nil {
		return errors.Errorf("context is required to replay %s for %s", currentID, id)
	}

	before, _ := wctx.ReadBefore(currentID)
	after, _ := wctx.ReadAfter(currentID)

	slog.Debug("Dedicated subtree writer missing, replaying current", "writer", c.String(), "id", id, "current", currentID)

	if write.IsNil(before) && write.IsNil(after) {
		slog.Debug("No data for current, skipping", "writer", c.String(), "current", currentID)

		return nil
	}

	return c.apply(ctx, currentID, before, after, wctx)
}

func cast[D any](value any) (D, bool, error) {
	var zero D

	if write.IsNil(value) {
		return zero, false, nil
	}

	data, ok := value.(D)
	if !ok {
		return zero, false, errors.Errorf("unexpected data type %T, expected %T", value, zero)
	}

	return data, true, nil
}

func (c *core[D]) childID(parentID iid.ID) iid.ID {
	return parentID.Append(iid.PathArg{Type: c.managed.Target(), List: c.managed.Last().List})
}
