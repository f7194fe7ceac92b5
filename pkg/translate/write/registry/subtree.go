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

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

// SubtreeWriter makes the wrapped writer responsible for the declared
// descendant node types, the registry treats them as a part of the writer.
type SubtreeWriter struct {
	writer   write.Writer
	children []iid.ID
}

var _ write.Writer = (*SubtreeWriter)(nil)

func NewSubtreeWriter(writer write.Writer, children ...iid.ID) (*SubtreeWriter, error) {
	if writer == nil {
		return nil, errors.Wrapf(ErrInvalidSubtree, "writer is nil")
	}

	managed := writer.ManagedType().Wildcarded()
	handled := []iid.ID{}
	for _, child := range children {
		child = child.Wildcarded()
		if !managed.IsAncestorOf(child) {
			return nil, errors.Wrapf(ErrInvalidSubtree, "%s is not a descendant of %s", child, managed)
		}
		handled = append(handled, child)
	}

	return &SubtreeWriter{
		writer: writer,
		children: lo.UniqBy(handled, func(id iid.ID) string {
			return id.Type()
		}),
	}, nil
}

func (w *SubtreeWriter) ManagedType() iid.ID {
	return w.writer.ManagedType()
}

func (w *SubtreeWriter) Update(ctx context.Context, id iid.ID, before, after any, wctx write.Context) error {
	return w.writer.Update(ctx, id, before, after, wctx) //nolint:wrapcheck
}

// HandledChildTypes returns the declared descendant node types
func (w *SubtreeWriter) HandledChildTypes() []iid.ID {
	return append([]iid.ID(nil), w.children...)
}

func (w *SubtreeWriter) Handles(typ iid.ID) bool {
	return lo.ContainsBy(w.children, func(child iid.ID) bool {
		return child.SameType(typ)
	})
}

func (w *SubtreeWriter) Unwrap() write.Writer {
	return w.writer
}

func (w *SubtreeWriter) String() string {
	return fmt.Sprintf("SubtreeWriter[%s, %v]", w.writer.ManagedType(), w.children)
}
