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

// Package write defines the contract between the writer registry and the
// per-node-type writers: identifiers with before/after data, update batches,
// the write context and the typed write failures.
package write

import (
	"context"

	"go.githedgehog.com/translator/pkg/translate/iid"
)

// Writer applies create, update or delete of the node type it manages.
//
// Before and after are the node values, nil means absent. Exactly one of the
// following holds: both present (update), only after (create), only before (delete).
// Writer returns one of the typed failures (see FailedError) on error.
type Writer interface {
	ManagedType() iid.ID
	Update(ctx context.Context, id iid.ID, before, after any, wctx Context) error
}

// Context gives writers access to the data tree the batch is computed from and
// to the device session.
type Context interface {
	ReadBefore(id iid.ID) (any, bool)
	ReadAfter(id iid.ID) (any, bool)
	Session() any
	Mapping() *MappingContext
}

// Reverter undoes changes applied by a failed batch.
type Reverter interface {
	Revert(ctx context.Context) error
}

type ReverterFunc func(ctx context.Context) error

func (f ReverterFunc) Revert(ctx context.Context) error {
	return f(ctx)
}

var NoopReverter = ReverterFunc(func(_ context.Context) error { return nil })

// IsNil reports if the value is nil or a typed nil pointer, map or slice.
func IsNil(value any) bool {
	if value == nil {
		return true
	}

	if part, ok := value.(interface{ IsNil() bool }); ok {
		return part.IsNil()
	}

	return isNilValue(value)
}
