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
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

// Configuration errors, returned while building the registry
var (
	ErrDuplicateWriter = errors.New("duplicate writer")
	ErrCycle           = errors.New("writer ordering cycle")
	ErrInvalidSubtree  = errors.New("invalid subtree writer")
)

// ErrMissingWriter is returned if a batch references a node type without writer
var ErrMissingWriter = errors.New("missing writer")

// BulkUpdateError is returned when a writer fails in the middle of a batch.
// Changes applied before the failure stay applied until RevertChanges is called.
type BulkUpdateError struct {
	FailedType   iid.ID
	NotAttempted []iid.ID
	Reverter     write.Reverter
	Err          error
}

var _ error = (*BulkUpdateError)(nil)

func (e *BulkUpdateError) Error() string {
	return fmt.Sprintf("bulk update failed at %s, not attempted: [%s]: %v", e.FailedType, joinIDs(e.NotAttempted), e.Err)
}

func (e *BulkUpdateError) Unwrap() error {
	return e.Err
}

func (e *BulkUpdateError) Cause() error {
	return e.Err
}

func (e *BulkUpdateError) RevertChanges(ctx context.Context) error {
	if e.Reverter == nil {
		return nil
	}

	return e.Reverter.Revert(ctx) //nolint:wrapcheck
}

// RevertFailedError means the system is left in an unknown state and needs
// manual intervention, NotReverted lists changes still applied.
type RevertFailedError struct {
	NotReverted []iid.ID
	Err         error
}

var _ error = (*RevertFailedError)(nil)

func (e *RevertFailedError) Error() string {
	return fmt.Sprintf("revert failed, not reverted: [%s]: %v", joinIDs(e.NotReverted), e.Err)
}

func (e *RevertFailedError) Unwrap() error {
	return e.Err
}

func (e *RevertFailedError) Cause() error {
	return e.Err
}

func AsBulkUpdateError(err error) (*BulkUpdateError, bool) {
	bulk := &BulkUpdateError{}
	if errors.As(err, &bulk) {
		return bulk, true
	}

	return nil, false
}

func AsRevertFailedError(err error) (*RevertFailedError, bool) {
	failed := &RevertFailedError{}
	if errors.As(err, &failed) {
		return failed, true
	}

	return nil, false
}

func joinIDs(ids []iid.ID) string {
	return strings.Join(lo.Map(ids, func(id iid.ID, _ int) string {
		return id.String()
	}), ", ")
}
