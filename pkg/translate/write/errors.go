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

	"github.com/pkg/errors"
	"go.githedgehog.com/translator/pkg/translate/iid"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// FailedError is returned by writers when a create, update or delete of a
// single node fails
type FailedError struct {
	Op  Op
	ID  iid.ID
	Err error
}

var _ error = (*FailedError)(nil)

func (e *FailedError) Error() string {
	msg := fmt.Sprintf("failed to %s %s", e.Op, e.ID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

func (e *FailedError) Cause() error {
	return e.Err
}

func CreateFailed(id iid.ID, err error) error {
	return &FailedError{Op: OpCreate, ID: id, Err: err}
}

func UpdateFailed(id iid.ID, err error) error {
	return &FailedError{Op: OpUpdate, ID: id, Err: err}
}

func DeleteFailed(id iid.ID, err error) error {
	return &FailedError{Op: OpDelete, ID: id, Err: err}
}

// Failed wraps err into FailedError of the provided op unless err already
// carries a FailedError
func Failed(op Op, id iid.ID, err error) error {
	if err == nil {
		return nil
	}

	failed := &FailedError{}
	if errors.As(err, &failed) {
		return err
	}

	return &FailedError{Op: op, ID: id, Err: err}
}

func AsFailed(err error) (*FailedError, bool) {
	failed := &FailedError{}
	if errors.As(err, &failed) {
		return failed, true
	}

	return nil, false
}

func IsCreateFailed(err error) bool {
	failed, ok := AsFailed(err)

	return ok && failed.Op == OpCreate
}

func IsUpdateFailed(err error) bool {
	failed, ok := AsFailed(err)

	return ok && failed.Op == OpUpdate
}

func IsDeleteFailed(err error) bool {
	failed, ok := AsFailed(err)

	return ok && failed.Op == OpDelete
}
