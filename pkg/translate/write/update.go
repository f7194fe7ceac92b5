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
	"reflect"

	"github.com/pkg/errors"
	"go.githedgehog.com/translator/pkg/translate/iid"
)

var ErrNoData = errors.New("no data before and after")

// Update is a single node change, Before and After are never both nil.
type Update struct {
	ID     iid.ID
	Before any
	After  any
}

func NewUpdate(id iid.ID, before, after any) (Update, error) {
	if IsNil(before) && IsNil(after) {
		return Update{}, errors.Wrapf(ErrNoData, "update for %s", id)
	}
	if IsNil(before) {
		before = nil
	}
	if IsNil(after) {
		after = nil
	}

	return Update{ID: id, Before: before, After: after}, nil
}

func NewDelete(id iid.ID, before any) (Update, error) {
	return NewUpdate(id, before, nil)
}

func (u Update) IsCreate() bool {
	return u.Before == nil && u.After != nil
}

func (u Update) IsDelete() bool {
	return u.Before != nil && u.After == nil
}

func (u Update) IsUpdate() bool {
	return u.Before != nil && u.After != nil
}

// Reverse swaps before and after, so applying it undoes the update
func (u Update) Reverse() Update {
	return Update{ID: u.ID, Before: u.After, After: u.Before}
}

func (u Update) Op() Op {
	switch {
	case u.IsCreate():
		return OpCreate
	case u.IsDelete():
		return OpDelete
	default:
		return OpUpdate
	}
}

func (u Update) String() string {
	return fmt.Sprintf("%s %s", u.Op(), u.ID)
}

func isNilValue(value any) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() { //nolint:exhaustive
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
