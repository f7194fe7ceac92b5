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

package datatree

import (
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

// Context is write.Context backed by the before and after stores
type Context struct {
	before  *Store
	after   *Store
	session any
	mapping *write.MappingContext
}

var _ write.Context = (*Context)(nil)

func NewContext(before, after *Store, session any, mapping *write.MappingContext) *Context {
	if mapping == nil {
		mapping = write.NewMappingContext()
	}

	return &Context{
		before:  before,
		after:   after,
		session: session,
		mapping: mapping,
	}
}

func (c *Context) ReadBefore(id iid.ID) (any, bool) {
	return c.before.Get(id)
}

func (c *Context) ReadAfter(id iid.ID) (any, bool) {
	return c.after.Get(id)
}

func (c *Context) Session() any {
	return c.session
}

func (c *Context) Mapping() *write.MappingContext {
	return c.mapping
}
