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

package switchcfg

import (
	"github.com/pkg/errors"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write/registry"
)

// Writers builds the ordered writers for the switch configuration. ACLs are
// applied before interfaces as interfaces may reference them.
func Writers() (*registry.OrderedWriters, error) {
	system, err := newSystemWriter()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create system writer")
	}

	acl, err := newACLWriter()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create acl writer")
	}

	iface, err := newInterfaceWriter()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create interface writer")
	}

	ordered, err := registry.NewBuilder().
		Add(system).
		AddSubtree([]iid.ID{ACLEntryType}, acl).
		AddAfter(iface, ACLType).
		Build()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build switch config writers")
	}

	return ordered, nil
}

func NewRegistry(opts ...registry.Option) (*registry.Registry, error) {
	ordered, err := Writers()
	if err != nil {
		return nil, err
	}

	return registry.New(ordered, opts...)
}
