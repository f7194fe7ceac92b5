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

// Package iid implements path-shaped identifiers into the configuration tree.
//
// An identifier is an ordered list of path arguments. Containers carry only a
// type name, list items carry a type name and a key. A list item without a key
// is wildcarded and identifies the node type rather than a concrete node.
package iid

import (
	"strings"

	"github.com/pkg/errors"
)

type PathArg struct {
	Type string `json:"type,omitempty"`
	Key  string `json:"key,omitempty"`
	List bool   `json:"list,omitempty"`
}

func (a PathArg) IsWildcarded() bool {
	return a.List && a.Key == ""
}

func (a PathArg) String() string {
	if !a.List {
		return a.Type
	}

	return a.Type + "[" + a.Key + "]"
}

// matches reports if the args are the same node type and keys don't conflict
// (wildcarded arg matches any key)
func (a PathArg) matches(other PathArg) bool {
	if a.Type != other.Type || a.List != other.List {
		return false
	}

	return a.Key == "" || other.Key == "" || a.Key == other.Key
}

// ID is immutable, all methods return new identifiers.
type ID struct {
	args []PathArg
}

func New(args ...PathArg) ID {
	return ID{args: append([]PathArg(nil), args...)}
}

func Container(typ string) ID {
	return New(PathArg{Type: typ})
}

func List(typ string) ID {
	return New(PathArg{Type: typ, List: true})
}

func Item(typ, key string) ID {
	return New(PathArg{Type: typ, Key: key, List: true})
}

func (id ID) append(arg PathArg) ID {
	args := make([]PathArg, 0, len(id.args)+1)
	args = append(args, id.args...)
	args = append(args, arg)

	return ID{args: args}
}

func (id ID) Child(typ string) ID {
	return id.append(PathArg{Type: typ})
}

func (id ID) List(typ string) ID {
	return id.append(PathArg{Type: typ, List: true})
}

func (id ID) Item(typ, key string) ID {
	return id.append(PathArg{Type: typ, Key: key, List: true})
}

func (id ID) Append(arg PathArg) ID {
	return id.append(arg)
}

func (id ID) Args() []PathArg {
	return append([]PathArg(nil), id.args...)
}

func (id ID) Len() int {
	return len(id.args)
}

func (id ID) IsEmpty() bool {
	return len(id.args) == 0
}

func (id ID) Last() PathArg {
	if len(id.args) == 0 {
		return PathArg{}
	}

	return id.args[len(id.args)-1]
}

// Target is the type name of the last path arg
func (id ID) Target() string {
	return id.Last().Type
}

func (id ID) IsWildcarded() bool {
	for _, arg := range id.args {
		if arg.IsWildcarded() {
			return true
		}
	}

	return false
}

// Wildcarded returns the node type of the identifier, all keys are stripped.
func (id ID) Wildcarded() ID {
	args := make([]PathArg, len(id.args))
	for idx, arg := range id.args {
		args[idx] = PathArg{Type: arg.Type, List: arg.List}
	}

	return ID{args: args}
}

// Type is the node type key used by registries, it's the same as Wildcarded().String()
func (id ID) Type() string {
	return id.Wildcarded().String()
}

func (id ID) String() string {
	if len(id.args) == 0 {
		return "/"
	}

	sb := strings.Builder{}
	for _, arg := range id.args {
		sb.WriteString("/")
		sb.WriteString(arg.String())
	}

	return sb.String()
}

func (id ID) Equal(other ID) bool {
	if len(id.args) != len(other.args) {
		return false
	}
	for idx := range id.args {
		if id.args[idx] != other.args[idx] {
			return false
		}
	}

	return true
}

// Contains reports if other is equal to id or located below it, wildcarded
// args in either identifier match any key
func (id ID) Contains(other ID) bool {
	if len(other.args) < len(id.args) {
		return false
	}
	for idx := range id.args {
		if !id.args[idx].matches(other.args[idx]) {
			return false
		}
	}

	return true
}

// IsAncestorOf reports if other's node type is strictly below id's node type
func (id ID) IsAncestorOf(other ID) bool {
	return len(other.args) > len(id.args) && id.Wildcarded().Contains(other.Wildcarded())
}

// SameType reports if both identifiers point to the same node type
func (id ID) SameType(other ID) bool {
	return id.Wildcarded().Equal(other.Wildcarded())
}

// Cut returns the first n path args of the identifier
func (id ID) Cut(n int) ID {
	if n >= len(id.args) {
		return id
	}
	if n < 0 {
		n = 0
	}

	return New(id.args[:n]...)
}

// CutTo cuts the identifier to the length of the provided node type, it's
// only valid if typ contains id
func (id ID) CutTo(typ ID) (ID, bool) {
	if !typ.Contains(id) {
		return ID{}, false
	}

	return id.Cut(typ.Len()), true
}

// Next returns the path arg of id directly following the prefix
func (id ID) Next(prefix ID) (PathArg, bool) {
	if len(id.args) <= len(prefix.args) || !prefix.Contains(id) {
		return PathArg{}, false
	}

	return id.args[len(prefix.args)], true
}

// WithLastKey replaces the key of the last path arg, it's a no-op for containers
func (id ID) WithLastKey(key string) ID {
	if len(id.args) == 0 || !id.Last().List {
		return id
	}

	args := id.Args()
	args[len(args)-1].Key = key

	return ID{args: args}
}

// Parse parses identifiers in the form produced by String, e.g. /interfaces/interface[eth0]/l2
func Parse(in string) (ID, error) {
	if !strings.HasPrefix(in, "/") {
		return ID{}, errors.Errorf("identifier %q should start with /", in)
	}
	in = strings.TrimPrefix(in, "/")
	if in == "" {
		return ID{}, nil
	}

	args := []PathArg{}
	for _, part := range strings.Split(in, "/") {
		if part == "" {
			return ID{}, errors.Errorf("identifier %q has empty path arg", "/"+in)
		}

		open := strings.Index(part, "[")
		if open < 0 {
			if strings.Contains(part, "]") {
				return ID{}, errors.Errorf("identifier %q has unbalanced brackets", "/"+in)
			}
			args = append(args, PathArg{Type: part})

			continue
		}

		if !strings.HasSuffix(part, "]") || open == 0 {
			return ID{}, errors.Errorf("identifier %q has malformed list arg %q", "/"+in, part)
		}

		key := part[open+1 : len(part)-1]
		if strings.ContainsAny(key, "[]") {
			return ID{}, errors.Errorf("identifier %q has malformed key in %q", "/"+in, part)
		}

		args = append(args, PathArg{Type: part[:open], Key: key, List: true})
	}

	return ID{args: args}, nil
}

func MustParse(in string) ID {
	id, err := Parse(in)
	if err != nil {
		panic(err)
	}

	return id
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*id = parsed

	return nil
}
