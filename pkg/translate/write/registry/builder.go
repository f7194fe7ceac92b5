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
	"log/slog"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

type registration struct {
	writer write.Writer
	before []iid.ID // writer goes before these types
	after  []iid.ID // writer goes after these types
}

// Builder collects writers with their ordering constraints. Nothing is
// validated until Build, which produces immutable OrderedWriters.
type Builder struct {
	regs []registration
	errs []error
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) add(writer write.Writer, before, after []iid.ID) *Builder {
	if writer == nil {
		b.errs = append(b.errs, errors.New("writer is nil"))

		return b
	}

	b.regs = append(b.regs, registration{
		writer: writer,
		before: before,
		after:  after,
	})

	return b
}

func (b *Builder) addSubtree(children []iid.ID, writer write.Writer, before, after []iid.ID) *Builder {
	subtree, err := NewSubtreeWriter(writer, children...)
	if err != nil {
		b.errs = append(b.errs, err)

		return b
	}

	return b.add(subtree, before, after)
}

func (b *Builder) Add(writer write.Writer) *Builder {
	return b.add(writer, nil, nil)
}

// AddBefore adds writer that has to be applied before writers of the related types
func (b *Builder) AddBefore(writer write.Writer, related ...iid.ID) *Builder {
	return b.add(writer, related, nil)
}

// AddAfter adds writer that has to be applied after writers of the related types
func (b *Builder) AddAfter(writer write.Writer, related ...iid.ID) *Builder {
	return b.add(writer, nil, related)
}

func (b *Builder) AddSubtree(children []iid.ID, writer write.Writer) *Builder {
	return b.addSubtree(children, writer, nil, nil)
}

func (b *Builder) AddSubtreeBefore(children []iid.ID, writer write.Writer, related ...iid.ID) *Builder {
	return b.addSubtree(children, writer, related, nil)
}

func (b *Builder) AddSubtreeAfter(children []iid.ID, writer write.Writer, related ...iid.ID) *Builder {
	return b.addSubtree(children, writer, nil, related)
}

type graph struct {
	vertices []string
	index    map[string]int
	ids      map[string]iid.ID
	edges    map[string]map[string]bool
}

func newGraph() *graph {
	return &graph{
		index: map[string]int{},
		ids:   map[string]iid.ID{},
		edges: map[string]map[string]bool{},
	}
}

func (g *graph) addVertex(typ iid.ID) string {
	key := typ.Type()
	if _, exists := g.index[key]; !exists {
		g.index[key] = len(g.vertices)
		g.vertices = append(g.vertices, key)
		g.ids[key] = typ.Wildcarded()
		g.edges[key] = map[string]bool{}
	}

	return key
}

func (g *graph) addEdge(from, to string) error {
	if from == to {
		return errors.Wrapf(ErrCycle, "%s can't be ordered relative to itself", from)
	}

	g.edges[from][to] = true

	return nil
}

// sort is a Kahn topological sort, from the ready vertices the one added
// first is picked, so the result only depends on the registration order
func (g *graph) sort() ([]string, error) {
	inDegree := map[string]int{}
	for _, from := range g.vertices {
		for to := range g.edges[from] {
			inDegree[to]++
		}
	}

	sorted := make([]string, 0, len(g.vertices))
	done := map[string]bool{}
	for len(sorted) < len(g.vertices) {
		next := ""
		for _, vertex := range g.vertices {
			if !done[vertex] && inDegree[vertex] == 0 {
				next = vertex

				break
			}
		}

		if next == "" {
			remaining := lo.Filter(g.vertices, func(vertex string, _ int) bool {
				return !done[vertex]
			})

			return nil, errors.Wrapf(ErrCycle, "between %s", strings.Join(remaining, ", "))
		}

		done[next] = true
		sorted = append(sorted, next)

		targets := lo.Keys(g.edges[next])
		slices.Sort(targets)
		for _, to := range targets {
			inDegree[to]--
		}
	}

	return sorted, nil
}

// Build validates the registrations and orders the writers. Edges are added
// from parent to child types and for every explicit before/after constraint.
// Types only used in constraints take part in ordering but get no entry.
func (b *Builder) Build() (*OrderedWriters, error) {
	if len(b.errs) > 0 {
		return nil, errors.Wrapf(b.errs[0], "invalid registration (%d errors total)", len(b.errs))
	}

	writers := map[string]write.Writer{}
	owners := map[string]iid.ID{}
	g := newGraph()

	for _, reg := range b.regs {
		typ := reg.writer.ManagedType().Wildcarded()
		key := typ.Type()

		if existing, exists := writers[key]; exists {
			return nil, errors.Wrapf(ErrDuplicateWriter, "for type %s, already registered %v", key, existing)
		}

		writers[key] = reg.writer
		g.addVertex(typ)
	}

	for _, reg := range b.regs {
		subtree, ok := reg.writer.(*SubtreeWriter)
		if !ok {
			continue
		}

		for _, child := range subtree.HandledChildTypes() {
			key := child.Type()
			if _, exists := writers[key]; exists {
				return nil, errors.Wrapf(ErrDuplicateWriter, "type %s is registered and also handled by subtree writer of %s", key, subtree.ManagedType())
			}
			if owner, exists := owners[key]; exists {
				return nil, errors.Wrapf(ErrDuplicateWriter, "type %s is handled by subtree writers of %s and %s", key, owner, subtree.ManagedType())
			}

			owners[key] = subtree.ManagedType().Wildcarded()
		}
	}

	// constraints on types handled by subtree writers are applied to the owner
	resolve := func(typ iid.ID) iid.ID {
		if owner, exists := owners[typ.Type()]; exists {
			return owner
		}

		return typ.Wildcarded()
	}

	for _, reg := range b.regs {
		typ := reg.writer.ManagedType().Wildcarded()
		from := typ.Type()

		for _, related := range reg.before {
			to := g.addVertex(resolve(related))
			if err := g.addEdge(from, to); err != nil {
				return nil, err
			}
		}

		for _, related := range reg.after {
			to := g.addVertex(resolve(related))
			if err := g.addEdge(to, from); err != nil {
				return nil, err
			}
		}
	}

	for _, parent := range g.vertices {
		for _, child := range g.vertices {
			if g.ids[parent].IsAncestorOf(g.ids[child]) {
				if err := g.addEdge(parent, child); err != nil {
					return nil, err
				}
			}
		}
	}

	sorted, err := g.sort()
	if err != nil {
		return nil, err
	}

	ordered := &OrderedWriters{
		writers: map[string]write.Writer{},
		owners:  owners,
	}
	for _, key := range sorted {
		if writer, exists := writers[key]; exists {
			ordered.types = append(ordered.types, g.ids[key])
			ordered.writers[key] = writer
		}
	}

	slog.Debug("Writer registry built", "writers", strings.Join(lo.Map(ordered.types, func(typ iid.ID, _ int) string {
		return typ.String()
	}), ", "))

	return ordered, nil
}

// OrderedWriters maps node types to writers in the order they should be
// applied. It's read-only and safe for concurrent use.
type OrderedWriters struct {
	types   []iid.ID
	writers map[string]write.Writer
	owners  map[string]iid.ID
}

func (o *OrderedWriters) Types() []iid.ID {
	return append([]iid.ID(nil), o.types...)
}

func (o *OrderedWriters) Reversed() []iid.ID {
	res := o.Types()
	slices.Reverse(res)

	return res
}

func (o *OrderedWriters) Len() int {
	return len(o.types)
}

func (o *OrderedWriters) Get(typ iid.ID) (write.Writer, bool) {
	writer, exists := o.writers[typ.Type()]

	return writer, exists
}

// SubtreeOwner returns the type of the subtree writer handling typ
func (o *OrderedWriters) SubtreeOwner(typ iid.ID) (iid.ID, bool) {
	owner, exists := o.owners[typ.Type()]

	return owner, exists
}

// HandledTypes returns all types handled directly or by subtree writers
func (o *OrderedWriters) HandledTypes() []iid.ID {
	res := o.Types()
	for _, typ := range o.types {
		if subtree, ok := o.writers[typ.Type()].(*SubtreeWriter); ok {
			res = append(res, subtree.HandledChildTypes()...)
		}
	}

	return res
}

func (o *OrderedWriters) Handles(typ iid.ID) bool {
	key := typ.Type()
	_, direct := o.writers[key]
	_, owned := o.owners[key]

	return direct || owned
}

// Resolve finds the writer responsible for typ, directly or as a subtree owner
func (o *OrderedWriters) Resolve(typ iid.ID) (iid.ID, write.Writer, bool) {
	if writer, exists := o.writers[typ.Type()]; exists {
		return typ.Wildcarded(), writer, true
	}

	if owner, exists := o.owners[typ.Type()]; exists {
		return owner, o.writers[owner.Type()], true
	}

	return iid.ID{}, nil, false
}
