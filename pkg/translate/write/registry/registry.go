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

// Package registry orders writers by node type and applies update batches
// through them, deletes first in reversed order and then creates and updates
// in order. A failed batch can be reverted using the returned BulkUpdateError.
package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

type Registry struct {
	writers *OrderedWriters
	metrics *Metrics
}

type Option func(r *Registry)

func WithMetrics(metrics *Metrics) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

func New(writers *OrderedWriters, opts ...Option) (*Registry, error) {
	if writers == nil {
		return nil, errors.New("ordered writers are nil")
	}

	r := &Registry{
		writers: writers,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

func (r *Registry) Writers() *OrderedWriters {
	return r.writers
}

// change is a single writer invocation, covers holds the batch identifiers
// it takes care of (more than one for updates derived for subtree writers)
type change struct {
	typ    iid.ID
	writer write.Writer
	update write.Update
	covers []iid.ID
}

type plan struct {
	deletes map[string][]*change
	updates map[string][]*change
	changes []*change
}

// ordered returns changes in the order they are applied, deletes in reversed
// writer order first and then creates and updates in writer order
func (p *plan) ordered(writers *OrderedWriters) []*change {
	res := []*change{}
	for _, typ := range writers.Reversed() {
		res = append(res, p.deletes[typ.Type()]...)
	}
	for _, typ := range writers.Types() {
		res = append(res, p.updates[typ.Type()]...)
	}

	return res
}

// Update applies the batch. Every node type in the batch has to be handled by
// a registered writer, otherwise ErrMissingWriter is returned before anything
// is applied. On writer failure BulkUpdateError is returned.
func (r *Registry) Update(ctx context.Context, updates *write.Updates, wctx write.Context) error {
	if updates.IsEmpty() {
		slog.Debug("Nothing to apply, batch is empty")

		return nil
	}

	start := time.Now()
	batchID := uuid.NewString()

	p, err := r.plan(updates, wctx)
	if err != nil {
		r.metrics.batch(ResultInvalid, start)

		return err
	}

	slog.Info("Applying batch", "batch", batchID, "deletes", updates.Deletes.Len(), "updates", updates.Updates.Len())

	changes := p.ordered(r.writers)
	applied := []*change{}

	for idx, c := range changes {
		slog.Debug("Applying change", "batch", batchID, "writer", c.typ, "op", c.update.Op(), "id", c.update.ID)

		err := c.writer.Update(ctx, c.update.ID, c.update.Before, c.update.After, wctx)
		r.metrics.write(c.typ.String(), string(c.update.Op()), err)
		if err != nil {
			notAttempted := lo.UniqBy(lo.FlatMap(changes[idx:], func(c *change, _ int) []iid.ID {
				return c.covers
			}), iid.ID.String)

			slog.Warn("Batch failed", "batch", batchID, "writer", c.typ, "id", c.update.ID, "notAttempted", len(notAttempted), "err", err)
			r.metrics.batch(ResultFailed, start)

			return &BulkUpdateError{
				FailedType:   c.typ,
				NotAttempted: notAttempted,
				Reverter:     newReverter(batchID, applied, wctx, r.metrics),
				Err:          err,
			}
		}

		applied = append(applied, c)
	}

	slog.Info("Batch committed", "batch", batchID, "changes", len(applied), "took", time.Since(start))
	r.metrics.batch(ResultCommitted, start)

	return nil
}

// UpdateSingle applies a single change, it's not a part of any batch so no
// revert is available and the writer failure is returned as is.
func (r *Registry) UpdateSingle(ctx context.Context, id iid.ID, before, after any, wctx write.Context) error {
	update, err := write.NewUpdate(id, before, after)
	if err != nil {
		return err
	}

	updates := write.NewUpdates()
	updates.Add(update)

	p, err := r.plan(updates, wctx)
	if err != nil {
		return err
	}

	// exactly one, the owner update if id is owned by a subtree writer
	c := p.changes[0]

	slog.Debug("Applying single change", "writer", c.typ, "op", c.update.Op(), "id", c.update.ID)

	err = c.writer.Update(ctx, c.update.ID, c.update.Before, c.update.After, wctx)
	r.metrics.write(c.typ.String(), string(c.update.Op()), err)

	return err //nolint:wrapcheck
}

type planKey struct {
	delete bool
	id     string
}

// plan validates the batch and assigns every update to a writer and a phase.
// Updates of types owned by subtree writers are replaced by a single update
// of the owning node per phase, read from the context. A delete of an owned
// node makes the owner update a part of the delete phase even if the owner
// itself stays.
func (r *Registry) plan(updates *write.Updates, wctx write.Context) (*plan, error) {
	unhandled := lo.Filter(updates.Types(), func(typ iid.ID, _ int) bool {
		return !r.writers.Handles(typ)
	})
	if len(unhandled) > 0 {
		return nil, errors.Wrapf(ErrMissingWriter, "for types [%s]", joinIDs(unhandled))
	}

	p := &plan{
		deletes: map[string][]*change{},
		updates: map[string][]*change{},
	}
	byKey := map[planKey]*change{}

	add := func(c *change, deletePhase bool) {
		key := c.typ.Type()
		if deletePhase {
			p.deletes[key] = append(p.deletes[key], c)
		} else {
			p.updates[key] = append(p.updates[key], c)
		}
		p.changes = append(p.changes, c)
		byKey[planKey{delete: deletePhase, id: c.update.ID.String()}] = c
	}

	all := append(updates.Deletes.Values(), updates.Updates.Values()...)
	owned := []write.Update{}

	for _, update := range all {
		typ := update.ID.Wildcarded()
		writer, exists := r.writers.Get(typ)
		if !exists {
			owned = append(owned, update)

			continue
		}

		add(&change{
			typ:    typ,
			writer: writer,
			update: update,
			covers: []iid.ID{update.ID},
		}, update.IsDelete())
	}

	for _, update := range owned {
		ownerType, writer, ok := r.writers.Resolve(update.ID.Wildcarded())
		if !ok {
			return nil, errors.Wrapf(ErrMissingWriter, "for %s", update.ID)
		}

		ownerID := update.ID.Cut(ownerType.Len())
		deletePhase := update.IsDelete()

		if c, exists := byKey[planKey{delete: deletePhase, id: ownerID.String()}]; exists {
			c.covers = append(c.covers, update.ID)

			continue
		}

		if wctx == nil {
			return nil, errors.Errorf("context is required to resolve %s for subtree writer %s", update.ID, ownerType)
		}

		before, _ := wctx.ReadBefore(ownerID)
		after, _ := wctx.ReadAfter(ownerID)
		ownerUpdate, err := write.NewUpdate(ownerID, before, after)
		if err != nil {
			return nil, errors.Wrapf(err, "no data for %s owning %s", ownerID, update.ID)
		}

		slog.Debug("Resolved subtree update", "id", update.ID, "owner", ownerID, "op", ownerUpdate.Op(), "delete", deletePhase)

		add(&change{
			typ:    ownerType,
			writer: writer,
			update: ownerUpdate,
			covers: []iid.ID{update.ID},
		}, deletePhase)
	}

	return p, nil
}
