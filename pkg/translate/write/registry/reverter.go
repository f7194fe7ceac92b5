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
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
)

// reverter replays the applied changes of a failed batch in reversed order
// with before and after swapped. It runs once, later calls return the result
// of the first one.
type reverter struct {
	batch   string
	applied []*change
	wctx    write.Context
	metrics *Metrics

	once sync.Once
	err  error
}

var _ write.Reverter = (*reverter)(nil)

func newReverter(batch string, applied []*change, wctx write.Context, metrics *Metrics) *reverter {
	return &reverter{
		batch:   batch,
		applied: append([]*change(nil), applied...),
		wctx:    wctx,
		metrics: metrics,
	}
}

func (r *reverter) Revert(ctx context.Context) error {
	r.once.Do(func() {
		r.err = r.revert(ctx)
		r.applied = nil
	})

	return r.err
}

func (r *reverter) revert(ctx context.Context) error {
	slog.Info("Reverting batch", "batch", r.batch, "changes", len(r.applied))

	wctx := revertContext{Context: r.wctx}

	for idx := len(r.applied) - 1; idx >= 0; idx-- {
		c := r.applied[idx]
		reverse := c.update.Reverse()

		slog.Debug("Reverting change", "batch", r.batch, "writer", c.typ, "op", reverse.Op(), "id", reverse.ID)

		err := c.writer.Update(ctx, reverse.ID, reverse.Before, reverse.After, wctx)
		r.metrics.write(c.typ.String(), string(reverse.Op()), err)
		if err != nil {
			notReverted := lo.Map(r.applied[:idx+1], func(c *change, _ int) iid.ID {
				return c.update.ID
			})

			slog.Error("Revert failed, manual intervention required", "batch", r.batch, "id", reverse.ID, "notReverted", len(notReverted), "err", err)
			r.metrics.revert(ResultStuck)

			return &RevertFailedError{
				NotReverted: notReverted,
				Err:         err,
			}
		}
	}

	slog.Info("Batch reverted", "batch", r.batch)
	r.metrics.revert(ResultReverted)

	return nil
}

// revertContext swaps before and after data so writers reading related nodes
// see the state being restored as the new one
type revertContext struct {
	write.Context
}

func (c revertContext) ReadBefore(id iid.ID) (any, bool) {
	if c.Context == nil {
		return nil, false
	}

	return c.Context.ReadAfter(id)
}

func (c revertContext) ReadAfter(id iid.ID) (any, bool) {
	if c.Context == nil {
		return nil, false
	}

	return c.Context.ReadBefore(id)
}
