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
	"log/slog"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
	"k8s.io/apimachinery/pkg/api/equality"
)

// Diff builds the batch turning before into after for the provided node
// types. Nodes of other types are ignored, it's expected that they're handled
// by writers of their ancestors.
func Diff(before, after *Store, types []iid.ID) (*write.Updates, error) {
	res := write.NewUpdates()

	for _, typ := range lo.UniqBy(types, iid.ID.Type) {
		nodesBefore := before.ByType(typ)
		nodesAfter := after.ByType(typ)

		byIDBefore := lo.KeyBy(nodesBefore, func(node Node) string { return node.ID.String() })
		byIDAfter := lo.KeyBy(nodesAfter, func(node Node) string { return node.ID.String() })

		for _, node := range nodesBefore {
			if _, exists := byIDAfter[node.ID.String()]; exists {
				continue
			}

			update, err := write.NewDelete(node.ID, node.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to diff %s", node.ID)
			}
			res.Add(update)
		}

		for _, node := range nodesAfter {
			prev, exists := byIDBefore[node.ID.String()]
			if exists && equality.Semantic.DeepEqual(prev.Value, node.Value) {
				continue
			}

			var prevValue any
			if exists {
				prevValue = prev.Value
			}

			update, err := write.NewUpdate(node.ID, prevValue, node.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to diff %s", node.ID)
			}
			res.Add(update)
		}
	}

	slog.Debug("Diff calculated", "deletes", res.Deletes.Len(), "updates", res.Updates.Len())

	return res, nil
}
