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

package tableutil

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// Render returns a borderless, left aligned table
func Render(headers []string, data [][]string) string {
	str := &strings.Builder{}

	cellCfg := tw.CellConfig{
		Formatting: tw.CellFormatting{
			AutoWrap:  tw.WrapNormal,
			Alignment: tw.AlignLeft,
		},
		Padding: tw.CellPadding{Global: tw.Padding{Right: "    "}},
	}

	table := tablewriter.NewTable(str,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row:    cellCfg,
			Header: cellCfg,
		}),
	)
	table.Header(headers)

	if err := table.Bulk(data); err != nil {
		slog.Error("Error in adding bulk data to table", "error", err)

		return "Error"
	}
	if err := table.Render(); err != nil {
		slog.Error("Error in table rendering", "error", err)

		return "Error"
	}

	return str.String()
}

func HumanizeTime(now, then time.Time) string {
	return humanize.RelTime(then, now, "ago", "from now")
}
