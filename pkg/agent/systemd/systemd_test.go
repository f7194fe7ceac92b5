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

package systemd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for _, tt := range []struct {
		name     string
		cfg      UnitConfig
		execLine string
		err      bool
	}{
		{
			name: "default",
			cfg: UnitConfig{
				BinPath: "/opt/translator/bin/translator",
				User:    "root",
				Config:  "/etc/translator/agent.yaml",
				Desired: "/etc/translator/switch.yaml",
			},
			execLine: "ExecStart=/opt/translator/bin/translator run --config /etc/translator/agent.yaml --desired /etc/translator/switch.yaml\n",
		},
		{
			name: "verbose",
			cfg: UnitConfig{
				BinPath: "/usr/bin/translator",
				User:    "admin",
				Config:  "/a.yaml",
				Desired: "/b.yaml",
				Verbose: true,
			},
			execLine: "ExecStart=/usr/bin/translator run --config /a.yaml --desired /b.yaml --verbose\n",
		},
		{
			name: "no user",
			cfg:  UnitConfig{BinPath: "/usr/bin/translator", Config: "/a.yaml", Desired: "/b.yaml"},
			err:  true,
		},
		{
			name: "space in path",
			cfg:  UnitConfig{BinPath: "/usr/bin/translator", User: "root", Config: "/my config.yaml", Desired: "/b.yaml"},
			err:  true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := Generate(tt.cfg)
			if tt.err {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.True(t, strings.HasPrefix(unit, "[Unit]\n"))
			require.Contains(t, unit, "User="+tt.cfg.User+"\n")
			require.Contains(t, unit, tt.execLine)
			require.True(t, strings.HasSuffix(unit, "WantedBy=multi-user.target"))
		})
	}
}
