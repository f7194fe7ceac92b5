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
	"bytes"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const (
	UnitName = "translator.service"
	UnitDir  = "/etc/systemd/system"
)

var unitTmpl = `
[Unit]
Description=Switch config translator
Wants=network-online.target
After=network-online.target

[Service]
User={{ .User }}
ExecStart={{ .BinPath }} run --config {{ .Config }} --desired {{ .Desired }}{{ if .Verbose }} --verbose{{ end }}

Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`

type UnitConfig struct {
	BinPath string
	User    string
	Config  string
	Desired string
	Verbose bool
}

func (cfg UnitConfig) validate() error {
	if cfg.BinPath == "" {
		return errors.New("binary path is required")
	}
	if cfg.User == "" {
		return errors.New("user is required")
	}
	if cfg.Config == "" || cfg.Desired == "" {
		return errors.New("config and desired paths are required")
	}
	if strings.ContainsAny(cfg.Config+cfg.Desired+cfg.BinPath, " \n") {
		return errors.New("paths can't contain spaces or new lines")
	}

	return nil
}

func Generate(cfg UnitConfig) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", errors.Wrapf(err, "invalid unit config")
	}

	t, err := template.New("unit").Parse(unitTmpl[1 : len(unitTmpl)-1])
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse template")
	}

	unit := bytes.NewBuffer(nil)
	if err := t.Execute(unit, cfg); err != nil {
		return "", errors.Wrapf(err, "failed to execute template")
	}

	return unit.String(), nil
}

// Install writes the unit into dir and enables it, dir defaults to UnitDir
func Install(cfg UnitConfig, dir string) error {
	if dir == "" {
		dir = UnitDir
	}

	slog.Info("Installing", "unit", UnitName, "config", cfg)

	unitContent, err := Generate(cfg)
	if err != nil {
		return errors.Wrapf(err, "failed to generate %s", UnitName)
	}

	if err := os.WriteFile(filepath.Join(dir, UnitName), []byte(unitContent), 0o644); err != nil { //nolint:gosec
		return errors.Wrapf(err, "failed to write unit %s", UnitName)
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", UnitName},
		{"restart", UnitName},
	} {
		if err := run("systemctl", args...); err != nil {
			return err
		}
	}

	return nil
}

func run(command string, args ...string) error {
	slog.Debug("Running", "command", command, "args", strings.Join(args, " "))

	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout

	return errors.Wrapf(cmd.Run(), "failed to run %s %s", command, strings.Join(args, " "))
}
