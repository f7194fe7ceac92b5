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

package agent

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"go.githedgehog.com/translator/pkg/device/gnmi"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	kyaml "sigs.k8s.io/yaml"
)

const (
	DefaultStateFile      = "/var/lib/translator/last-applied.yaml"
	DefaultMetricsAddress = "127.0.0.1:2112"
	DefaultEnforcePeriod  = 2 * time.Minute
)

type Config struct {
	GNMI           gnmi.Config     `json:"gnmi,omitempty"`
	StateFile      string          `json:"stateFile,omitempty"`
	MetricsAddress string          `json:"metricsAddress,omitempty"`
	EnforcePeriod  metav1.Duration `json:"enforcePeriod,omitempty"`
}

func (cfg *Config) Default() {
	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFile
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = DefaultMetricsAddress
	}
	if cfg.EnforcePeriod.Duration == 0 {
		cfg.EnforcePeriod.Duration = DefaultEnforcePeriod
	}
}

// LoadConfig reads the agent config, missing path means defaults only
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading agent config %s", path)
		}

		if err := kyaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "error unmarshalling agent config %s", path)
		}
	}

	cfg.Default()

	if cfg.EnforcePeriod.Duration < 0 {
		return nil, errors.Errorf("enforce period can't be negative")
	}

	return cfg, nil
}
