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

package gnmi

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/gnmic/api"
	"github.com/openconfig/gnmic/target"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	JSON_IETF       = "json_ietf"
	TARGET          = "switch"
	DEFAULT_ADDRESS = "127.0.0.1:8080"
	DEFAULT_TIMEOUT = 30 * time.Second
)

type Config struct {
	Address      string          `json:"address,omitempty"`
	Username     string          `json:"username,omitempty"`
	Password     string          `json:"password,omitempty"`
	PasswordFile string          `json:"passwordFile,omitempty"`
	SkipVerify   bool            `json:"skipVerify,omitempty"`
	Timeout      metav1.Duration `json:"timeout,omitempty"`
}

type Client struct {
	tg *target.Target
}

var _ Setter = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		cfg.Address = DEFAULT_ADDRESS
	}
	if cfg.Timeout.Duration == 0 {
		cfg.Timeout.Duration = DEFAULT_TIMEOUT
	}

	if cfg.Password == "" && cfg.PasswordFile != "" {
		password, err := os.ReadFile(cfg.PasswordFile)
		if err != nil {
			return nil, errors.Wrap(err, "cannot read password file")
		}
		cfg.Password = strings.TrimSpace(string(password))
	}

	tg, err := createGNMIClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	_, err = tg.Capabilities(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot get capabilities for %s@%s", cfg.Username, cfg.Address)
	}

	return &Client{
		tg: tg,
	}, nil
}

func (c *Client) Close() error {
	if c != nil && c.tg != nil {
		return c.tg.Close() //nolint:wrapcheck
	}

	return nil
}

func createGNMIClient(ctx context.Context, cfg Config) (*target.Target, error) {
	tg, err := api.NewTarget(
		api.Name(TARGET),
		api.Address(cfg.Address),
		api.Username(cfg.Username),
		api.Password(cfg.Password),
		api.SkipVerify(cfg.SkipVerify),
		api.Timeout(cfg.Timeout.Duration),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create target for %s@%s", cfg.Username, cfg.Address)
	}

	err = tg.CreateGNMIClient(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create gnmi client for %s@%s", cfg.Username, cfg.Address)
	}

	return tg, nil
}

// Set runs a separate set request for every entry, in order
func (c *Client) Set(ctx context.Context, entries ...*Entry) error {
	for _, entry := range entries {
		slog.Debug("Running gNMI set", "op", entry.Op, "summary", entry.Summary)

		setReq, err := NewSetRequest(entry)
		if err != nil {
			return err
		}

		if _, err := c.tg.Set(ctx, setReq); err != nil {
			return errors.Wrapf(err, "set request failed for: %s", entry.Summary)
		}
	}

	return nil
}

func NewSetRequest(entry *Entry) (*gnmi.SetRequest, error) {
	var opt api.GNMIOption
	switch entry.Op {
	case OpUpdate:
		opt = api.Update(api.Path(entry.Path), api.Value(entry.Value, JSON_IETF))
	case OpReplace:
		opt = api.Replace(api.Path(entry.Path), api.Value(entry.Value, JSON_IETF))
	case OpDelete:
		opt = api.Delete(entry.Path)
	default:
		return nil, errors.Errorf("unknown set op %q for: %s", entry.Op, entry.Summary)
	}

	setReq, err := api.NewSetRequest(opt)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create set request for: %s", entry.Summary)
	}

	return setReq, nil
}
