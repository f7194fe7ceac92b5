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

// Package agent reconciles the switch with the desired configuration: the last
// applied configuration is kept in the state file and every apply only sends
// the difference, reverting partially applied changes on failure.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/maruel/natural"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/device/gnmi"
	"go.githedgehog.com/translator/pkg/switchcfg"
	"go.githedgehog.com/translator/pkg/translate/datatree"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
	"go.githedgehog.com/translator/pkg/translate/write/registry"
	"go.githedgehog.com/translator/pkg/version"
	"golang.org/x/sync/errgroup"
	kyaml "sigs.k8s.io/yaml"
)

type Service struct {
	cfg     *Config
	setter  gnmi.Setter
	reg     *registry.Registry
	prom    *prometheus.Registry
	metrics *Metrics

	mapping       *write.MappingContext
	mappingLoaded bool
	lastApplied   time.Time
}

// NewService returns the service applying config through setter, setter
// could be nil if only dry run and order are used
func NewService(cfg *Config, setter gnmi.Setter) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	prom := prometheus.NewRegistry()

	reg, err := switchcfg.NewRegistry(registry.WithMetrics(registry.NewMetrics(prom)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create writer registry")
	}

	metrics := NewMetrics(prom)
	metrics.Version.WithLabelValues(version.Version).Set(1)

	return &Service{
		cfg:     cfg,
		setter:  setter,
		reg:     reg,
		prom:    prom,
		metrics: metrics,
		mapping: write.NewMappingContext(),
	}, nil
}

func (svc *Service) LastApplied() time.Time {
	return svc.lastApplied
}

// LoadState returns the last applied config, empty config if nothing was
// applied yet
func (svc *Service) LoadState() (*switchcfg.Config, error) {
	data, err := os.ReadFile(svc.cfg.StateFile)
	if os.IsNotExist(err) {
		return &switchcfg.Config{}, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read state file %q", svc.cfg.StateFile)
	}

	state, err := switchcfg.ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse state file %q", svc.cfg.StateFile)
	}

	return state, nil
}

func (svc *Service) SaveState(cfg *switchcfg.Config) error {
	data, err := kyaml.Marshal(cfg)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal state")
	}

	if err := os.MkdirAll(filepath.Dir(svc.cfg.StateFile), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create state dir")
	}

	tmp := svc.cfg.StateFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrapf(err, "failed to write state file %q", tmp)
	}

	return errors.Wrapf(os.Rename(tmp, svc.cfg.StateFile), "failed to replace state file %q", svc.cfg.StateFile)
}

// restoreMapping assigns interface indexes for the last applied config once,
// so writers of a restarted agent see the same mapping. Indexes follow the
// natural order of interface names.
func (svc *Service) restoreMapping(last *switchcfg.Config) {
	if svc.mappingLoaded {
		return
	}
	svc.mappingLoaded = true

	names := lo.Map(last.Interfaces, func(iface *switchcfg.Interface, _ int) string {
		return iface.Name
	})
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case natural.Less(a, b):
			return -1
		default:
			return 1
		}
	})

	for _, name := range names {
		svc.mapping.Assign(switchcfg.MappingInterface, name)
	}

	slog.Debug("Mapping restored", "interfaces", svc.mapping.Len(switchcfg.MappingInterface))
}

type planned struct {
	last    *switchcfg.Config
	before  *datatree.Store
	after   *datatree.Store
	updates *write.Updates
}

func (svc *Service) plan(desired *switchcfg.Config) (*planned, error) {
	if err := desired.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid desired config")
	}

	last, err := svc.LoadState()
	if err != nil {
		return nil, err
	}

	before, err := switchcfg.Store(last)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load last applied config")
	}

	after, err := switchcfg.Store(desired)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load desired config")
	}

	updates, err := datatree.Diff(before, after, svc.reg.Writers().HandledTypes())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to calculate changes")
	}

	return &planned{
		last:    last,
		before:  before,
		after:   after,
		updates: updates,
	}, nil
}

// Plan returns changes Apply would send for the desired config
func (svc *Service) Plan(desired *switchcfg.Config) (*write.Updates, error) {
	p, err := svc.plan(desired)
	if err != nil {
		return nil, err
	}

	return p.updates, nil
}

// Apply sends the difference between the last applied and the desired config.
// If applying fails, already applied changes are reverted and the error is
// returned, it contains registry.RevertFailedError if the revert failed too and
// the switch is left in an unknown state.
func (svc *Service) Apply(ctx context.Context, desired *switchcfg.Config) error {
	start := time.Now()

	p, err := svc.plan(desired)
	if err != nil {
		svc.metrics.apply(ApplyResultFailed, start)

		return err
	}

	if p.updates.IsEmpty() {
		slog.Info("Config is up to date, nothing to apply")
		svc.metrics.apply(ApplyResultUnchanged, start)

		return nil
	}

	svc.restoreMapping(p.last)

	slog.Info("Applying config", "deletes", p.updates.Deletes.Len(), "updates", p.updates.Updates.Len())

	err = svc.reg.Update(ctx, p.updates, datatree.NewContext(p.before, p.after, svc.setter, svc.mapping))
	if err != nil {
		bulk, ok := registry.AsBulkUpdateError(err)
		if !ok {
			svc.metrics.apply(ApplyResultFailed, start)

			return errors.Wrapf(err, "failed to apply config")
		}

		slog.Warn("Failed to apply config, reverting", "failed", bulk.FailedType, "notAttempted", len(bulk.NotAttempted), "err", bulk.Err)

		if revertErr := bulk.RevertChanges(ctx); revertErr != nil {
			slog.Error("Failed to revert config, switch state is unknown", "err", revertErr)
			svc.metrics.apply(ApplyResultFailed, start)

			return errors.Wrapf(revertErr, "failed to revert after %s", bulk.Err)
		}

		slog.Info("Config reverted to last applied")
		svc.metrics.apply(ApplyResultReverted, start)

		return errors.Wrapf(err, "config reverted")
	}

	if err := svc.SaveState(desired); err != nil {
		svc.metrics.apply(ApplyResultFailed, start)

		return err
	}

	svc.lastApplied = time.Now()
	svc.metrics.apply(ApplyResultApplied, start)

	slog.Info("Config applied", "took", time.Since(start))

	return nil
}

// DryRun returns unified diff of the last applied and desired configs
func (svc *Service) DryRun(desired *switchcfg.Config) (string, error) {
	if err := desired.Validate(); err != nil {
		return "", errors.Wrapf(err, "invalid desired config")
	}

	last, err := svc.LoadState()
	if err != nil {
		return "", err
	}

	lastData, err := kyaml.Marshal(last)
	if err != nil {
		return "", errors.Wrapf(err, "failed to marshal last applied config")
	}

	desiredData, err := kyaml.Marshal(desired)
	if err != nil {
		return "", errors.Wrapf(err, "failed to marshal desired config")
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(lastData)),
		B:        difflib.SplitLines(string(desiredData)),
		FromFile: "Last Applied",
		ToFile:   "Desired",
		Context:  4,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to generate diff")
	}

	return diff, nil
}

type WriterInfo struct {
	Type    string
	Writer  string
	Subtree []string
}

// Order returns registered writers in the order updates are applied
func (svc *Service) Order() []WriterInfo {
	writers := svc.reg.Writers()

	return lo.Map(writers.Types(), func(typ iid.ID, _ int) WriterInfo {
		info := WriterInfo{Type: typ.String()}

		writer, _ := writers.Get(typ)
		info.Writer = fmt.Sprint(writer)

		if subtree, ok := writer.(*registry.SubtreeWriter); ok {
			info.Writer = fmt.Sprint(subtree.Unwrap())
			info.Subtree = lo.Map(subtree.HandledChildTypes(), func(child iid.ID, _ int) string {
				return child.String()
			})
		}

		return info
	})
}

// Run applies the desired config from the file and keeps enforcing it until
// context is done while serving metrics. Reverted failures are retried in the
// next period.
func (svc *Service) Run(ctx context.Context, desiredPath string) error {
	slog.Info("Starting", "version", version.Version, "desired", desiredPath, "period", svc.cfg.EnforcePeriod.Duration)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.ServeMetrics(ctx)
	})

	g.Go(func() error {
		if err := svc.enforce(ctx, desiredPath); err != nil {
			return err
		}

		ticker := time.NewTicker(svc.cfg.EnforcePeriod.Duration)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Context done, exiting")

				return nil
			case <-ticker.C:
				if err := svc.enforce(ctx, desiredPath); err != nil {
					return err
				}
			}
		}
	})

	return errors.Wrapf(g.Wait(), "failed to run")
}

func (svc *Service) enforce(ctx context.Context, desiredPath string) error {
	desired, err := switchcfg.LoadConfig(desiredPath)
	if err != nil {
		return errors.Wrapf(err, "failed to load desired config")
	}

	err = svc.Apply(ctx, desired)
	if err == nil {
		return nil
	}

	if _, ok := registry.AsRevertFailedError(err); ok {
		return err
	}

	if _, ok := registry.AsBulkUpdateError(err); ok {
		slog.Warn("Config apply reverted, will retry", "err", err)

		return nil
	}

	return err
}
