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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.githedgehog.com/translator/pkg/agent"
	"go.githedgehog.com/translator/pkg/agent/systemd"
	"go.githedgehog.com/translator/pkg/device/gnmi"
	"go.githedgehog.com/translator/pkg/switchcfg"
	"go.githedgehog.com/translator/pkg/util/logutil"
	"go.githedgehog.com/translator/pkg/util/tableutil"
	"go.githedgehog.com/translator/pkg/version"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultConfig  = "/etc/translator/agent.yaml"
	DefaultDesired = "/etc/translator/switch.yaml"
	DefaultLogFile = "/var/log/translator.log"
	DefaultBinPath = "/opt/translator/bin/translator"
	DefaultUser    = "root"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			slog.Error("Panic", "err", err, "stack", string(debug.Stack()))
			os.Exit(1)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var logFile *lumberjack.Logger
	defer func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}()

	var verbose bool
	verboseFlag := &cli.BoolFlag{
		Name:        "verbose",
		Aliases:     []string{"v"},
		Usage:       "verbose output (includes debug)",
		Destination: &verbose,
	}

	var configPath string
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "agent config file, defaults are used if it doesn't exist",
		Value:       DefaultConfig,
		Destination: &configPath,
	}

	var desiredPath string
	desiredFlag := &cli.StringFlag{
		Name:        "desired",
		Aliases:     []string{"d"},
		Usage:       "desired switch config file",
		Value:       DefaultDesired,
		Destination: &desiredPath,
	}

	setupLogger := func(toFile bool) func(_ *cli.Context) error {
		return func(_ *cli.Context) error {
			path := ""
			if toFile {
				path = DefaultLogFile
			}
			logFile = logutil.Setup(verbose, path)

			return nil
		}
	}

	loadConfig := func() (*agent.Config, error) {
		path := configPath
		if _, err := os.Stat(path); os.IsNotExist(err) {
			slog.Debug("Agent config not found, using defaults", "path", path)
			path = ""
		}

		cfg, err := agent.LoadConfig(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load agent config")
		}

		return cfg, nil
	}

	loadService := func(setter gnmi.Setter) (*agent.Service, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}

		svc, err := agent.NewService(cfg, setter)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create service")
		}

		return svc, nil
	}

	unitFlags := []cli.Flag{
		verboseFlag,
		configFlag,
		desiredFlag,
		&cli.StringFlag{
			Name:  "bin-path",
			Value: DefaultBinPath,
			Usage: "path to the translator binary",
		},
		&cli.StringFlag{
			Name:  "user",
			Value: DefaultUser,
			Usage: "user to run translator",
		},
	}

	unitConfig := func(cCtx *cli.Context) systemd.UnitConfig {
		return systemd.UnitConfig{
			BinPath: cCtx.String("bin-path"),
			User:    cCtx.String("user"),
			Config:  configPath,
			Desired: desiredPath,
			Verbose: verbose,
		}
	}

	cli.VersionFlag.(*cli.BoolFlag).Aliases = []string{"V"}
	app := &cli.App{
		Name:                   "translator",
		Usage:                  "translate switch config into ordered device changes and apply them",
		Version:                version.Version,
		Suggest:                true,
		UseShortOptionHandling: true,
		EnableBashCompletion:   true,
		Commands: []*cli.Command{
			{
				Name:  "apply",
				Usage: "apply desired config once, reverting on failure",
				Flags: []cli.Flag{
					verboseFlag,
					configFlag,
					desiredFlag,
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "only show the difference from the last applied config",
					},
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "don't connect to the device, print gNMI requests instead",
					},
				},
				Before: setupLogger(false),
				Action: func(cCtx *cli.Context) error {
					desired, err := switchcfg.LoadConfig(desiredPath)
					if err != nil {
						return errors.Wrapf(err, "failed to load desired config")
					}

					if cCtx.Bool("dry-run") {
						svc, err := loadService(nil)
						if err != nil {
							return err
						}

						return dryRun(svc, desired)
					}

					cfg, err := loadConfig()
					if err != nil {
						return err
					}

					var recorder *gnmi.Recorder
					var setter gnmi.Setter

					if cCtx.Bool("offline") {
						recorder = gnmi.NewRecorder(nil)
						setter = recorder
					} else {
						client, err := gnmi.New(ctx, cfg.GNMI)
						if err != nil {
							return errors.Wrapf(err, "failed to create gNMI client")
						}
						defer client.Close()

						setter = client
					}

					svc, err := agent.NewService(cfg, setter)
					if err != nil {
						return errors.Wrapf(err, "failed to create service")
					}

					slog.Info("Applying", "version", version.Version, "desired", desiredPath)

					applyErr := svc.Apply(ctx, desired)

					if recorder != nil {
						for _, entry := range recorder.Entries() {
							fmt.Println(entry.String())
						}
					}

					return errors.Wrapf(applyErr, "failed to apply config")
				},
			},
			{
				Name:  "run",
				Usage: "apply desired config and keep enforcing it, serving metrics",
				Flags: []cli.Flag{
					verboseFlag,
					configFlag,
					desiredFlag,
				},
				Before: setupLogger(true),
				Action: func(_ *cli.Context) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}

					var client *gnmi.Client
					retriesStart := time.Now()
					for time.Since(retriesStart) < 10*time.Minute {
						client, err = gnmi.New(ctx, cfg.GNMI)
						if err != nil {
							slog.Warn("Failed to create gNMI client", "err", err)

							select {
							case <-ctx.Done():
								return nil
							case <-time.After(15 * time.Second):
							}

							continue
						}

						break
					}
					if err != nil {
						return errors.Wrap(err, "failed to create gNMI client after retries")
					}
					defer client.Close()

					svc, err := agent.NewService(cfg, client)
					if err != nil {
						return errors.Wrapf(err, "failed to create service")
					}

					return svc.Run(ctx, desiredPath)
				},
			},
			{
				Name:  "order",
				Usage: "show the order writers are applied in",
				Flags: []cli.Flag{
					verboseFlag,
				},
				Before: setupLogger(false),
				Action: func(_ *cli.Context) error {
					svc, err := loadService(nil)
					if err != nil {
						return err
					}

					subtree := color.New(color.FgCyan).SprintFunc()

					data := [][]string{}
					for idx, info := range svc.Order() {
						data = append(data, []string{
							strconv.Itoa(idx + 1),
							info.Type,
							info.Writer,
							subtree(strings.Join(info.Subtree, ", ")),
						})
					}

					fmt.Print(tableutil.Render([]string{"#", "Type", "Writer", "Subtree"}, data))

					return nil
				},
			},
			{
				Name:  "status",
				Usage: "show the last applied config",
				Flags: []cli.Flag{
					verboseFlag,
					configFlag,
				},
				Before: setupLogger(false),
				Action: func(_ *cli.Context) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}

					svc, err := agent.NewService(cfg, nil)
					if err != nil {
						return errors.Wrapf(err, "failed to create service")
					}

					state, err := svc.LoadState()
					if err != nil {
						return errors.Wrapf(err, "failed to load last applied config")
					}

					applied := "never"
					if stat, err := os.Stat(cfg.StateFile); err == nil {
						applied = tableutil.HumanizeTime(time.Now(), stat.ModTime())
					}

					hostname := ""
					if state.System != nil {
						hostname = state.System.Hostname
					}

					fmt.Print(tableutil.Render([]string{"State", "Applied", "Hostname", "Interfaces", "ACLs"}, [][]string{{
						cfg.StateFile,
						applied,
						hostname,
						strconv.Itoa(len(state.Interfaces)),
						strconv.Itoa(len(state.ACLs)),
					}}))

					return nil
				},
			},
			{
				Name:    "generate",
				Aliases: []string{"gen"},
				Usage:   "generate systemd unit",
				Subcommands: []*cli.Command{
					{
						Name:  "systemd-unit",
						Usage: "generate systemd unit running translator",
						Flags: unitFlags,
						Action: func(cCtx *cli.Context) error {
							unit, err := systemd.Generate(unitConfig(cCtx))
							if err != nil {
								return errors.Wrapf(err, "failed to generate systemd unit")
							}

							fmt.Println(unit)

							return nil
						},
					},
				},
			},
			{
				Name:   "install",
				Usage:  "install and start systemd unit running translator",
				Flags:  unitFlags,
				Before: setupLogger(false),
				Action: func(cCtx *cli.Context) error {
					return errors.Wrapf(systemd.Install(unitConfig(cCtx), ""), "failed to install systemd unit")
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Failed", "err", err.Error())
		os.Exit(1) //nolint:gocritic
	}
}

func dryRun(svc *agent.Service, desired *switchcfg.Config) error {
	diff, err := svc.DryRun(desired)
	if err != nil {
		return errors.Wrapf(err, "failed to calculate diff")
	}

	updates, err := svc.Plan(desired)
	if err != nil {
		return errors.Wrapf(err, "failed to plan changes")
	}

	if updates.IsEmpty() {
		slog.Info("Config is up to date, nothing to apply")

		return nil
	}

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			fmt.Print(green(line))
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			fmt.Print(red(line))
		default:
			fmt.Print(line)
		}
	}

	slog.Warn("Dry run, nothing applied", "deletes", updates.Deletes.Len(), "updates", updates.Updates.Len())

	return nil
}
