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

package logutil

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewHandler returns a handler logging to the console and, if logFile isn't
// empty, to the rotated log file as well. The returned logger should be
// closed on exit if it isn't nil.
func NewHandler(console *os.File, verbose bool, logFile string) (slog.Handler, *lumberjack.Logger) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    !isatty.IsTerminal(console.Fd()),
		}),
	}

	var file *lumberjack.Logger
	if logFile != "" {
		file = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    5, // MB
			MaxBackups: 4,
			MaxAge:     30, // days
			Compress:   true,
			FileMode:   0o644,
		}

		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: logLevel,
		}))
	}

	return slogmulti.Fanout(handlers...), file
}

// Setup configures the default logger, console is stderr so stdout stays
// clean for command output
func Setup(verbose bool, logFile string) *lumberjack.Logger {
	handler, file := NewHandler(os.Stderr, verbose, logFile)
	slog.SetDefault(slog.New(handler))

	return file
}
