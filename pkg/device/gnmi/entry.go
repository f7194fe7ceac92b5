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
	"fmt"
	"log/slog"
	"sync"
)

type Op string

const (
	OpUpdate  Op = "update"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
)

// Entry is a single set operation, value is the json_ietf payload and is
// ignored for deletes
type Entry struct {
	Summary string
	Op      Op
	Path    string
	Value   map[string]any
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s %s (%s)", e.Op, e.Path, e.Summary)
}

func Update(summary, path string, value map[string]any) *Entry {
	return &Entry{Summary: summary, Op: OpUpdate, Path: path, Value: value}
}

func Replace(summary, path string, value map[string]any) *Entry {
	return &Entry{Summary: summary, Op: OpReplace, Path: path, Value: value}
}

func Delete(summary, path string) *Entry {
	return &Entry{Summary: summary, Op: OpDelete, Path: path}
}

// Setter applies set entries to the device
type Setter interface {
	Set(ctx context.Context, entries ...*Entry) error
}

// Recorder is a Setter that only keeps and logs entries, it's used when no
// device is configured
type Recorder struct {
	lock    sync.Mutex
	entries []*Entry
	fail    func(entry *Entry) error
}

var _ Setter = (*Recorder)(nil)

// NewRecorder returns Recorder, fail is optional and is called for every
// entry before recording it
func NewRecorder(fail func(entry *Entry) error) *Recorder {
	return &Recorder{fail: fail}
}

func (r *Recorder) Set(_ context.Context, entries ...*Entry) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, entry := range entries {
		if r.fail != nil {
			if err := r.fail(entry); err != nil {
				return err
			}
		}

		slog.Debug("Recorded gNMI set", "op", entry.Op, "path", entry.Path, "summary", entry.Summary)
		r.entries = append(r.entries, entry)
	}

	return nil
}

func (r *Recorder) Entries() []*Entry {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]*Entry(nil), r.entries...)
}

func (r *Recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.entries = nil
}
