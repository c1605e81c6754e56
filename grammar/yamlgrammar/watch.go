// Mgmt
// Copyright (C) James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
//
// Additional permission under GNU GPL version 3 section 7
//
// If you modify this program, or any covered work, by linking or combining it
// with embedded mcl code and modules (and that the embedded mcl code and
// modules which link with this program, contain a copy of their source code in
// the authoritative form) containing parts covered by the terms of any other
// license, the licensors of this program grant you additional permission to
// convey the resulting work. Furthermore, the licensors of this program grant
// the original author, James Shubin, additional permission to update this
// additional permission if he deems it necessary to achieve the goals of this
// additional permission.

package yamlgrammar

import (
	"context"
	"path/filepath"

	"github.com/purpleidea/agt/util/errwrap"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Watch loads the grammar file, and then loads it again each time it changes,
// until the context is cancelled. Each result is passed to fn, including load
// errors, so that a broken edit doesn't stop the watch. The directory of the
// file is watched, since many editors replace the file when they save it.
func Watch(ctx context.Context, path string, fn func(*Grammar, error)) error {
	path = filepath.Clean(path)
	fs := afero.NewOsFs()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errwrap.Wrapf(err, "can't create watcher")
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errwrap.Wrapf(err, "can't watch `%s`", path)
	}

	fn(Load(fs, path)) // initial load

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Rename != 0 {
				if exists, _ := afero.Exists(fs, path); !exists {
					continue // wait for the create
				}
			}
			fn(Load(fs, path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errwrap.Wrapf(err, "watcher failed")

		case <-ctx.Done():
			return nil
		}
	}
}
