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

package actions

import (
	"fmt"
	"io"
	"log"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/hil"
)

// Logger is an environment that can receive log messages.
type Logger interface {
	Logf(format string, v ...interface{})
}

func init() {
	Register("set", setBuilder)
	Register("incr", incrBuilder)
	Register("capture", captureBuilder)
	Register("print", printBuilder)
	Register("log", logBuilder)
}

// setBuilder returns an action which adds all of its arguments to the scope.
// String values are interpolated.
func setBuilder(args map[string]interface{}) (interfaces.Action, error) {
	values := make(map[string]interface{}, len(args))
	for k, v := range args {
		values[k] = v
	}
	return func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
		updates := interfaces.EmptyScope()
		for k, v := range values {
			s, ok := v.(string)
			if !ok {
				updates[k] = v
				continue
			}
			out, err := hil.Interpolate(s, scope, ctx)
			if err != nil {
				return nil, err
			}
			updates[k] = out
		}
		return updates, nil
	}, nil
}

// incrBuilder returns an action which increments the int stored in the scope
// under `key` by `by`, which defaults to one. A missing value counts as zero.
func incrBuilder(args map[string]interface{}) (interfaces.Action, error) {
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	by, err := intArg(args, "by", 1)
	if err != nil {
		return nil, err
	}
	return func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
		i := 0
		if v, exists := scope.Get(key); exists {
			var ok bool
			if i, ok = v.(int); !ok {
				return nil, fmt.Errorf("scope value `%s` is a %T, not an int", key, v)
			}
		}
		return interfaces.Scope{key: i + by}, nil
	}, nil
}

// captureBuilder returns an action which renders the node published under
// `node`, and stores the text under `as`.
func captureBuilder(args map[string]interface{}) (interfaces.Action, error) {
	name, err := stringArg(args, "node")
	if err != nil {
		return nil, err
	}
	as, err := stringArg(args, "as")
	if err != nil {
		return nil, err
	}
	return func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
		v, exists := scope.Get(name)
		if !exists {
			return nil, fmt.Errorf("no node named `%s` in scope", name)
		}
		node, ok := v.(interfaces.Node)
		if !ok {
			return nil, fmt.Errorf("scope value `%s` is a %T, not a node", name, v)
		}
		s, err := node.Render()
		if err != nil {
			return nil, err
		}
		return interfaces.Scope{as: s}, nil
	}, nil
}

// printBuilder returns an action which writes the interpolated `msg` and a
// newline to the environment, if it is a writer.
func printBuilder(args map[string]interface{}) (interfaces.Action, error) {
	msg, err := stringArg(args, "msg")
	if err != nil {
		return nil, err
	}
	return func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
		w, ok := env.(io.Writer)
		if !ok {
			return nil, nil // nowhere to print
		}
		s, err := hil.Interpolate(msg, scope, ctx)
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintln(w, s); err != nil {
			return nil, err
		}
		return nil, nil
	}, nil
}

// logBuilder returns an action which logs the interpolated `msg` through the
// environment if it is a Logger, and through the standard logger otherwise.
func logBuilder(args map[string]interface{}) (interfaces.Action, error) {
	msg, err := stringArg(args, "msg")
	if err != nil {
		return nil, err
	}
	return func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
		s, err := hil.Interpolate(msg, scope, ctx)
		if err != nil {
			return nil, err
		}
		if logger, ok := env.(Logger); ok {
			logger.Logf("%s", s)
			return nil, nil
		}
		log.Printf("action: %s", s)
		return nil, nil
	}, nil
}
