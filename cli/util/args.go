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

package util

import (
	"reflect"
	"strings"
)

// LookupSubcommand returns the name of the subcommand in the obj, of a struct.
// This is useful for determining the name of the subcommand that was activated.
// It returns an empty string if a specific name was not found.
func LookupSubcommand(obj interface{}, st interface{}) string {
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr { // max one de-referencing
		val = val.Elem()
	}

	v := reflect.ValueOf(st) // value of the struct
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := val.Field(i) // value of the field
		if f.Interface() != v.Interface() {
			continue
		}

		field := typ.Field(i)
		alias, ok := field.Tag.Lookup("arg")
		if !ok {
			continue
		}

		// XXX: `arg` needs a split by comma first or fancier parsing
		prefix := "subcommand"
		split := strings.Split(alias, ":")
		if len(split) != 2 || split[0] != prefix {
			continue
		}

		return split[1] // found
	}
	return "" // not found
}

// GrammarArgs is the CLI parsing structure which is common to all of the
// subcommands that operate on a grammar file.
type GrammarArgs struct {
	// Input is the path to the yaml grammar file.
	Input string `arg:"positional,required" help:"path to the yaml grammar file"`

	Rule  string `arg:"--rule" help:"rule to start from instead of the start rule"`
	Count int    `arg:"--count" default:"1" help:"number of derivations to generate"`
	Watch bool   `arg:"--watch" help:"run again each time the grammar file changes"`

	// Context is a list of key=value pairs given to factories and actions.
	Context []string `arg:"--context,separate" help:"keyword context as key=value (repeatable)"`

	MaxDepth     int `arg:"--max-depth" help:"max nesting of rule references (0 is the default)"`
	ExcludeLimit int `arg:"--exclude-limit" help:"attempt cap for unbounded excludes (0 is the default)"`
}

// GenerateArgs is the generate CLI parsing structure and type of the parsed
// result.
type GenerateArgs struct {
	GrammarArgs
}

// ExecuteArgs is the execute CLI parsing structure and type of the parsed
// result.
type ExecuteArgs struct {
	GrammarArgs

	Quiet bool `arg:"--quiet" help:"don't print the renders, only run the actions"`
}

// GraphvizArgs is the graphviz CLI parsing structure and type of the parsed
// result.
type GraphvizArgs struct {
	GrammarArgs

	Output string `arg:"--output" help:"write the dot file here instead of to stdout"`
	Filter string `arg:"--filter" help:"graphviz program to also render a png with (dot, neato, ...)"`
}

// CheckArgs is the check CLI parsing structure and type of the parsed result.
type CheckArgs struct {
	GrammarArgs
}
