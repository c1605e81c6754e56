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

package cli

import (
	"fmt"
	"io"

	cliUtil "github.com/purpleidea/agt/cli/util"
	"github.com/purpleidea/agt/grammar"
	"github.com/purpleidea/agt/prometheus"
	"github.com/purpleidea/agt/util/errwrap"
)

// generate prints one render per line.
func generate(data *cliUtil.Data) command {
	return func(engine *grammar.Engine, metrics *prometheus.Prometheus, count int) error {
		derivations, err := engine.GenerateN(count, nil)
		if err != nil {
			return err
		}
		for _, d := range derivations {
			s, err := d.Render()
			if err != nil {
				return err
			}
			fmt.Fprintln(data.Stdout, s)
		}
		return nil
	}
}

// environment is passed to the actions of executed derivations. It writes to
// the output and it logs through the cli logger.
type environment struct {
	io.Writer

	logf func(format string, v ...interface{})
}

// Logf logs a message from an action.
func (obj *environment) Logf(format string, v ...interface{}) {
	obj.logf("action: "+format, v...)
}

// execute renders and then executes each derivation. The output is also the
// execution environment.
func execute(data *cliUtil.Data, args *cliUtil.ExecuteArgs) command {
	return func(engine *grammar.Engine, metrics *prometheus.Prometheus, count int) error {
		env := &environment{
			Writer: data.Stdout,
			logf:   engine.Logf,
		}
		for i := 0; i < count; i++ {
			d, err := engine.Generate(nil)
			if err != nil {
				return err
			}
			s, updates, err := d.RenderAndExecute(env, engine.Context)
			if err != nil {
				return errwrap.Wrapf(err, "derivation %s", d.ID)
			}
			if metrics != nil {
				metrics.Executed()
			}
			if !args.Quiet {
				fmt.Fprintln(data.Stdout, s)
			}
			if engine.Debug {
				engine.Logf("derivation %s updated: %v", d.ID, updates.Keys())
			}
		}
		return nil
	}
}

// graphviz outputs the tree of a single derivation.
func graphviz(data *cliUtil.Data, args *cliUtil.GraphvizArgs) command {
	return func(engine *grammar.Engine, metrics *prometheus.Prometheus, count int) error {
		d, err := engine.Generate(nil)
		if err != nil {
			return err
		}
		if args.Output == "" {
			if args.Filter != "" {
				return cliUtil.CliParseError(fmt.Errorf("the filter needs an output file"))
			}
			out, err := d.Graphviz()
			if err != nil {
				return err
			}
			fmt.Fprint(data.Stdout, out)
			return nil
		}
		g, err := d.Graph()
		if err != nil {
			return err
		}
		if err := g.ExecGraphviz(args.Filter, args.Output); err != nil {
			return err
		}
		engine.Logf("graphviz: wrote %s", args.Output)
		return nil
	}
}

// check generates derivations and verifies that the grammar accepts each of
// them.
func check(data *cliUtil.Data) command {
	return func(engine *grammar.Engine, metrics *prometheus.Prometheus, count int) error {
		var reterr error
		legal := 0
		for i := 0; i < count; i++ {
			d, err := engine.Generate(nil)
			if err != nil {
				reterr = errwrap.Append(reterr, errwrap.Wrapf(err, "derivation %d", i))
				continue
			}
			if !d.IsLegal(engine.Grammar) {
				s, _ := d.Render()
				reterr = errwrap.Append(reterr, errwrap.Wrapf(cliUtil.IllegalDerivation, "derivation %d (%q)", i, s))
				continue
			}
			legal++
		}
		fmt.Fprintf(data.Stdout, "%d/%d derivations are legal\n", legal, count)
		return reterr
	}
}
