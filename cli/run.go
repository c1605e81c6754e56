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
	"context"
	"os"
	"os/signal"
	"syscall"

	cliUtil "github.com/purpleidea/agt/cli/util"
	"github.com/purpleidea/agt/grammar"
	"github.com/purpleidea/agt/grammar/yamlgrammar"
	"github.com/purpleidea/agt/prometheus"
	"github.com/purpleidea/agt/util/errwrap"

	"github.com/sanity-io/litter"
	"github.com/spf13/afero"
)

// command is the body of a subcommand. It runs once per loaded grammar.
type command func(engine *grammar.Engine, metrics *prometheus.Prometheus, count int) error

// run loads the grammar file, builds an engine for the chosen rule and runs
// the command with it. In watch mode, this happens again after each change to
// the file, until we get interrupted.
func (obj *Args) run(ctx context.Context, data *cliUtil.Data, name string, args *cliUtil.GrammarArgs, fn command) (bool, error) {
	debug := data.Flags.Debug || obj.Debug
	Logf := func(format string, v ...interface{}) {
		data.Flags.Logf("cli: "+format, v...)
	}
	if debug {
		cliUtil.Hello(os.Stderr, data.Program, data.Version, data.Flags) // say hello!
		Logf("%s: args: %s", name, litter.Sdump(args))
	}

	if args.Count < 0 {
		return false, cliUtil.CliParseError(errwrap.Wrapf(cliUtil.Error("negative count"), "%s", name))
	}
	kwargs, err := cliUtil.ParseContext(args.Context)
	if err != nil {
		return false, err
	}
	if debug && len(kwargs) > 0 {
		Logf("%s: context keys: %v", name, cliUtil.ContextKeys(kwargs))
	}

	var metrics *prometheus.Prometheus
	if obj.PrometheusListen != "" {
		metrics = &prometheus.Prometheus{
			Listen: obj.PrometheusListen,
			Logf:   Logf,
		}
		if err := metrics.Init(); err != nil {
			return false, errwrap.Wrapf(err, "can't init prometheus")
		}
		if err := metrics.Start(); err != nil {
			return false, errwrap.Wrapf(err, "can't start prometheus")
		}
		defer func() {
			if err := metrics.Stop(); err != nil {
				Logf("prometheus: stop failed: %+v", err)
			}
		}()
	}

	once := func(g *yamlgrammar.Grammar) error {
		node, err := g.Node(args.Rule)
		if err != nil {
			return err
		}
		engine := &grammar.Engine{
			Grammar:      node,
			Seed:         obj.Seed,
			Context:      kwargs,
			MaxDepth:     args.MaxDepth,
			ExcludeLimit: args.ExcludeLimit,
			Debug:        debug,
			Logf:         Logf,
		}
		if metrics != nil {
			engine.Metrics = metrics
		}
		if err := engine.Init(); err != nil {
			return err
		}
		Logf("%s: grammar %s from rule %s with seed %d", name, g.Name, node, engine.Seed)
		return fn(engine, metrics, args.Count)
	}

	if !args.Watch {
		g, err := yamlgrammar.Load(afero.NewOsFs(), args.Input)
		if err != nil {
			return false, err
		}
		if err := once(g); err != nil {
			return false, errwrap.Wrapf(err, "%s failed", name)
		}
		return true, nil
	}

	// install the exit signal handler
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	Logf("%s: watching %s", name, args.Input)
	err = yamlgrammar.Watch(ctx, args.Input, func(g *yamlgrammar.Grammar, err error) {
		if err != nil {
			for _, e := range errwrap.Errors(err) {
				Logf("%s: load failed: %+v", name, e)
			}
			return
		}
		if err := once(g); err != nil {
			Logf("%s: failed: %+v", name, err)
		}
	})
	if err != nil {
		return false, err
	}
	Logf("%s: goodbye!", name)
	return true, nil
}
