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
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/purpleidea/agt/grammar/ast"
	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

const mouse = `
grammar: mouse
start: Task
rules:
  DOWN:
    union: [down, press]
  up:
    union: [up, release]
  buttonVb:
    union: [click, {ref: DOWN}, {ref: up}]
  button_side:
    union: [left, right, middle]
    key: side
  button_action:
    union:
      - [{ref: button_vb}, " the ", {ref: button_side}, " button"]
      - [{optional: [{ref: button_side}, " "]}, {ref: button_vb}]
  task:
    repeat: {ref: button_action}
    sep: ", "
    last_sep: " and "
    count: 3
    key: task
    action:
      name: print
      args:
        msg: "${task}"
`

func TestParse0(t *testing.T) {
	type test struct { // an individual test
		name string
		code string
		fail bool
	}
	testCases := []test{}

	testCases = append(testCases, test{
		name: "mouse",
		code: mouse,
	})
	testCases = append(testCases, test{
		name: "no name",
		code: "start: a\nrules:\n  a: x\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "no start",
		code: "grammar: g\nrules:\n  a: x\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "missing start",
		code: "grammar: g\nstart: b\nrules:\n  a: x\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "unknown ref",
		code: "grammar: g\nstart: a\nrules:\n  a: {ref: b}\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "two forms",
		code: "grammar: g\nstart: a\nrules:\n  a: {union: [x, y], concat: [x]}\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "unknown key",
		code: "grammar: g\nstart: a\nrules:\n  a: {union: [x, y], sep: z}\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "unknown action",
		code: "grammar: g\nstart: a\nrules:\n  a: {string: x, action: nope}\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "duplicate rule",
		code: "grammar: g\nstart: a\nrules:\n  a: x\n  A: y\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "bad policy",
		code: "grammar: g\nstart: a\nrules:\n  a: {exclude: {lhs: x, rhs: y}, policy: maybe}\n",
		fail: true,
	})
	testCases = append(testCases, test{
		name: "invalid yaml",
		code: "grammar: [",
		fail: true,
	})

	names := []string{}
	for index, tc := range testCases { // run all the tests
		if tc.name == "" {
			t.Errorf("test #%d: not named", index)
			continue
		}
		if util.StrInList(tc.name, names) {
			t.Errorf("test #%d: duplicate sub test name of: %s", index, tc.name)
			continue
		}
		names = append(names, tc.name)

		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			_, err := Parse([]byte(tc.code))
			if !tc.fail && err != nil {
				t.Errorf("test #%d: parse failed with: %+v", index, err)
			}
			if tc.fail && err == nil {
				t.Errorf("test #%d: parse passed, expected fail", index)
			}
		})
	}
}

func TestRuleErrorsCollected(t *testing.T) {
	code := "grammar: g\nstart: a\nrules:\n  a: {ref: b}\n  c: {ref: d}\n"
	_, err := Parse([]byte(code))
	if err == nil {
		t.Fatalf("parse passed, expected fail")
	}
	for _, s := range []string{"`b`", "`d`"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("error should mention %s: %v", s, err)
		}
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/grammars/mouse.yaml", []byte(mouse), 0644); err != nil {
		t.Fatalf("write failed: %+v", err)
	}
	if _, err := Load(fs, "/grammars/missing.yaml"); err == nil {
		t.Errorf("loading a missing file should fail")
	}
	g, err := Load(fs, "/grammars/mouse.yaml")
	if err != nil {
		t.Fatalf("load failed: %+v", err)
	}
	if g.Name != "mouse" || g.Start != "task" {
		t.Errorf("unexpected grammar: %+v", g)
	}
	exp := []string{"down", "up", "button_vb", "button_side", "button_action", "task"}
	if diff := cmp.Diff(exp, g.Rules); diff != "" {
		t.Errorf("unexpected rules (-exp +got):\n%s", diff)
	}
	if _, err := g.Node("nope"); err == nil {
		t.Errorf("unknown rule should fail")
	}

	node, err := g.Node("")
	if err != nil {
		t.Fatalf("node failed: %+v", err)
	}
	data := &interfaces.Data{Rand: rand.New(rand.NewSource(1))}
	for i := 0; i < 50; i++ {
		x := node.Copy()
		if _, err := x.Generate(data, nil); err != nil {
			t.Fatalf("generate failed: %+v", err)
		}
		s, err := x.Render()
		if err != nil {
			t.Fatalf("render failed: %+v", err)
		}
		if strings.Count(s, ", ") != 1 || strings.Count(s, " and ") != 1 {
			t.Errorf("unexpected separators in %q", s)
		}
		if !ast.IsLegal(x, node) {
			t.Errorf("derivation %q is not legal", s)
		}

		buf := &bytes.Buffer{}
		if _, err := x.Execute(buf, nil, nil); err != nil {
			t.Fatalf("execute failed: %+v", err)
		}
		if diff := cmp.Diff(s+"\n", buf.String()); diff != "" {
			t.Errorf("unexpected output (-exp +got):\n%s", diff)
		}
	}
}

func TestExample(t *testing.T) {
	// the example grammars which ship with the project must load
	fs := afero.NewOsFs()
	for _, name := range []string{"mouse.yaml", "list.yaml"} {
		g, err := Load(fs, "../../examples/yaml/"+name)
		if err != nil {
			t.Errorf("loading %s failed: %+v", name, err)
			continue
		}
		for _, rule := range g.Rules {
			if _, err := g.Node(rule); err != nil {
				t.Errorf("rule %s of %s failed: %+v", rule, name, err)
			}
		}
	}
}

func TestExclude(t *testing.T) {
	g, err := Parse([]byte(`
grammar: fruit
start: plum
rules:
  item:
    union: [apple, pear, plum]
  plum:
    exclude:
      lhs: {ref: item}
      rhs: {union: [apple, pear]}
    attempts: 50
    policy: strict
`))
	if err != nil {
		t.Fatalf("parse failed: %+v", err)
	}
	node, err := g.Node("plum")
	if err != nil {
		t.Fatalf("node failed: %+v", err)
	}
	data := &interfaces.Data{Rand: rand.New(rand.NewSource(2))}
	for i := 0; i < 20; i++ {
		x := node.Copy()
		if _, err := x.Generate(data, nil); err != nil {
			t.Fatalf("generate failed: %+v", err)
		}
		if s, _ := x.Render(); s != "plum" {
			t.Errorf("unexpected render: %q", s)
		}
	}
}

func TestWatch(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "g.yaml")
	code := "grammar: g\nstart: a\nrules:\n  a: %s\n"
	if err := os.WriteFile(filename, []byte(fmt.Sprintf(code, "one")), 0644); err != nil {
		t.Fatalf("write failed: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := make(chan string)
	errch := make(chan error)
	go func() {
		defer close(errch)
		errch <- Watch(ctx, filename, func(g *Grammar, err error) {
			s := ""
			if err != nil {
				s = "error"
			} else if node, err := g.Node(""); err != nil {
				s = "error"
			} else if err := generate(node); err != nil {
				s = "error"
			} else {
				s, _ = node.Render()
			}
			select {
			case results <- s:
			case <-ctx.Done():
			}
		})
	}()

	next := func() string {
		select {
		case s := <-results:
			return s
		case <-time.After(10 * time.Second):
			t.Fatalf("timeout waiting for a reload")
		}
		return ""
	}

	if s := next(); s != "one" {
		t.Errorf("unexpected initial load: %s", s)
	}
	if err := os.WriteFile(filename, []byte(fmt.Sprintf(code, "two")), 0644); err != nil {
		t.Fatalf("write failed: %+v", err)
	}
	for { // one write can be seen as several events
		s := next()
		if s == "two" {
			break
		}
		if s != "one" && s != "error" {
			t.Fatalf("unexpected reload: %s", s)
		}
	}

	cancel()
	if err := <-errch; err != nil {
		t.Errorf("watch failed: %+v", err)
	}
}

// generate runs the generation of a grammar node in place.
func generate(node interfaces.Node) error {
	data := &interfaces.Data{Rand: rand.New(rand.NewSource(1))}
	_, err := node.Generate(data, nil)
	return err
}
