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

package ast

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util"

	"github.com/kylelemons/godebug/pretty"
)

func strs(values ...string) []interfaces.Node {
	nodes := []interfaces.Node{}
	for _, v := range values {
		nodes = append(nodes, NewString(v))
	}
	return nodes
}

func newData(seed int64) *interfaces.Data {
	return &interfaces.Data{
		Rand: rand.New(rand.NewSource(seed)),
	}
}

func generate(t *testing.T, data *interfaces.Data, g interfaces.Node) interfaces.Node {
	t.Helper()
	x := g.Copy()
	if _, err := x.Generate(data, nil); err != nil {
		t.Fatalf("generate failed: %+v", err)
	}
	return x
}

func TestRender0(t *testing.T) {
	type test struct { // an individual test
		name string
		node interfaces.Node
		fail bool
		out  string
	}
	testCases := []test{}

	testCases = append(testCases, test{
		name: "string",
		node: NewString("down"),
		out:  "down",
	})
	testCases = append(testCases, test{
		name: "empty",
		node: NewEmpty(),
		out:  "",
	})
	testCases = append(testCases, test{
		name: "concat",
		node: NewConcat(strs("a", "b", "c")),
		out:  "abc",
	})
	testCases = append(testCases, test{
		name: "empty concat",
		node: NewConcat(nil),
		out:  "",
	})
	{
		count := 2
		r := NewRepeat(NewString("X"), NewString(", "), NewString(" and "))
		r.Count = &count
		testCases = append(testCases, test{
			name: "repeat with last separator",
			node: r,
			out:  "X and X",
		})
	}
	{
		count := 4
		r := NewRepeat(NewString("X"), NewString(", "), NewString(" and "))
		r.Count = &count
		testCases = append(testCases, test{
			name: "repeat four",
			node: r,
			out:  "X, X, X and X",
		})
	}
	{
		count := 3
		r := NewRepeat(NewString("X"), NewString("-"), nil)
		r.Count = &count
		testCases = append(testCases, test{
			name: "repeat without last separator",
			node: r,
			out:  "X-X-X",
		})
	}
	{
		count := 1
		r := NewRepeat(NewString("X"), NewString(", "), NewString(" and "))
		r.Count = &count
		testCases = append(testCases, test{
			name: "repeat once",
			node: r,
			out:  "X",
		})
	}
	{
		count := 0
		r := NewRepeat(NewString("X"), NewString(", "), nil)
		r.Count = &count
		testCases = append(testCases, test{
			name: "repeat zero",
			node: r,
			out:  "",
		})
	}
	testCases = append(testCases, test{
		name: "nested",
		node: NewConcat([]interfaces.Node{
			NewString("press "),
			NewConcat(strs("the ", "left")),
		}),
		out: "press the left",
	})
	testCases = append(testCases, test{
		name: "union of one",
		node: NewUnion(strs("down")),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "oversampled",
		node: NewConcatN(3, strs("a", "b", "c")),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "sampled zero",
		node: NewConcatN(-1, strs("a", "b", "c")),
		fail: true,
	})
	{
		r := NewRepeat(NewString("X"), nil, nil)
		r.Min = 5
		r.Max = 2
		testCases = append(testCases, test{
			name: "inverted bounds",
			node: r,
			fail: true,
		})
	}

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
			name, node, fail, out := tc.name, tc.node, tc.fail, tc.out

			x := node.Copy()
			_, err := x.Generate(newData(42), nil)
			if !fail && err != nil {
				t.Errorf("test #%d: generate failed with: %+v", index, err)
				return
			}
			if fail && err == nil {
				t.Errorf("test #%d: generate passed, expected fail", index)
				return
			}
			if fail {
				return
			}

			s, err := x.Render()
			if err != nil {
				t.Errorf("test #%d: render failed with: %+v", index, err)
				return
			}
			if s != out {
				t.Errorf("test #%d: render of %s did not match", index, name)
				t.Logf("test #%d:   got: %q", index, s)
				t.Logf("test #%d:   exp: %q", index, out)
			}
		})
	}
}

func TestSampledConcat(t *testing.T) {
	pool := strs("a", "b", "c", "d", "e")
	data := newData(7)
	for i := 0; i < 200; i++ {
		x := generate(t, data, NewConcatN(3, pool)).(*ConcatNode)
		if l := len(x.Children()); l != 3 {
			t.Fatalf("got %d children, expected 3", l)
		}
		indexes := x.Indexes()
		for j := 1; j < len(indexes); j++ {
			if indexes[j] <= indexes[j-1] {
				t.Fatalf("indexes are not increasing: %v", indexes)
			}
		}
		for j, child := range x.Children() {
			if child.(*StringNode).Value != pool[indexes[j]].(*StringNode).Value {
				t.Fatalf("child %d doesn't come from pool index %d", j, indexes[j])
			}
		}
	}
}

func TestSamplingError(t *testing.T) {
	x := NewConcatN(5, strs("a", "b"))
	_, err := x.Generate(newData(1), nil)
	if !errors.Is(err, interfaces.ErrSampling) {
		t.Fatalf("expected a sampling error, got: %v", err)
	}
	nodeErr := &interfaces.NodeError{}
	if !errors.As(err, &nodeErr) {
		t.Fatalf("expected a node error, got: %T", err)
	}
	if nodeErr.Kind != interfaces.KindConcat || nodeErr.Count != 5 {
		t.Errorf("unexpected node error: %+v", nodeErr)
	}
}

func TestUnionChoices(t *testing.T) {
	g := NewUnion(strs("down", "press"))
	data := newData(3)
	seen := map[string]int{}
	for i := 0; i < 500; i++ {
		x := generate(t, data, g)
		s, err := x.Render()
		if err != nil {
			t.Fatalf("render failed: %+v", err)
		}
		if s != "down" && s != "press" {
			t.Fatalf("unexpected render: %q", s)
		}
		seen[s]++
	}
	if seen["down"] == 0 || seen["press"] == 0 {
		t.Errorf("both choices should appear: %v", seen)
	}
}

func TestOptionalChoices(t *testing.T) {
	g := NewOptional(NewString("x"))
	data := newData(11)
	seen := map[string]int{}
	for i := 0; i < 1000; i++ {
		x := generate(t, data, g)
		s, err := x.Render()
		if err != nil {
			t.Fatalf("render failed: %+v", err)
		}
		seen[s]++
	}
	if len(seen) != 2 || seen[""] == 0 || seen["x"] == 0 {
		t.Errorf("expected both outcomes: %v", seen)
	}
}

func TestRepeatBounds(t *testing.T) {
	g := NewRepeat(NewString("x"), nil, nil)
	g.Min = 2
	g.Max = 4
	g.Rate = 0.1
	data := newData(5)
	for i := 0; i < 300; i++ {
		x := generate(t, data, g).(*RepeatNode)
		n := x.Repetitions()
		if n < 2 || n > 4 {
			t.Fatalf("count %d out of bounds", n)
		}
		s, _ := x.Render()
		if s != strings.Repeat("x", n) {
			t.Fatalf("unexpected render %q for count %d", s, n)
		}
	}
}

func TestNotGenerated(t *testing.T) {
	x := NewConcat(strs("a"))
	if _, err := x.Render(); !errors.Is(err, interfaces.ErrNotGenerated) {
		t.Errorf("expected not generated error on render, got: %v", err)
	}
	if _, err := x.Execute(nil, nil, nil); !errors.Is(err, interfaces.ErrNotGenerated) {
		t.Errorf("expected not generated error on execute, got: %v", err)
	}
}

func TestGrammarUntouched(t *testing.T) {
	g := NewConcat([]interfaces.Node{
		NewUnion(strs("a", "b")),
		NewOptional(NewString("c")),
	})
	before := g.String()
	data := newData(9)
	for i := 0; i < 20; i++ {
		generate(t, data, g)
	}
	if g.Generated() {
		t.Errorf("grammar was generated")
	}
	for _, x := range g.Pool {
		if x.Generated() {
			t.Errorf("grammar child %s was generated", x)
		}
	}
	if diff := pretty.Compare(before, g.String()); diff != "" {
		t.Errorf("grammar changed: %s", diff)
	}
}

func TestScopePublish(t *testing.T) {
	a := NewString("a", WithKey("first"))
	b := NewString("b", WithKey("second"))
	g := NewConcat([]interfaces.Node{a, b}, WithKey("top"))

	x := g.Copy()
	updates, err := x.Generate(newData(1), nil)
	if err != nil {
		t.Fatalf("generate failed: %+v", err)
	}
	if diff := pretty.Compare(interfaces.Scope(updates).Keys(), []string{"first", "second", "top"}); diff != "" {
		t.Errorf("unexpected update keys: %s", diff)
	}
	if updates["top"] != x {
		t.Errorf("node should publish itself")
	}

	// the second child saw the first one
	second := x.Children()[1]
	if _, exists := second.Scope().Get("first"); !exists {
		t.Errorf("second child should see the first")
	}
	first := x.Children()[0]
	if _, exists := first.Scope().Get("second"); exists {
		t.Errorf("first child should not see the second")
	}
	if first.Scope()["first"] != first {
		t.Errorf("snapshot should contain the node itself")
	}
}

func TestExecuteOrder(t *testing.T) {
	order := []string{}
	record := func(name string) interfaces.Action {
		return func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
			order = append(order, name)
			return interfaces.Scope{"last": name}, nil
		}
	}
	seen := []interface{}{}
	g := NewConcat([]interfaces.Node{
		NewString("A", WithAction(record("A"))),
		NewString("B", WithAction(record("B"))),
		NewString("C", WithAction(func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
			seen = append(seen, scope["last"])
			order = append(order, "C")
			return nil, nil
		})),
	}, WithAction(record("root")))

	x := generate(t, newData(1), g)
	updates, err := x.Execute(nil, nil, nil)
	if err != nil {
		t.Fatalf("execute failed: %+v", err)
	}
	if diff := pretty.Compare(order, []string{"A", "B", "C", "root"}); diff != "" {
		t.Errorf("unexpected order: %s", diff)
	}
	if diff := pretty.Compare(seen, []interface{}{"B"}); diff != "" {
		t.Errorf("C should see the update of B: %s", diff)
	}
	if updates["last"] != "root" {
		t.Errorf("unexpected updates: %v", updates)
	}

	// snapshots are never changed by execution
	if _, exists := x.Children()[2].Scope()["last"]; exists {
		t.Errorf("snapshot was mutated")
	}
}

func TestExecutePreOrder(t *testing.T) {
	order := []string{}
	record := func(name string) interfaces.Action {
		return func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
			order = append(order, name)
			return nil, nil
		}
	}
	g := NewConcat([]interfaces.Node{
		NewString("A", WithAction(record("A"))),
		NewEmpty(WithAction(record("B"))),
	}, WithAction(record("root")), WithTraversal(PreOrder))

	x := generate(t, newData(1), g)
	if _, err := x.Execute(nil, interfaces.Scope{}, interfaces.Context{}); err != nil {
		t.Fatalf("execute failed: %+v", err)
	}
	if diff := pretty.Compare(order, []string{"root", "A", "B"}); diff != "" {
		t.Errorf("unexpected order: %s", diff)
	}
}

func TestExecuteError(t *testing.T) {
	boom := fmt.Errorf("boom")
	g := NewConcat([]interfaces.Node{
		NewString("A", WithAction(func(interfaces.Env, interfaces.Scope, interfaces.Context) (interfaces.Scope, error) {
			return nil, boom
		})),
	})
	x := generate(t, newData(1), g)
	if _, err := x.Execute(nil, nil, nil); err != boom {
		t.Errorf("expected the action error unchanged, got: %v", err)
	}
}

func TestExcludePolicy(t *testing.T) {
	// every lhs matches the rhs
	lhs := NewUnion(strs("a", "a"))
	rhs := NewUnion(strs("a", "a"))

	{
		g := NewExclude(lhs, rhs)
		g.Attempts = 5
		x := generate(t, newData(1), g).(*ExcludeNode)
		if x.Excluded() {
			t.Errorf("fallback should not be excluded")
		}
		if x.Tries() != 5 {
			t.Errorf("expected 5 tries, got %d", x.Tries())
		}
	}
	{
		g := NewExclude(lhs, rhs)
		g.Attempts = 5
		g.Policy = PolicyStrict
		_, err := g.Copy().Generate(newData(1), nil)
		if !errors.Is(err, interfaces.ErrNonTerminatingGrammar) {
			t.Errorf("expected non-terminating error, got: %v", err)
		}
	}
	{
		g := NewExclude(lhs, rhs)
		data := newData(1)
		data.ExcludeLimit = 10
		_, err := g.Copy().Generate(data, nil)
		nt := &interfaces.NonTerminatingError{}
		if !errors.As(err, &nt) || nt.Attempts != 10 {
			t.Errorf("expected non-terminating error after 10 attempts, got: %v", err)
		}
	}
}

func TestExclude(t *testing.T) {
	g := NewExclude(NewUnion(strs("a", "b", "c")), NewUnion(strs("a", "b")))
	data := newData(2)
	for i := 0; i < 100; i++ {
		x := generate(t, data, g)
		s, _ := x.Render()
		if s == "a" || s == "b" {
			t.Fatalf("unexpected render: %q", s)
		}
	}
}

func TestExcludeContext(t *testing.T) {
	// the rhs depends on the context that the generation runs with
	rhs := NewLazy("who", func(ctx interfaces.Context) (interfaces.Node, error) {
		return NewUnion(strs(fmt.Sprintf("%v", ctx["who"]), "dog")), nil
	})
	g := NewExclude(NewUnion(strs("mouse", "cat")), rhs)

	data := newData(3)
	data.Context = interfaces.Context{"who": "mouse"}
	renders := make(map[string]int)
	for i := 0; i < 200; i++ {
		x := generate(t, data, g)
		s, err := x.Render()
		if err != nil {
			t.Fatalf("render failed: %+v", err)
		}
		renders[s]++
		if !x.(*ExcludeNode).Excluded() {
			t.Fatalf("lhs should always be excluded")
		}
	}
	if diff := pretty.Compare(map[string]int{"cat": 200}, renders); diff != "" {
		t.Errorf("unexpected renders (-exp +got):\n%s", diff)
	}
}

func TestLazyContextCopy(t *testing.T) {
	ctx := interfaces.Context{"who": "mouse"}
	x := NewLazy("ctx", func(ctx interfaces.Context) (interfaces.Node, error) {
		who := fmt.Sprintf("%v", ctx["who"])
		ctx["who"] = "changed"
		return NewString(who), nil
	})
	data := newData(1)
	data.Context = ctx
	if _, err := x.Generate(data, nil); err != nil {
		t.Fatalf("generate failed: %+v", err)
	}
	if ctx["who"] != "mouse" {
		t.Errorf("resolver changed the caller context: %v", ctx)
	}
	ctx["who"] = "cat" // after generation
	if !IsLegal(x, x.Copy()) {
		t.Errorf("derivation should stay legal")
	}
	if s, _ := x.Render(); s != "mouse" {
		t.Errorf("unexpected render: %q", s)
	}
}

func TestCallerScope(t *testing.T) {
	views := []interfaces.Scope{}
	g := NewConcat([]interfaces.Node{
		NewString("a", WithKey("a")),
		NewString("b", WithKey("b"), WithAction(func(env interfaces.Env, scope interfaces.Scope, ctx interfaces.Context) (interfaces.Scope, error) {
			views = append(views, scope.Copy())
			return nil, nil
		})),
	}, WithKey("top"))

	scope := interfaces.Scope{"user": "alice"}
	x := g.Copy()
	if _, err := x.Generate(newData(1), scope); err != nil {
		t.Fatalf("generate failed: %+v", err)
	}
	before, err := x.Render()
	if err != nil {
		t.Fatalf("render failed: %+v", err)
	}

	// the caller keeps using its scope after the generation
	scope["user"] = "bob"
	scope["extra"] = "value"
	delete(scope, "a")

	b := x.Children()[1]
	exp := []string{"a", "b", "user"}
	if diff := pretty.Compare(exp, b.Scope().Keys()); diff != "" {
		t.Errorf("unexpected snapshot keys (-exp +got):\n%s", diff)
	}
	if b.Scope()["user"] != "alice" {
		t.Errorf("snapshot changed with the caller scope: %v", b.Scope()["user"])
	}
	if _, err := x.Execute(nil, nil, nil); err != nil {
		t.Fatalf("execute failed: %+v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one action call, got: %d", len(views))
	}
	if views[0]["user"] != "alice" {
		t.Errorf("action saw the caller change: %v", views[0]["user"])
	}
	if _, exists := views[0]["extra"]; exists {
		t.Errorf("action saw a key added after generation")
	}
	if _, exists := views[0]["a"]; !exists {
		t.Errorf("action lost a key removed after generation")
	}
	if after, _ := x.Render(); after != before {
		t.Errorf("render changed from %q to %q", before, after)
	}
}

func TestLazyRecursion(t *testing.T) {
	var list interfaces.Node
	resolve := func(interfaces.Context) (interfaces.Node, error) { return list, nil }
	list = NewUnion([]interfaces.Node{
		NewString("x"),
		NewConcat([]interfaces.Node{NewString("x"), NewLazy("list", resolve)}),
		NewString("y"),
	})

	data := newData(8)
	for i := 0; i < 50; i++ {
		x := NewLazy("list", resolve)
		if _, err := x.Generate(data, nil); err != nil {
			if errors.Is(err, interfaces.ErrDepthExceeded) {
				continue // unlucky but legal
			}
			t.Fatalf("generate failed: %+v", err)
		}
		if !IsLegal(x, list) {
			t.Fatalf("derivation %s is not legal", x)
		}
		if data.Depth() != 0 {
			t.Fatalf("depth leaked: %d", data.Depth())
		}
	}
}

func TestLazyDepth(t *testing.T) {
	var loop interfaces.Node
	resolve := func(interfaces.Context) (interfaces.Node, error) { return loop, nil }
	loop = NewConcat([]interfaces.Node{NewString("x"), NewLazy("loop", resolve)})

	data := newData(1)
	data.MaxDepth = 8
	_, err := NewLazy("loop", resolve).Generate(data, nil)
	if !errors.Is(err, interfaces.ErrDepthExceeded) {
		t.Errorf("expected depth error, got: %v", err)
	}
	if !errors.Is(err, interfaces.ErrNonTerminatingGrammar) {
		t.Errorf("depth error should also be non-terminating, got: %v", err)
	}
}

func TestLazyError(t *testing.T) {
	cause := fmt.Errorf("missing")
	x := NewLazy("nope", func(interfaces.Context) (interfaces.Node, error) { return nil, cause })
	_, err := x.Generate(newData(1), nil)
	if !errors.Is(err, interfaces.ErrUnresolvedLazyReference) {
		t.Errorf("expected unresolved error, got: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected the cause to be kept, got: %v", err)
	}
}

func TestLazyContext(t *testing.T) {
	x := NewLazy("ctx", func(ctx interfaces.Context) (interfaces.Node, error) {
		return NewString(fmt.Sprintf("%v", ctx["who"])), nil
	})
	x.Key = "who"
	data := newData(1)
	data.Context = interfaces.Context{"who": "mouse"}
	updates, err := x.Generate(data, nil)
	if err != nil {
		t.Fatalf("generate failed: %+v", err)
	}
	s, _ := x.Render()
	if s != "mouse" {
		t.Errorf("unexpected render: %q", s)
	}
	if _, exists := updates["who"]; !exists {
		t.Errorf("key should be applied to the target")
	}
}

func TestApply(t *testing.T) {
	x := generate(t, newData(1), NewConcat([]interfaces.Node{
		NewString("a"),
		NewConcat(strs("b", "c")),
	}))
	kinds := []string{}
	err := x.Apply(func(n interfaces.Node) error {
		kinds = append(kinds, n.Kind().String())
		return nil
	})
	if err != nil {
		t.Fatalf("apply failed: %+v", err)
	}
	exp := []string{"String", "String", "String", "Concat", "Concat"}
	if diff := pretty.Compare(kinds, exp); diff != "" {
		t.Errorf("unexpected order: %s", diff)
	}
}

func TestString(t *testing.T) {
	count := 2
	r := NewRepeat(NewString("x"), NewString(","), nil)
	r.Count = &count
	g := NewConcatN(1, []interfaces.Node{
		NewUnion(strs("a", "b")),
		NewOptional(NewEmpty()),
		r,
		NewExclude(NewString("c"), NewString("d")),
		NewLazy("ref", nil),
	})
	exp := `concat[1](union(str("a") | str("b")), optional(empty), repeat(str("x"), str(","), nil), exclude(str("c"), str("d")), lazy(ref))`
	if s := g.String(); s != exp {
		t.Errorf("unexpected string:\ngot: %s\nexp: %s", s, exp)
	}
}
