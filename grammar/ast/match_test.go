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
	"fmt"
	"testing"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util"
)

func TestIsLegal0(t *testing.T) {
	type test struct { // an individual test
		name  string
		x     interfaces.Node
		g     interfaces.Node
		legal bool
	}
	testCases := []test{}

	testCases = append(testCases, test{
		name:  "same string",
		x:     NewString("a"),
		g:     NewString("a"),
		legal: true,
	})
	testCases = append(testCases, test{
		name:  "different string",
		x:     NewString("a"),
		g:     NewString("b"),
		legal: false,
	})
	testCases = append(testCases, test{
		name:  "string vs empty",
		x:     NewString(""),
		g:     NewEmpty(),
		legal: false,
	})
	testCases = append(testCases, test{
		name:  "empty",
		x:     NewEmpty(),
		g:     NewEmpty(),
		legal: true,
	})
	testCases = append(testCases, test{
		name:  "nil",
		x:     nil,
		g:     nil,
		legal: true,
	})
	testCases = append(testCases, test{
		name:  "nil vs string",
		x:     nil,
		g:     NewString("a"),
		legal: false,
	})
	testCases = append(testCases, test{
		name:  "concat vs union",
		x:     NewConcat(strs("a", "b")),
		g:     NewUnion(strs("a", "b")),
		legal: false,
	})
	testCases = append(testCases, test{
		name:  "concat pools",
		x:     NewConcat(strs("a", "b")),
		g:     NewConcat(strs("a", "b")),
		legal: true,
	})
	testCases = append(testCases, test{
		name:  "concat sizes",
		x:     NewConcatN(1, strs("a", "b")),
		g:     NewConcat(strs("a", "b")),
		legal: false,
	})
	testCases = append(testCases, test{
		name:  "union pools",
		x:     NewUnion(strs("a", "b")),
		g:     NewUnion(strs("a", "c")),
		legal: false,
	})
	testCases = append(testCases, test{
		name:  "optional items",
		x:     NewOptional(NewString("a")),
		g:     NewOptional(NewString("a")),
		legal: true,
	})
	testCases = append(testCases, test{
		name:  "repeat separators",
		x:     NewRepeat(NewString("a"), NewString(","), nil),
		g:     NewRepeat(NewString("a"), nil, nil),
		legal: false,
	})
	testCases = append(testCases, test{
		name:  "exclude sides",
		x:     NewExclude(NewString("a"), NewString("b")),
		g:     NewExclude(NewString("a"), NewString("b")),
		legal: true,
	})
	testCases = append(testCases, test{
		name:  "lazy names",
		x:     NewLazy("a", nil),
		g:     NewLazy("a", nil),
		legal: true,
	})
	testCases = append(testCases, test{
		name:  "lazy other names",
		x:     NewLazy("a", nil),
		g:     NewLazy("b", nil),
		legal: false,
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
			if legal := IsLegal(tc.x, tc.g); legal != tc.legal {
				t.Errorf("test #%d: expected legal to be %t for %v and %v", index, tc.legal, tc.x, tc.g)
			}
		})
	}
}

// grammars returns a set of grammars which should each accept all of their
// own derivations.
func grammars() map[string]interfaces.Node {
	count := 3
	fixed := NewRepeat(NewUnion(strs("x", "y")), NewString(", "), NewString(" and "))
	fixed.Count = &count

	down := NewUnion(strs("down", "press"))
	up := NewUnion(strs("up", "release"))
	side := NewUnion(strs("left", "right", "middle"))
	verb := NewUnion([]interfaces.Node{NewString("click"), down, up})

	return map[string]interfaces.Node{
		"concat":   NewConcat(strs("a", "b", "c")),
		"sampled":  NewConcatN(2, strs("a", "b", "c", "d")),
		"repeated": NewConcatN(2, strs("a", "a", "b")),
		"union":    NewUnion(strs("a", "b", "c")),
		"optional": NewOptional(NewUnion(strs("a", "b"))),
		"repeat":   NewRepeat(NewString("x"), NewString(","), nil),
		"fixed":    fixed,
		"exclude":  NewExclude(NewUnion(strs("a", "b", "c")), NewString("a")),
		"button": NewUnion([]interfaces.Node{
			NewConcat([]interfaces.Node{verb, NewString(" the "), side, NewString(" button")}),
			NewConcat([]interfaces.Node{NewOptional(side), verb}),
		}),
	}
}

func TestSelfLegal(t *testing.T) {
	data := newData(13)
	for name, g := range grammars() {
		if !IsLegal(g, g) {
			t.Errorf("grammar %s is not legal against itself", name)
		}
		for i := 0; i < 100; i++ {
			x := generate(t, data, g)
			if !IsLegal(x, g) {
				s, _ := x.Render()
				t.Errorf("derivation %q of %s is not legal", s, name)
				break
			}
		}
	}
}

func TestForeignDerivation(t *testing.T) {
	data := newData(17)
	a := NewUnion(strs("a", "b"))
	b := NewUnion(strs("c", "d"))
	for i := 0; i < 20; i++ {
		x := generate(t, data, a)
		if IsLegal(x, b) {
			t.Errorf("derivation %s should not be legal in %s", x, b)
		}
	}
}

func TestSampledMatch(t *testing.T) {
	g := NewConcatN(2, strs("a", "b", "c"))

	// a generated concat of [c, a] is not order preserving
	x := NewConcat(strs("c", "a"))
	if _, err := x.Generate(newData(1), nil); err != nil {
		t.Fatalf("generate failed: %+v", err)
	}
	if IsLegal(x, g) {
		t.Errorf("out of order children should not be legal")
	}

	y := NewConcat(strs("a", "c"))
	if _, err := y.Generate(newData(1), nil); err != nil {
		t.Fatalf("generate failed: %+v", err)
	}
	if !IsLegal(y, g) {
		t.Errorf("order preserving children should be legal")
	}
}
