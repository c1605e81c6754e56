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

// Package hil interpolates action arguments with the hashicorp hil syntax. A
// variable such as ${mouse} reads the scope, and ${ctx.user} reads the keyword
// context.
package hil

import (
	"fmt"
	"strings"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/util/errwrap"

	"github.com/hashicorp/hil"
	"github.com/hashicorp/hil/ast"
)

const (
	// ScopePrefix is the optional prefix of scope variables.
	ScopePrefix = "scope."

	// ContextPrefix is the prefix of keyword context variables.
	ContextPrefix = "ctx."
)

// Variable defines an interpolated variable.
type Variable interface {
	// Key returns the name used in the template.
	Key() string

	// Lookup finds the value of this variable.
	Lookup(scope interfaces.Scope, ctx interfaces.Context) (interface{}, bool)
}

// ScopeVariable reads a value out of the scope, eg: ${mouse} or
// ${scope.mouse}.
type ScopeVariable struct {
	Raw  string
	Name string
}

// Key returns the name used in the template.
func (obj *ScopeVariable) Key() string { return obj.Raw }

// Lookup finds the value in the scope.
func (obj *ScopeVariable) Lookup(scope interfaces.Scope, ctx interfaces.Context) (interface{}, bool) {
	return scope.Get(obj.Name)
}

// ContextVariable reads a value out of the keyword context, eg: ${ctx.user}.
type ContextVariable struct {
	Name string
}

// Key returns the name used in the template.
func (obj *ContextVariable) Key() string { return ContextPrefix + obj.Name }

// Lookup finds the value in the context.
func (obj *ContextVariable) Lookup(scope interfaces.Scope, ctx interfaces.Context) (interface{}, bool) {
	v, exists := ctx[obj.Name]
	return v, exists
}

// NewInterpolatedVariable takes a variable key and returns the interpolated
// variable of the required type.
func NewInterpolatedVariable(k string) (Variable, error) {
	if name := strings.TrimPrefix(k, ContextPrefix); name != k {
		if name == "" {
			return nil, fmt.Errorf("empty context variable")
		}
		return &ContextVariable{Name: name}, nil
	}
	name := strings.TrimPrefix(k, ScopePrefix)
	if name == "" {
		return nil, fmt.Errorf("empty scope variable")
	}
	return &ScopeVariable{Raw: k, Name: name}, nil
}

// ParseVariables will traverse a HIL tree looking for variables and returns a
// list of them.
func ParseVariables(tree ast.Node) ([]Variable, error) {
	var result []Variable
	var finalErr error

	visitor := func(n ast.Node) ast.Node {
		if finalErr != nil {
			return n
		}
		nt, ok := n.(*ast.VariableAccess)
		if !ok {
			return n
		}
		v, err := NewInterpolatedVariable(nt.Name)
		if err != nil {
			finalErr = err
			return n
		}
		result = append(result, v)
		return n
	}

	tree.Accept(visitor)

	if finalErr != nil {
		return nil, finalErr
	}

	return result, nil
}

// Interpolate evaluates the template against the scope and context. Nodes are
// replaced by their render.
func Interpolate(str string, scope interfaces.Scope, ctx interfaces.Context) (string, error) {
	tree, err := hil.Parse(str) // should not error on plain strings
	if err != nil {
		return "", errwrap.Wrapf(err, "can't parse string interpolation: `%s`", str)
	}
	variables, err := ParseVariables(tree)
	if err != nil {
		return "", errwrap.Wrapf(err, "can't parse variables: `%s`", str)
	}

	varMap := make(map[string]ast.Variable)
	for _, v := range variables {
		value, exists := v.Lookup(scope, ctx)
		if !exists {
			return "", fmt.Errorf("variable `%s` was not found", v.Key())
		}
		variable, err := toVariable(value)
		if err != nil {
			return "", errwrap.Wrapf(err, "variable `%s`", v.Key())
		}
		varMap[v.Key()] = variable
	}

	config := &hil.EvalConfig{
		GlobalScope: &ast.BasicScope{
			VarMap: varMap,
		},
	}
	result, err := hil.Eval(tree, config)
	if err != nil {
		return "", errwrap.Wrapf(err, "can't evaluate: `%s`", str)
	}
	if s, ok := result.Value.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", result.Value), nil
}

// toVariable converts a scope or context value into a hil variable.
func toVariable(value interface{}) (ast.Variable, error) {
	switch x := value.(type) {
	case interfaces.Node:
		s, err := x.Render()
		if err != nil {
			return ast.Variable{}, err
		}
		return ast.Variable{Type: ast.TypeString, Value: s}, nil
	case fmt.Stringer:
		return ast.Variable{Type: ast.TypeString, Value: x.String()}, nil
	}
	if variable, err := hil.InterfaceToVariable(value); err == nil {
		return variable, nil
	}
	return ast.Variable{Type: ast.TypeString, Value: fmt.Sprintf("%v", value)}, nil
}
