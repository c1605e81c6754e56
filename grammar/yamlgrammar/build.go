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
	"fmt"
	"sort"
	"strings"

	"github.com/purpleidea/agt/grammar/actions"
	"github.com/purpleidea/agt/grammar/ast"
	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/grammar/template"
	"github.com/purpleidea/agt/util"
	"github.com/purpleidea/agt/util/errwrap"

	"gopkg.in/yaml.v2"
)

// forms is the list of keys which each pick the variant of a node.
var forms = []string{
	"string",
	"empty",
	"concat",
	"named",
	"union",
	"optional",
	"list",
	"repeat",
	"exclude",
	"ref",
}

// modifiers are the keys which are allowed next to a form, per form. The
// common ones are allowed everywhere.
var modifiers = map[string][]string{
	"concat":  {"n"},
	"named":   {"n"},
	"repeat":  {"sep", "last_sep", "count", "rate", "min", "max"},
	"exclude": {"attempts", "policy"},
}

var common = []string{"key", "action", "order"}

// builder converts the decoded yaml of a rule into a template.
type builder struct {
	rules map[string]struct{} // canonical rule names
}

// entries returns the key value pairs of a yaml mapping.
func entries(v interface{}) (yaml.MapSlice, bool) {
	switch x := v.(type) {
	case yaml.MapSlice:
		return x, true
	case map[interface{}]interface{}:
		out := yaml.MapSlice{}
		for k, v := range x {
			out = append(out, yaml.MapItem{Key: k, Value: v})
		}
		sort.Slice(out, func(i, j int) bool {
			return fmt.Sprintf("%v", out[i].Key) < fmt.Sprintf("%v", out[j].Key)
		})
		return out, true
	}
	return nil, false
}

func (obj *builder) build(raw interface{}) (template.Template, error) {
	switch x := raw.(type) {
	case nil:
		return template.List(), nil // the empty leaf

	case string:
		return template.Str(x), nil

	case int, int64, float64, bool:
		return template.Str(fmt.Sprintf("%v", x)), nil

	case []interface{}:
		items, err := obj.all(x)
		if err != nil {
			return nil, err
		}
		return template.Seq(items...), nil
	}

	m, ok := entries(raw)
	if !ok {
		return nil, fmt.Errorf("unexpected node of type %T", raw)
	}
	fields := make(map[string]interface{})
	for _, item := range m {
		k, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("node key %v is a %T, not a string", item.Key, item.Key)
		}
		fields[k] = item.Value
	}

	form := ""
	for _, f := range forms {
		if _, exists := fields[f]; !exists {
			continue
		}
		if form != "" {
			return nil, fmt.Errorf("node has both `%s` and `%s`", form, f)
		}
		form = f
	}
	if form == "" {
		return nil, fmt.Errorf("node needs one of: %s", strings.Join(forms, ", "))
	}
	allowed := append([]string{form}, common...)
	allowed = append(allowed, modifiers[form]...)
	for k := range fields {
		if !util.StrInList(k, allowed) {
			return nil, fmt.Errorf("unexpected key `%s` in %s node", k, form)
		}
	}

	t, err := obj.form(form, fields)
	if err != nil {
		return nil, errwrap.Wrapf(err, "%s", form)
	}

	opts, err := obj.options(fields)
	if err != nil {
		return nil, err
	}
	if len(opts) > 0 {
		t = template.With(t, opts...)
	}
	return t, nil
}

func (obj *builder) all(raws []interface{}) ([]template.Template, error) {
	items := []template.Template{}
	for i, raw := range raws {
		t, err := obj.build(raw)
		if err != nil {
			return nil, errwrap.Wrapf(err, "item %d", i)
		}
		items = append(items, t)
	}
	return items, nil
}

// list builds a value which is either a list of nodes, or a single node.
func (obj *builder) list(v interface{}) ([]template.Template, error) {
	if raws, ok := v.([]interface{}); ok {
		return obj.all(raws)
	}
	t, err := obj.build(v)
	if err != nil {
		return nil, err
	}
	return []template.Template{t}, nil
}

func (obj *builder) form(form string, fields map[string]interface{}) (template.Template, error) {
	value := fields[form]
	switch form {
	case "string":
		s, ok := value.(string)
		if !ok {
			return template.Str(fmt.Sprintf("%v", value)), nil
		}
		return template.Str(s), nil

	case "empty":
		return template.List(), nil

	case "ref":
		name, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("reference is a %T, not a string", value)
		}
		name = Canonical(name)
		if _, exists := obj.rules[name]; !exists {
			return nil, fmt.Errorf("unknown rule `%s`", name)
		}
		return template.Ref(name), nil

	case "concat":
		items, err := obj.list(value)
		if err != nil {
			return nil, err
		}
		n, err := intField(fields, "n", 0)
		if err != nil {
			return nil, err
		}
		return template.SeqN(n, items...), nil

	case "named":
		m, ok := entries(value)
		if !ok {
			return nil, fmt.Errorf("named children must be a mapping")
		}
		named := []template.Entry{}
		for _, item := range m {
			key, ok := item.Key.(string)
			if !ok {
				return nil, fmt.Errorf("child name %v is a %T, not a string", item.Key, item.Key)
			}
			t, err := obj.build(item.Value)
			if err != nil {
				return nil, errwrap.Wrapf(err, "child `%s`", key)
			}
			named = append(named, template.Entry{Key: key, Template: t})
		}
		n, err := intField(fields, "n", 0)
		if err != nil {
			return nil, err
		}
		return template.MapN(n, named...), nil

	case "union":
		items, err := obj.list(value)
		if err != nil {
			return nil, err
		}
		return template.Set(items...), nil

	case "optional":
		t, err := obj.build(value)
		if err != nil {
			return nil, err
		}
		return template.Optional(t), nil

	case "list":
		items, err := obj.list(value)
		if err != nil {
			return nil, err
		}
		return template.List(items...), nil

	case "repeat":
		return obj.repeat(value, fields)

	case "exclude":
		return obj.exclude(value, fields)
	}

	return nil, fmt.Errorf("unknown form") // unreachable
}

func (obj *builder) repeat(value interface{}, fields map[string]interface{}) (template.Template, error) {
	item, err := obj.build(value)
	if err != nil {
		return nil, err
	}
	opts := template.RepeatOpts{Item: item}
	if v, exists := fields["sep"]; exists {
		if opts.Sep, err = obj.build(v); err != nil {
			return nil, errwrap.Wrapf(err, "sep")
		}
	}
	if v, exists := fields["last_sep"]; exists {
		if opts.LastSep, err = obj.build(v); err != nil {
			return nil, errwrap.Wrapf(err, "last_sep")
		}
	}
	if _, exists := fields["count"]; exists {
		count, err := intField(fields, "count", 0)
		if err != nil {
			return nil, err
		}
		opts.Count = &count
	}
	if opts.Rate, err = floatField(fields, "rate"); err != nil {
		return nil, err
	}
	if opts.Min, err = intField(fields, "min", 0); err != nil {
		return nil, err
	}
	if opts.Max, err = intField(fields, "max", 0); err != nil {
		return nil, err
	}
	return template.Repeat(opts), nil
}

func (obj *builder) exclude(value interface{}, fields map[string]interface{}) (template.Template, error) {
	m, ok := entries(value)
	if !ok {
		return nil, fmt.Errorf("exclude must be a mapping of lhs and rhs")
	}
	sides := make(map[string]template.Template)
	for _, item := range m {
		side, _ := item.Key.(string)
		if side != "lhs" && side != "rhs" {
			return nil, fmt.Errorf("unexpected key `%v`", item.Key)
		}
		t, err := obj.build(item.Value)
		if err != nil {
			return nil, errwrap.Wrapf(err, "%s", side)
		}
		sides[side] = t
	}
	if sides["lhs"] == nil || sides["rhs"] == nil {
		return nil, fmt.Errorf("both lhs and rhs are required")
	}

	attempts, err := intField(fields, "attempts", 0)
	if err != nil {
		return nil, err
	}
	policy := ast.PolicyFallback
	if v, exists := fields["policy"]; exists {
		switch v {
		case "fallback":
		case "strict":
			policy = ast.PolicyStrict
		default:
			return nil, fmt.Errorf("unknown policy `%v`", v)
		}
	}
	return template.Exclude(template.ExcludeOpts{
		Lhs:      sides["lhs"],
		Rhs:      sides["rhs"],
		Attempts: attempts,
		Policy:   policy,
	}), nil
}

// options builds the node options out of the common keys.
func (obj *builder) options(fields map[string]interface{}) ([]ast.Option, error) {
	opts := []ast.Option{}
	if v, exists := fields["key"]; exists {
		key, ok := v.(string)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key `%v`", v)
		}
		opts = append(opts, ast.WithKey(key))
	}
	if v, exists := fields["action"]; exists {
		action, err := buildAction(v)
		if err != nil {
			return nil, errwrap.Wrapf(err, "action")
		}
		opts = append(opts, ast.WithAction(action))
	}
	if v, exists := fields["order"]; exists {
		switch v {
		case "post":
			opts = append(opts, ast.WithTraversal(ast.PostOrder))
		case "pre":
			opts = append(opts, ast.WithTraversal(ast.PreOrder))
		default:
			return nil, fmt.Errorf("unknown order `%v`", v)
		}
	}
	return opts, nil
}

// buildAction looks up an action which is either given by name, or as a
// mapping with a name and some args.
func buildAction(v interface{}) (interfaces.Action, error) {
	if name, ok := v.(string); ok {
		return actions.Lookup(name, nil)
	}
	m, ok := entries(v)
	if !ok {
		return nil, fmt.Errorf("action must be a name or a mapping")
	}
	name := ""
	args := make(map[string]interface{})
	for _, item := range m {
		switch item.Key {
		case "name":
			if name, ok = item.Value.(string); !ok {
				return nil, fmt.Errorf("action name is a %T, not a string", item.Value)
			}
		case "args":
			a, ok := entries(item.Value)
			if !ok {
				return nil, fmt.Errorf("action args must be a mapping")
			}
			for _, arg := range a {
				k, ok := arg.Key.(string)
				if !ok {
					return nil, fmt.Errorf("action arg %v is a %T, not a string", arg.Key, arg.Key)
				}
				args[k] = arg.Value
			}
		default:
			return nil, fmt.Errorf("unexpected key `%v`", item.Key)
		}
	}
	if name == "" {
		return nil, fmt.Errorf("action has no name")
	}
	return actions.Lookup(name, args)
}

func intField(fields map[string]interface{}, key string, def int) (int, error) {
	v, exists := fields[key]
	if !exists {
		return def, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("`%s` is a %T, not an int", key, v)
	}
	return i, nil
}

func floatField(fields map[string]interface{}, key string) (float64, error) {
	v, exists := fields[key]
	if !exists {
		return 0, nil
	}
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, fmt.Errorf("`%s` is a %T, not a number", key, v)
}
