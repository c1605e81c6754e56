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

// Package yamlgrammar provides the facilities for loading a grammar from a
// yaml file.
package yamlgrammar

import (
	"fmt"

	"github.com/purpleidea/agt/grammar/interfaces"
	"github.com/purpleidea/agt/grammar/template"
	"github.com/purpleidea/agt/util/errwrap"

	"github.com/iancoleman/strcase"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// GrammarConfig is the data structure that describes a grammar file.
type GrammarConfig struct {
	Grammar string        `yaml:"grammar"`
	Start   string        `yaml:"start"`
	Comment string        `yaml:"comment"`
	Rules   yaml.MapSlice `yaml:"rules"`
}

// Parse parses a data stream into the grammar config structure.
func (obj *GrammarConfig) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, obj); err != nil {
		return err
	}
	if obj.Grammar == "" {
		return fmt.Errorf("grammar config: invalid grammar name")
	}
	if obj.Start == "" {
		return fmt.Errorf("grammar config: missing start rule")
	}
	if len(obj.Rules) == 0 {
		return fmt.Errorf("grammar config: no rules")
	}
	return nil
}

// Grammar is a loaded grammar file.
type Grammar struct {
	// Name is the name of the grammar.
	Name string

	// Start is the canonical name of the start rule.
	Start string

	// Rules is the list of canonical rule names in file order.
	Rules []string

	// Registry holds a lazy factory for each of the rules.
	Registry *template.Registry
}

// Canonical returns the canonical form of a rule name. The names
// `buttonAction`, `ButtonAction` and `BUTTON_ACTION` are all the same rule.
func Canonical(name string) string {
	return strcase.ToSnake(name)
}

// NewGrammarFromConfig builds the templates of every rule and registers them.
// All of the rule errors are returned together.
func (obj *GrammarConfig) NewGrammarFromConfig() (*Grammar, error) {
	registry := template.NewRegistry()
	names := []string{}
	known := make(map[string]struct{})
	for _, item := range obj.Rules {
		name, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("rule name %v is a %T, not a string", item.Key, item.Key)
		}
		name = Canonical(name)
		if _, exists := known[name]; exists {
			return nil, fmt.Errorf("duplicate rule `%s`", name)
		}
		known[name] = struct{}{}
		names = append(names, name)
	}

	b := &builder{rules: known}
	var reterr error
	for i, item := range obj.Rules {
		name := names[i]
		t, err := b.build(item.Value)
		if err != nil {
			reterr = errwrap.Append(reterr, errwrap.Wrapf(err, "rule `%s`", name))
			continue
		}
		err = registry.RegisterFactory(name, func(interfaces.Context) (template.Template, error) {
			return t, nil
		})
		reterr = errwrap.Append(reterr, err)
	}
	start := Canonical(obj.Start)
	if _, exists := known[start]; !exists {
		reterr = errwrap.Append(reterr, fmt.Errorf("start rule `%s` does not exist", start))
	}
	if reterr != nil {
		return nil, reterr
	}

	return &Grammar{
		Name:     obj.Grammar,
		Start:    start,
		Rules:    names,
		Registry: registry,
	}, nil
}

// Node returns the grammar node of the named rule. An empty name is the start
// rule.
func (obj *Grammar) Node(name string) (interfaces.Node, error) {
	if name == "" {
		name = obj.Start
	}
	name = Canonical(name)
	if _, exists := obj.Registry.Lookup(name); !exists {
		return nil, fmt.Errorf("rule `%s` does not exist", name)
	}
	return template.Normalize(template.Ref(name), template.WithRegistry(obj.Registry))
}

// Parse parses a grammar file from its contents.
func Parse(data []byte) (*Grammar, error) {
	config := &GrammarConfig{}
	if err := config.Parse(data); err != nil {
		return nil, err
	}
	return config.NewGrammarFromConfig()
}

// Load reads and parses a grammar file.
func Load(fs afero.Fs, path string) (*Grammar, error) {
	afs := &afero.Afero{Fs: fs} // wrap so that we're implementing ioutil
	data, err := afs.ReadFile(path)
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't read grammar file")
	}
	g, err := Parse(data)
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't parse grammar file `%s`", path)
	}
	return g, nil
}
