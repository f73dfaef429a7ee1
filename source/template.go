/*
Copyright 2025 The cf-ts-dns Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package source

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudmesh/cf-ts-dns/config"
)

var templateToken = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// TemplateContext carries everything a template variable can resolve
// against: the machine, the selector captures, and the named CIDR lists.
type TemplateContext struct {
	Machine  *Machine
	Captures Captures
	Config   *config.Config
}

// resolve maps one variable name to its value sequence. An unknown variable
// resolves to empty, which suppresses the record.
func (c *TemplateContext) resolve(name string) []string {
	switch {
	case name == "machineName":
		if v := c.Machine.MachineName(); v != "" {
			return []string{v}
		}
		return nil
	case name == "tailscaleIP":
		if v := c.Machine.TailscaleIP(); v != "" {
			return []string{v}
		}
		return nil
	case name == "tags":
		if len(c.Machine.Tags) > 0 {
			return []string{strings.Join(c.Machine.Tags, ",")}
		}
		return nil
	case strings.HasPrefix(name, "cidr."):
		lists := strings.Split(strings.TrimPrefix(name, "cidr."), ",")
		return SelectFromNamedLists(c.Machine, lists, c.Config)
	case strings.HasPrefix(name, "$"):
		if v, ok := c.Captures[name[1:]]; ok && v != "" {
			return []string{v}
		}
		return nil
	default:
		if v, ok := c.Captures[name]; ok && v != "" {
			return []string{v}
		}
		return nil
	}
}

// EvaluateTemplate expands a {{var}} template against the context, returning
// the sequence of concrete strings it produces.
//
// Any variable resolving to an empty sequence makes the whole template yield
// nothing. When several variables are multi-valued, only the first one (in
// template order) is expanded; the others contribute their first value. That
// asymmetry is long-standing observed behavior that downstream configs rely
// on.
func EvaluateTemplate(template string, ctx *TemplateContext) ([]string, error) {
	tokens := templateToken.FindAllStringSubmatch(template, -1)
	if len(tokens) == 0 {
		return []string{template}, nil
	}

	values := map[string][]string{}
	expandVar := ""
	for _, token := range tokens {
		name := token[1]
		if _, ok := values[name]; ok {
			continue
		}
		resolved := ctx.resolve(name)
		if len(resolved) == 0 {
			return nil, nil
		}
		values[name] = resolved
		if len(resolved) > 1 && expandVar == "" {
			expandVar = name
		}
	}

	substitute := func(pick func(name string) string) string {
		return templateToken.ReplaceAllStringFunc(template, func(token string) string {
			match := templateToken.FindStringSubmatch(token)
			return pick(match[1])
		})
	}

	if expandVar == "" {
		return []string{substitute(func(name string) string {
			return values[name][0]
		})}, nil
	}

	var out []string
	for _, value := range values[expandVar] {
		out = append(out, substitute(func(name string) string {
			if name == expandVar {
				return value
			}
			return values[name][0]
		}))
	}
	return out, nil
}

// MustEvaluateOne is a helper for callers that require a template to yield
// exactly one value.
func MustEvaluateOne(template string, ctx *TemplateContext) (string, error) {
	values, err := EvaluateTemplate(template, ctx)
	if err != nil {
		return "", err
	}
	if len(values) != 1 {
		return "", fmt.Errorf("template %q yielded %d values, want 1", template, len(values))
	}
	return values[0], nil
}
