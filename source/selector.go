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
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/config"
)

// Captures maps numbered ("1", "2", ...) and named regex groups from a
// selector match to their values.
type Captures map[string]string

// fieldValues extracts the machine field a selector matches against. The
// tag field yields all tags; unknown fields fall back to the generic string
// properties of the machine.
func fieldValues(machine *Machine, field string) []string {
	switch field {
	case "tag", "tags":
		return machine.Tags
	case "name":
		return []string{machine.MachineName()}
	case "hostname":
		return []string{machine.Hostname}
	case "id":
		return []string{machine.ID}
	case "os":
		return []string{machine.OS}
	case "user":
		return []string{machine.User}
	case "address", "addresses":
		return machine.Addresses
	default:
		return nil
	}
}

// MatchMachine applies a selector to one machine. It returns whether the
// machine matched and the captures of the first matching value. A literal
// pattern is an exact comparison; a /.../ pattern is a regex whose numbered
// and named groups feed the captures. Invalid regexes match nothing.
func MatchMachine(machine *Machine, selector config.MachineSelector) (bool, Captures) {
	values := fieldValues(machine, selector.Field)
	pattern := selector.Pattern

	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 1 {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err != nil {
			log.Debugf("selector regex %q does not compile: %v", pattern, err)
			return false, nil
		}
		for _, value := range values {
			match := re.FindStringSubmatch(value)
			if match == nil {
				continue
			}
			captures := Captures{}
			for i, group := range match {
				captures[strconv.Itoa(i)] = group
			}
			for i, name := range re.SubexpNames() {
				if name != "" && i < len(match) {
					captures[name] = match[i]
				}
			}
			return true, captures
		}
		return false, nil
	}

	for _, value := range values {
		if value == pattern {
			return true, Captures{"0": value}
		}
	}
	return false, nil
}

// SelectMachines returns the machines a selector matches, in inventory
// order, paired with their captures.
func SelectMachines(machines []*Machine, selector config.MachineSelector) []Match {
	var out []Match
	for _, machine := range machines {
		if ok, captures := MatchMachine(machine, selector); ok {
			out = append(out, Match{Machine: machine, Captures: captures})
		}
	}
	return out
}

// Match pairs a selected machine with the captures its selector produced.
type Match struct {
	Machine  *Machine
	Captures Captures
}
