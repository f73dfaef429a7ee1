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
	"net"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/config"
)

// InRange reports whether ip falls inside any of the given IPv4 ranges.
// Ranges are checked in order and the first match wins. Unparseable ranges
// and non-IPv4 addresses never match.
func InRange(ip string, cidrs []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return false
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// ExtractEndpointIPs parses "IP:port" endpoint strings into bare IPv4
// addresses. IPv6 endpoints are not supported yet and are dropped with a log.
func ExtractEndpointIPs(endpoints []string) []string {
	var ips []string
	for _, endpoint := range endpoints {
		host, _, err := net.SplitHostPort(endpoint)
		if err != nil {
			host = endpoint
		}
		parsed := net.ParseIP(host)
		if parsed == nil {
			log.Debugf("skipping unparseable endpoint %q", endpoint)
			continue
		}
		if parsed.To4() == nil {
			log.Debugf("skipping IPv6 endpoint %q", endpoint)
			continue
		}
		ips = append(ips, parsed.String())
	}
	return ips
}

// SelectFromNamedList returns the machine's endpoint IPs that the named list
// selects. With inverse=false the result walks the ranges in list order and
// appends each range's matches once, so earlier ranges take priority. With
// inverse=true it keeps IPs matching none of the ranges, in endpoint order.
// mode=single truncates a non-empty result to its first element.
func SelectFromNamedList(machine *Machine, listName string, cfg *config.Config) []string {
	list := cfg.FindList(strings.TrimSpace(listName))
	if list == nil {
		return nil
	}
	ips := ExtractEndpointIPs(machine.Endpoints)

	var selected []string
	if list.Inverse {
		for _, ip := range ips {
			if !InRange(ip, list.CIDRs) {
				selected = append(selected, ip)
			}
		}
	} else {
		seen := map[string]bool{}
		for _, cidr := range list.CIDRs {
			for _, ip := range ips {
				if !seen[ip] && InRange(ip, []string{cidr}) {
					seen[ip] = true
					selected = append(selected, ip)
				}
			}
		}
	}

	if list.Mode == config.ListModeSingle && len(selected) > 1 {
		selected = selected[:1]
	}
	return selected
}

// SelectFromNamedLists unions several lists, preserving per-list ordering
// and dropping IPs already contributed by an earlier list.
func SelectFromNamedLists(machine *Machine, listNames []string, cfg *config.Config) []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range listNames {
		for _, ip := range SelectFromNamedList(machine, name, cfg) {
			if !seen[ip] {
				seen[ip] = true
				out = append(out, ip)
			}
		}
	}
	return out
}
