package identity

import (
	"os"
	"sort"
	"strings"
)

// hostname is swappable in tests; the fingerprint only consults it when
// every hardware fact is absent.
var hostname = os.Hostname

// ResolveFingerprint reduces a fact set to a single stable seed string.
//
// Priority:
//  1. serial number ("sn:<serial>")
//  2. strongest connection, mac before bluetooth, ties broken by address
//  3. hostname ("host:<name>")
//  4. the literal "host:unknown"
//
// The result is deterministic for equivalent fact sets: connection order
// in the input never matters, and all values are trimmed and lowercased.
func ResolveFingerprint(facts FactSet) string {
	if s := strings.TrimSpace(facts.Serial); s != "" {
		return "sn:" + strings.ToLower(s)
	}

	conns := make([]Connection, len(facts.Connections))
	copy(conns, facts.Connections)
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].Kind.rank() != conns[j].Kind.rank() {
			return conns[i].Kind.rank() < conns[j].Kind.rank()
		}
		return conns[i].Address < conns[j].Address
	})
	for _, conn := range conns {
		if v := strings.TrimSpace(conn.Address); v != "" {
			return string(conn.Kind) + ":" + strings.ToLower(v)
		}
	}

	if host, err := hostname(); err == nil {
		if h := strings.ToLower(strings.TrimSpace(host)); h != "" {
			return "host:" + h
		}
	}
	return "host:unknown"
}
