// Package allowlist decides which operator addresses are granted admin
// access. The list is static data external to the request-handling core:
// a YAML file or an inline comma-separated string, loaded once at startup.
package allowlist

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// List is a fixed set of operator addresses. Membership checks are
// case-insensitive on the normalized address.
type List struct {
	members map[string]struct{}
}

type fileFormat struct {
	Admins []string `yaml:"admins"`
}

// LoadFile reads the operator allow-list from a YAML file of the form:
//
//	admins:
//	  - ops@example.com
func LoadFile(path string) (*List, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allow-list file: %w", err)
	}

	var parsed fileFormat
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse allow-list file %s: %w", path, err)
	}

	return New(parsed.Admins), nil
}

// Parse builds a List from a comma-separated string of addresses.
func Parse(raw string) *List {
	return New(strings.Split(raw, ","))
}

// New builds a List from the given addresses, dropping empties.
func New(addresses []string) *List {
	members := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		addr = normalize(addr)
		if addr == "" {
			continue
		}
		members[addr] = struct{}{}
	}
	return &List{members: members}
}

// Allows reports whether the address is an authorized operator.
func (l *List) Allows(email string) bool {
	if l == nil {
		return false
	}
	_, ok := l.members[normalize(email)]
	return ok
}

// Empty reports whether no operators are configured.
func (l *List) Empty() bool {
	return l == nil || len(l.members) == 0
}

// Len returns the number of configured operators.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.members)
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
