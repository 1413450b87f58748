// Package tenant maps inbound request hosts to tenant identities and
// enforces the host/path allowlist. Resolution failure is the authorization
// boundary for every tenant-scoped read and write.
package tenant

import (
	"fmt"
	"net"
	"strings"
)

// PublicTenant is the hardcoded fallback used only in permissive/demo
// configurations where no mapping, claim or default applies.
const PublicTenant = "public"

// Mapping binds one inbound host to its permitted path prefixes and,
// optionally, the tenant that owns it. At most one mapping per host.
type Mapping struct {
	Host     string   `json:"host"`
	Prefixes []string `json:"prefixes"`
	OwnerID  string   `json:"ownerId,omitempty"`
}

// ResolutionError means the host/path combination is not authorized for any
// tenant. It is distinct from an authentication failure: callers must map it
// to access-denied, not a login redirect.
type ResolutionError struct {
	Host string
	Path string
}

func (e *ResolutionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("host %q is not authorized for path %q", e.Host, e.Path)
	}
	return fmt.Sprintf("no tenant mapping for host %q", e.Host)
}

// Resolver holds the allowlist loaded once at boot.
type Resolver struct {
	byHost        map[string]Mapping
	defaultTenant string
	production    bool
}

func NewResolver(mappings []Mapping, defaultTenant string, production bool) *Resolver {
	byHost := make(map[string]Mapping, len(mappings))
	for _, m := range mappings {
		byHost[strings.ToLower(m.Host)] = m
	}
	return &Resolver{
		byHost:        byHost,
		defaultTenant: defaultTenant,
		production:    production,
	}
}

// Resolve determines the tenant for a request. Precedence: authenticated
// user claim > host-mapped owner > configured default > the public sentinel
// (only when allowPublic is set). Unmapped hosts and disallowed paths fail
// with *ResolutionError before any tenant-scoped data access can happen.
func (r *Resolver) Resolve(host, path, userClaimedTenant string, allowPublic bool) (string, error) {
	h := normalizeHost(host)

	mapping, mapped := r.byHost[h]
	if !mapped {
		if r.production && r.defaultTenant == "" {
			return "", &ResolutionError{Host: host}
		}
	} else if !pathAllowed(path, mapping.Prefixes) {
		return "", &ResolutionError{Host: host, Path: path}
	}

	if userClaimedTenant != "" {
		return userClaimedTenant, nil
	}
	if mapped && mapping.OwnerID != "" {
		return mapping.OwnerID, nil
	}
	if r.defaultTenant != "" {
		return r.defaultTenant, nil
	}
	if allowPublic {
		return PublicTenant, nil
	}
	return "", &ResolutionError{Host: host}
}

// normalizeHost lowercases and strips any port suffix; the allowlist is
// port-less and Host headers carry ports in dev and behind some proxies.
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSpace(host))
}

// pathAllowed matches on whole path segments, so prefix "/admin" permits
// "/admin" and "/admin/x" but not "/administrator".
func pathAllowed(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return false
	}
	p := strings.TrimSuffix(path, "/")
	if p == "" {
		p = "/"
	}
	for _, prefix := range prefixes {
		pre := strings.TrimSuffix(prefix, "/")
		if pre == "" {
			return true
		}
		if p == pre || strings.HasPrefix(p, pre+"/") {
			return true
		}
	}
	return false
}
