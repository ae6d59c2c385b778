// Package api implements HTTP handlers and helpers for the planning service.
package api

import (
    "net/http"
    "os"
    "strings"
    "sync"
)

type Principal struct {
	Tenant  string
	Role    string // admin, planner, viewer
	Subject string
}

// getPrincipal extracts tenant and role from JWT or headers.
// - If Authorization: Bearer is present, uses configured verifier (dev/hmac/jwks).
// - Else falls back to headers for dev.
func (s *Server) getPrincipal(r *http.Request) Principal {
    authz := r.Header.Get("Authorization")
    if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
        tok := strings.TrimSpace(authz[len("Bearer "):])
        if pr, err := s.Auth.Verify(tok); err == nil {
            // Normalize tenant for underlying store (e.g., map aliases to UUID)
            t := s.normalizeTenantID(pr.Tenant)
            return Principal{Tenant: t, Role: pr.Role, Subject: pr.Subject}
        }
    }
    tenant := r.Header.Get("X-Tenant-Id")
    role := r.Header.Get("X-Role")
    subject := r.Header.Get("X-Subject")
    if tenant == "" {
        tenant = "t_demo"
    }
    tenant = s.normalizeTenantID(tenant)
    if role == "" {
        role = "admin"
    }
    return Principal{Tenant: tenant, Role: role, Subject: subject}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// normalizeTenantID maps tenant aliases to canonical IDs. Aliases come from
// TENANT_ALIASES as "alias=canonical" pairs separated by commas.
func (s *Server) normalizeTenantID(tenant string) string {
    aliasOnce.Do(func() {
        aliases = map[string]string{}
        for _, pair := range strings.Split(os.Getenv("TENANT_ALIASES"), ",") {
            if k, v, ok := strings.Cut(pair, "="); ok && k != "" && v != "" {
                aliases[strings.TrimSpace(k)] = strings.TrimSpace(v)
            }
        }
    })
    if canonical, ok := aliases[tenant]; ok {
        return canonical
    }
    return tenant
}

var (
    aliasOnce sync.Once
    aliases   map[string]string
)
