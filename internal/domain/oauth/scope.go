// Package oauth implements the OAuth 2.1 resource-server domain logic:
// scope-to-permission projection and the bearer-validation contract (C6).
// Grounded on the teacher's credential.VerifySecret / revocation pattern,
// generalized from API-key validation to bearer-token validation.
package oauth

import (
	"strings"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/credential"
)

// RoleTableEntry is one row of the configured subject -> role/permission
// mapping used to project OAuth claims onto a Principal.
type RoleTableEntry struct {
	Role        credential.Role
	Permissions []credential.Permission
}

// RoleTable maps a token's subject claim to its configured role entry.
// Unknown subjects project to RoleUnknown with an empty permission set.
type RoleTable map[string]RoleTableEntry

// Lookup resolves subject to a RoleTableEntry, defaulting to unknown/none.
func (t RoleTable) Lookup(subject string) RoleTableEntry {
	if entry, ok := t[subject]; ok {
		return entry
	}
	return RoleTableEntry{Role: credential.RoleUnknown, Permissions: nil}
}

// ProjectPrincipal applies the scope-projection table to a subject and
// its raw OAuth scope string, producing the Principal the rest of the
// request-processing plane operates on.
//
// Projection table (exact, per spec):
//   - read:all    => permits mcp:read, mcp:execute; data access allowed for all domains.
//   - write:all   => additionally permits mcp:admin.
//   - read:<domain> => data access allowed only for models whose canonical
//     name equals <domain> (case-insensitive).
//   - none        => has-data-access = false.
func ProjectPrincipal(subject string, scope string, table RoleTable) *credential.Principal {
	entry := table.Lookup(subject)

	p := &credential.Principal{
		Subject:     subject,
		Role:        entry.Role,
		Permissions: append([]credential.Permission{}, entry.Permissions...),
	}

	for _, raw := range strings.Fields(scope) {
		switch {
		case raw == string(credential.PermReadAll):
			addPermission(p, credential.PermReadAll, credential.PermMCPRead, credential.PermMCPExecute)
			p.HasDataAccess = true
		case raw == string(credential.PermWriteAll):
			addPermission(p, credential.PermWriteAll, credential.PermMCPAdmin)
		case strings.HasPrefix(raw, credential.ReadDomainPrefix):
			domain := strings.TrimPrefix(raw, credential.ReadDomainPrefix)
			if domain != "" && domain != "all" {
				p.AllowedDomains = append(p.AllowedDomains, domain)
				addPermission(p, credential.PermMCPRead)
				p.HasDataAccess = true
			}
		case raw == string(credential.PermNone):
			p.HasDataAccess = false
		}
	}

	// A role-table entry carrying read:all directly (no scope string present,
	// e.g. introspection-only flows) still grants data access.
	if p.HasPermission(credential.PermReadAll) {
		p.HasDataAccess = true
	}

	return p
}

func addPermission(p *credential.Principal, perms ...credential.Permission) {
	for _, perm := range perms {
		if !p.HasPermission(perm) {
			p.Permissions = append(p.Permissions, perm)
		}
	}
}
