package postgres

import "github.com/gatekeeper-project/gatekeeper/provider"

// RolePackVersion is the version tag every catalog entry this provider
// ships carries.
const RolePackVersion = "pg-1.0.0"

// rolePackCatalog is the read/write/admin catalog the PostgreSQL provider
// surfaces. The bootstrap schema writes the matching gk_read/gk_write/
// gk_admin roles; installation is therefore a no-op in the common case
// (see InstallRolePack).
var rolePackCatalog = []provider.RolePack{
	{
		Engine:      EngineName,
		Name:        "read",
		Version:     RolePackVersion,
		Description: "read-only access to all tables in the public schema",
		Grants:      []string{"USAGE ON SCHEMA public", "SELECT ON ALL TABLES IN SCHEMA public"},
		Definition:  "gk_read",
	},
	{
		Engine:      EngineName,
		Name:        "write",
		Version:     RolePackVersion,
		Description: "read and write access to all tables in the public schema",
		Grants:      []string{"USAGE ON SCHEMA public", "SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public"},
		Definition:  "gk_write",
	},
	{
		Engine:      EngineName,
		Name:        "admin",
		Version:     RolePackVersion,
		Description: "full schema administration, including CREATE",
		Grants:      []string{"ALL PRIVILEGES ON SCHEMA public", "ALL PRIVILEGES ON ALL TABLES IN SCHEMA public"},
		Definition:  "gk_admin",
	},
}

// getAvailableRolePacks returns a defensive copy of the catalog.
func getAvailableRolePacks() []provider.RolePack {
	packs := make([]provider.RolePack, len(rolePackCatalog))
	copy(packs, rolePackCatalog)
	return packs
}
