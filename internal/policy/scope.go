// Package policy centralizes tenant scoping. Every list or lookup that
// serves a request goes through one of these scopes so that a client
// principal can never observe rows outside its client, and a firm
// principal never sees rows outside its firm's clients. Out-of-scope
// lookups surface as not-found, never as forbidden.
package policy

import (
	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/auth"
)

// ScopeClients restricts property-management clients to the caller's
// reach: firm users see the firm's clients, client users see only
// their own row.
func ScopeClients(db *gorm.DB, p *auth.Principal) *gorm.DB {
	if p.IsClient() {
		return db.Where("property_mgmt_clients.id = ?", p.ClientID)
	}
	return db.Where("property_mgmt_clients.law_firm_id = ?", p.LawFirmID)
}

// ScopeCases restricts cases by the owning client.
func ScopeCases(db *gorm.DB, p *auth.Principal) *gorm.DB {
	if p.IsClient() {
		return db.Where("cases.client_id = ?", p.ClientID)
	}
	return db.Where("cases.client_id IN (?)", firmClientIDs(db, p))
}

// ScopeProperties restricts properties by the owning client.
func ScopeProperties(db *gorm.DB, p *auth.Principal) *gorm.DB {
	if p.IsClient() {
		return db.Where("properties.client_id = ?", p.ClientID)
	}
	return db.Where("properties.client_id IN (?)", firmClientIDs(db, p))
}

// ScopeTenants restricts tenants by the owning client.
func ScopeTenants(db *gorm.DB, p *auth.Principal) *gorm.DB {
	if p.IsClient() {
		return db.Where("tenants.client_id = ?", p.ClientID)
	}
	return db.Where("tenants.client_id IN (?)", firmClientIDs(db, p))
}

// ScopeIntegrations restricts integrations by the owning client.
func ScopeIntegrations(db *gorm.DB, p *auth.Principal) *gorm.DB {
	if p.IsClient() {
		return db.Where("integrations.client_id = ?", p.ClientID)
	}
	return db.Where("integrations.client_id IN (?)", firmClientIDs(db, p))
}

// ScopeComments filters comments for the caller. Client principals
// additionally lose internal comments.
func ScopeComments(db *gorm.DB, p *auth.Principal) *gorm.DB {
	if p.IsClient() {
		return db.Where("comments.is_internal = ?", false)
	}
	return db
}

// firmClientIDs builds a subquery selecting the IDs of all clients
// belonging to the principal's firm.
func firmClientIDs(db *gorm.DB, p *auth.Principal) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Table("property_mgmt_clients").
		Select("id").
		Where("law_firm_id = ?", p.LawFirmID)
}
