package models

// User roles
const (
	RoleAdmin     = "admin"
	RolePartner   = "partner"
	RoleLawyer    = "lawyer"
	RoleIntern    = "intern"
	RoleSecretary = "secretary"
	RoleFinance   = "finance"
	RoleOther     = "other"
)

// Capability names a permission checked by the API layer.
type Capability string

const (
	CapManageUsers    Capability = "manage_users"
	CapManageClients  Capability = "manage_clients"
	CapManageCases    Capability = "manage_cases"
	CapManageFinance  Capability = "manage_finance"
	CapManageWhatsApp Capability = "manage_whatsapp"
)

var allCapabilities = []Capability{
	CapManageUsers, CapManageClients, CapManageCases, CapManageFinance, CapManageWhatsApp,
}

var roleCapabilities = map[string][]Capability{
	RoleAdmin:     allCapabilities,
	RolePartner:   allCapabilities,
	RoleLawyer:    {CapManageClients, CapManageCases, CapManageWhatsApp},
	RoleSecretary: {CapManageClients, CapManageCases, CapManageWhatsApp},
	RoleFinance:   {CapManageFinance},
	RoleIntern:    {},
	RoleOther:     {},
}

// Capabilities is the read-only permission view of a user.
type Capabilities struct {
	ManageUsers    bool `json:"manage_users"`
	ManageClients  bool `json:"manage_clients"`
	ManageCases    bool `json:"manage_cases"`
	ManageFinance  bool `json:"manage_finance"`
	ManageWhatsApp bool `json:"manage_whatsapp"`
}

// CapabilitiesFor is a pure function of role. Superusers hold everything.
func CapabilitiesFor(role string, superuser bool) Capabilities {
	caps := roleCapabilities[role]
	if superuser {
		caps = allCapabilities
	}

	var out Capabilities
	for _, c := range caps {
		switch c {
		case CapManageUsers:
			out.ManageUsers = true
		case CapManageClients:
			out.ManageClients = true
		case CapManageCases:
			out.ManageCases = true
		case CapManageFinance:
			out.ManageFinance = true
		case CapManageWhatsApp:
			out.ManageWhatsApp = true
		}
	}
	return out
}

// Has reports whether c is granted.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapManageUsers:
		return c.ManageUsers
	case CapManageClients:
		return c.ManageClients
	case CapManageCases:
		return c.ManageCases
	case CapManageFinance:
		return c.ManageFinance
	case CapManageWhatsApp:
		return c.ManageWhatsApp
	}
	return false
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}

// CanBeResponsibleForCase reports whether a role may lead a case.
func CanBeResponsibleForCase(role string) bool {
	return role == RoleAdmin || role == RolePartner || role == RoleLawyer
}
