package models

import (
	"slices"
	"time"
)

const (
	RoleFinanceRead   = "Finance_Read"
	RoleFinanceCRUD   = "Finance_CRUD"
	RoleFinanceExport = "Finance_Export"
	RoleSTRRead       = "STR_Read"
	RoleSTRCRUD       = "STR_CRUD"
	RoleSysAdmin      = "SysAdmin"
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	Tenants      []string  `json:"tenants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether roles grant role. SysAdmin grants everything and
// a CRUD role grants the matching read role.
func HasRole(roles []string, role string) bool {
	if slices.Contains(roles, RoleSysAdmin) || slices.Contains(roles, role) {
		return true
	}
	switch role {
	case RoleFinanceRead:
		return slices.Contains(roles, RoleFinanceCRUD)
	case RoleSTRRead:
		return slices.Contains(roles, RoleSTRCRUD)
	}
	return false
}

func KnownRole(role string) bool {
	switch role {
	case RoleFinanceRead, RoleFinanceCRUD, RoleFinanceExport, RoleSTRRead, RoleSTRCRUD, RoleSysAdmin:
		return true
	}
	return false
}
