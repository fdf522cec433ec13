package models

// UserRole приходит в токене внешнего провайдера авторизации.
type UserRole string

const (
	RolePlayer UserRole = "player"
	RoleAdmin  UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	return r == RolePlayer || r == RoleAdmin
}
