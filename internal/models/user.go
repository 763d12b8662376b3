package models

type Role string

const (
	RoleCustomer Role = "customer"
	RoleService  Role = "service"
)

// Principal описывает владельца токена. Для клиента ID совпадает с идентификатором клиента в журнале.
type Principal struct {
	ID   string
	Role Role
}
