package domain

// RoleAdmin 唯一的管理员角色
const RoleAdmin = "admin"

// Admin 表示通过认证的管理员身份。
type Admin struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin 是否拥有管理员角色
func (a *Admin) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
