package user

import (
	"time"

	"github.com/google/uuid"
)

// Role enumera papéis de acesso do portal.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RolePresenter Role = "PRESENTER"
	RoleViewer    Role = "VIEWER"
)

// Valid informa se o papel é um dos valores conhecidos.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RolePresenter, RoleViewer:
		return true
	}
	return false
}

// User representa um operador do portal (não confundir com Conselheiro).
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	SenhaHash string    `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
