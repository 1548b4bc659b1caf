package services

import (
	"context"
	"fmt"

	"github.com/crewdesk/bridge-api/internal/database"
	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/google/uuid"
)

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, email, name, global_role, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.GlobalRole,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	return &user, nil
}

// LookupRole resolves an owner's application role. Unknown owners fall back
// to the baseline member role rather than failing the request.
func (s *UserService) LookupRole(ctx context.Context, ownerID uuid.UUID) string {
	var role string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT global_role FROM users WHERE id = $1
	`, ownerID).Scan(&role)
	if err != nil || role == "" {
		return models.GlobalRoleMember
	}
	return role
}
