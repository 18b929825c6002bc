package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/pkg/cryptox"
	"github.com/authplatform/passage/pkg/idx"
	"github.com/authplatform/passage/pkg/slogx"

	"github.com/google/uuid"
)

// ProjectService manages tenant projects and their credentials.
type ProjectService struct {
	Store store.Store
}

// CreateProject provisions a new tenant: generates the API key pair and
// seeds the protected USER and ADMIN roles in one transaction. The plaintext
// API secret is returned exactly once; only its hash is stored.
func (s *ProjectService) CreateProject(ctx context.Context, ownerID, name string, allowedOrigins []string) (domain.Project, string, error) {
	secret, err := cryptox.GenerateAPISecret()
	if err != nil {
		return domain.Project{}, "", err
	}
	secretHash, err := cryptox.HashPassword(secret)
	if err != nil {
		return domain.Project{}, "", err
	}

	now := time.Now().UTC()
	project := domain.Project{
		ID:             idx.New().String(),
		Name:           strings.TrimSpace(name),
		APIKey:         uuid.NewString(),
		SecretHash:     secretHash,
		OwnerID:        ownerID,
		AllowedOrigins: allowedOrigins,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	seeds := []struct {
		name  string
		level int
	}{
		{domain.DefaultRoleUser, domain.DefaultRoleUserLevel},
		{domain.DefaultRoleAdmin, domain.DefaultRoleAdminLevel},
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Projects().CreateProject(ctx, project); err != nil {
			return err
		}
		for _, seed := range seeds {
			role := domain.ProjectRole{
				ID:        idx.New().String(),
				ProjectID: project.ID,
				Name:      seed.name,
				Level:     seed.level,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.ProjectRoles().CreateRole(ctx, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Project{}, "", err
	}

	slogx.FromContext(ctx).Info("project created",
		slog.String("project_id", project.ID), slog.String("owner_id", ownerID))
	return project, secret, nil
}

// GetProject fetches a project by id.
func (s *ProjectService) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.Store.Projects().GetProjectByID(ctx, projectID)
}

// GetProjectByAPIKey fetches a project by its public API key.
func (s *ProjectService) GetProjectByAPIKey(ctx context.Context, apiKey string) (domain.Project, error) {
	return s.Store.Projects().GetProjectByAPIKey(ctx, apiKey)
}

// ListProjects returns the projects owned by ownerID, newest first.
func (s *ProjectService) ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error) {
	return s.Store.Projects().ListProjectsByOwner(ctx, ownerID)
}

// UpdateProject mutates name and allowed origins. The API key and secret
// are immutable after creation and have no update path.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID, name string, allowedOrigins []string) error {
	return s.Store.Projects().UpdateProject(ctx, projectID, strings.TrimSpace(name), allowedOrigins)
}
