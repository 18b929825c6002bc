package service

import (
	"context"

	"github.com/authplatform/passage/internal/auth/domain"
	"github.com/authplatform/passage/internal/auth/store"
)

// ManagementLevel is the minimum role level that grants an end-user
// management rights over their own project.
const ManagementLevel = 500

// PermissionService answers the single authorization question the platform
// has: may this identity manage that project?
type PermissionService struct {
	Store store.Store
}

// CanManageProject reports whether id may perform management operations on
// the project. Owners manage the projects they own; end-users manage their
// own project when their highest role level reaches ManagementLevel. An
// unauthenticated request never manages anything.
func (s *PermissionService) CanManageProject(ctx context.Context, id domain.Identity, projectID string) (bool, error) {
	switch principal := id.(type) {
	case domain.OwnerIdentity:
		project, err := s.Store.Projects().GetProjectByID(ctx, projectID)
		if err != nil {
			return false, err
		}
		return project.OwnerID == principal.Owner.ID, nil

	case domain.EndUserIdentity:
		if principal.EndUser.ProjectID != projectID {
			return false, nil
		}
		return principal.MaxRoleLevel() >= ManagementLevel, nil

	default:
		return false, nil
	}
}
