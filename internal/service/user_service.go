package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.UserWithRoles, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
	GrantRole(ctx context.Context, userID, role string) error
	RevokeRole(ctx context.Context, userID, role string) error
	CountRole(ctx context.Context, role string) (int, error)
}

type roleNotifier interface {
	PublishRoleChange(ctx context.Context, change models.RoleChange) error
}

// UserService manages accounts and the admin role.
type UserService struct {
	repo     userRepository
	notifier roleNotifier
	logger   *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, notifier roleNotifier, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, notifier: notifier, logger: logger}
}

// List returns paginated users with their admin flag.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.UserWithRoles, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "Gagal memuat pengguna")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GrantAdmin gives userID the admin role.
func (s *UserService) GrantAdmin(ctx context.Context, userID, actorID string) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.GrantRole(ctx, userID, models.RoleAdmin); err != nil {
		return appErrors.Internal(err, "Gagal menyimpan peran pengguna")
	}
	s.logger.Info("admin role granted", zap.String("user_id", userID), zap.String("actor_id", actorID))
	s.notify(ctx, models.RoleChange{UserID: userID, Role: models.RoleAdmin, Action: RoleGranted})
	return nil
}

// RevokeAdmin removes the admin role from userID. The last admin cannot be removed.
func (s *UserService) RevokeAdmin(ctx context.Context, userID, actorID string) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	isAdmin, err := s.repo.HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return appErrors.Internal(err, "Gagal menyimpan peran pengguna")
	}
	if !isAdmin {
		return nil
	}
	admins, err := s.repo.CountRole(ctx, models.RoleAdmin)
	if err != nil {
		return appErrors.Internal(err, "Gagal menyimpan peran pengguna")
	}
	if admins <= 1 {
		return appErrors.Clone(appErrors.ErrConflict, "Minimal harus ada satu admin")
	}
	if err := s.repo.RevokeRole(ctx, userID, models.RoleAdmin); err != nil {
		return appErrors.Internal(err, "Gagal menyimpan peran pengguna")
	}
	s.logger.Info("admin role revoked", zap.String("user_id", userID), zap.String("actor_id", actorID))
	s.notify(ctx, models.RoleChange{UserID: userID, Role: models.RoleAdmin, Action: RoleRevoked})
	return nil
}

func (s *UserService) ensureUser(ctx context.Context, userID string) error {
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Pengguna tidak ditemukan")
		}
		return appErrors.Internal(err, "Gagal memuat pengguna")
	}
	return nil
}

func (s *UserService) notify(ctx context.Context, change models.RoleChange) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishRoleChange(ctx, change); err != nil {
		s.logger.Warn("role change notification failed", zap.String("user_id", change.UserID), zap.Error(err))
	}
}
