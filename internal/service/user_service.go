package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"marketplates/internal/model"
	"marketplates/internal/util"
	"marketplates/pkg/apierror"
)

type UserService struct {
	users  UserStore
	logger *slog.Logger
}

func NewUserService(users UserStore, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, logger: logger}
}

func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (model.PublicUser, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := util.ValidateStruct(req); err != nil {
		return model.PublicUser{}, err
	}

	roles := slices.Compact(slices.Sorted(slices.Values(req.Type)))
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	if slices.Contains(roles, model.RoleAdmin) {
		return model.PublicUser{}, apierror.Forbidden("the Admin role cannot be self-assigned")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Type:         roles,
		CSRFSecret:   uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.PublicUser{}, apierror.New(apierror.CodeConflict, "A user with this email already exists", "email", http.StatusConflict)
		}
		return model.PublicUser{}, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user.Public(), nil
}

func (s *UserService) Get(ctx context.Context, id string) (model.PublicUser, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

// Update applies the non-nil fields of req. The requester must own the
// account or be an Admin, and only an Admin may change roles.
func (s *UserService) Update(ctx context.Context, requester *model.TokenClaims, id string, req model.UpdateUserRequest) (model.PublicUser, error) {
	if err := util.ValidateStruct(req); err != nil {
		return model.PublicUser{}, err
	}
	if !OwnerOrAdmin(id, requester.UserID, requester.Roles) {
		return model.PublicUser{}, apierror.Forbidden("you can only modify your own account")
	}
	if req.Type != nil && !requester.IsAdmin() {
		return model.PublicUser{}, apierror.Forbidden("only an admin can change roles")
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcryptCost)
		if err != nil {
			return model.PublicUser{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if req.Type != nil {
		user.Type = slices.Compact(slices.Sorted(slices.Values(req.Type)))
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *UserService) Delete(ctx context.Context, requester *model.TokenClaims, id string) error {
	if !OwnerOrAdmin(id, requester.UserID, requester.Roles) {
		return apierror.Forbidden("you can only delete your own account")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return apierror.UserNotFound()
		}
		return err
	}

	s.logger.Info("user deleted", "user_id", id, "by", requester.UserID)
	return nil
}

func (s *UserService) find(ctx context.Context, id string) (model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, apierror.UserNotFound()
		}
		return model.User{}, err
	}
	return user, nil
}
