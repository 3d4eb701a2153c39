package oidc

import (
	"context"
	"errors"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/oidc"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
	"github.com/dropDatabas3/minijohn/internal/store"
)

// UserInfoService resuelve el usuario dueño de un access token ya verificado.
type UserInfoService interface {
	// UserInfo devuelve sub más todos los atributos del usuario.
	UserInfo(ctx context.Context, sub string) (map[string]any, error)
	// Me devuelve el usuario sin el hash de password.
	Me(ctx context.Context, sub string) (*dto.MeResponse, error)
}

type userInfoService struct {
	users store.UserRepository
}

func NewUserInfoService(users store.UserRepository) UserInfoService {
	return &userInfoService{users: users}
}

// owner: borrado o deshabilitado después de emitido el token → no autorizado.
func (s *userInfoService) owner(ctx context.Context, sub string) (*store.User, error) {
	if sub == "" {
		return nil, common.ErrUserNotFound
	}
	u, err := common.ActiveUser(ctx, s.users, sub)
	if err != nil && !errors.Is(err, common.ErrUserNotFound) && !errors.Is(err, common.ErrUserDisabled) {
		logger.From(ctx).Error("userinfo lookup failed",
			logger.Layer("service"), logger.Op("owner"), logger.UserID(sub), logger.Err(err))
	}
	return u, err
}

func (s *userInfoService) UserInfo(ctx context.Context, sub string) (map[string]any, error) {
	u, err := s.owner(ctx, sub)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(u.Attributes)+1)
	for k, v := range u.Attributes {
		out[k] = v
	}
	out["sub"] = u.ID
	return out, nil
}

func (s *userInfoService) Me(ctx context.Context, sub string) (*dto.MeResponse, error) {
	u, err := s.owner(ctx, sub)
	if err != nil {
		return nil, err
	}
	attrs := u.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &dto.MeResponse{
		ID:         u.ID,
		Username:   u.Username,
		Disabled:   u.Disabled,
		Attributes: attrs,
	}, nil
}
