// Package users contiene el service de administración de usuarios.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dto "github.com/dropDatabas3/minijohn/internal/http/dto/users"
	"github.com/dropDatabas3/minijohn/internal/http/services/common"
	"github.com/dropDatabas3/minijohn/internal/observability/logger"
	"github.com/dropDatabas3/minijohn/internal/security/password"
	"github.com/dropDatabas3/minijohn/internal/store"
	"github.com/dropDatabas3/minijohn/internal/validation"
)

var (
	// ErrUsernameTaken el username ya pertenece a otro id.
	ErrUsernameTaken = errors.New("username already in use")
	ErrInvalidUserID = errors.New("invalid user id")
)

// Service CRUD de usuarios. Ninguna respuesta incluye el hash de password.
type Service interface {
	List(ctx context.Context) ([]dto.User, error)
	Get(ctx context.Context, id string) (*dto.User, error)
	// Put crea (created=true) o actualiza. En update los campos vacíos
	// conservan el valor actual.
	Put(ctx context.Context, id string, in dto.PutUserRequest) (user *dto.User, created bool, err error)
	Delete(ctx context.Context, id string) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
}

type Deps struct {
	Users store.UserRepository
	// Hash parámetros argon2id para passwords nuevas (zero value = password.Default).
	Hash password.Params
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	if deps.Hash == (password.Params{}) {
		deps.Hash = password.Default
	}
	return &service{deps: deps}
}

func toDTO(u store.User) dto.User {
	attrs := u.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return dto.User{ID: u.ID, Username: u.Username, Disabled: u.Disabled, Attributes: attrs}
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return common.ErrUserNotFound
	}
	return err
}

func (s *service) List(ctx context.Context) ([]dto.User, error) {
	list, err := s.deps.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]dto.User, 0, len(list))
	for _, u := range list {
		out = append(out, toDTO(u))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (*dto.User, error) {
	u, err := s.deps.Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	out := toDTO(*u)
	return &out, nil
}

func (s *service) Put(ctx context.Context, id string, in dto.PutUserRequest) (*dto.User, bool, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("users"), logger.Op("Put"), logger.UserID(id))

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, common.ErrMissingFields
	}
	if !validation.ValidUserID(id) {
		return nil, false, ErrInvalidUserID
	}

	u, err := s.deps.Users.GetByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// alta: username y password obligatorios
		if strings.TrimSpace(in.Username) == "" || in.Password == "" {
			return nil, false, common.ErrMissingFields
		}
		u = &store.User{ID: id}
	case err != nil:
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	if v := strings.TrimSpace(in.Username); v != "" {
		u.Username = v
	}
	if in.Password != "" {
		// siempre se hashea: un "$argon2id$..." en el body es una password literal
		h, err := password.Hash(s.deps.Hash, in.Password)
		if err != nil {
			return nil, false, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = h
	}
	if in.Disabled != nil {
		u.Disabled = *in.Disabled
	}
	if in.Attributes != nil {
		u.Attributes = in.Attributes
	}

	created, err := s.deps.Users.Put(ctx, *u)
	if errors.Is(err, store.ErrConflict) {
		return nil, false, ErrUsernameTaken
	}
	if err != nil {
		return nil, false, fmt.Errorf("put user: %w", err)
	}
	log.Info("user saved", logger.Bool("created", created))

	out := toDTO(*u)
	return &out, created, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.deps.Users.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	logger.From(ctx).Info("user deleted", logger.Layer("service"), logger.Component("users"), logger.UserID(id))
	return nil
}

func (s *service) SetDisabled(ctx context.Context, id string, disabled bool) error {
	if err := s.deps.Users.SetDisabled(ctx, id, disabled); err != nil {
		return notFound(err)
	}
	logger.From(ctx).Info("user disabled flag changed",
		logger.Layer("service"), logger.Component("users"), logger.UserID(id), logger.Bool("disabled", disabled))
	return nil
}
