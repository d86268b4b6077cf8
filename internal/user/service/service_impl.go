package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/internal/auth/password"
	"github.com/mocky70025/suiren/internal/clock"
	"github.com/mocky70025/suiren/internal/user/domain"
	"github.com/mocky70025/suiren/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	if req.Password == "" {
		return domain.User{}, domain.ErrInvalidPassword
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           s.genID.Generate(),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrDuplicateName
		}
		return domain.User{}, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, req domain.AuthenticateRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	return *user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) FindByName(ctx context.Context, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	user, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}
	return users, nil
}

func (s *Service) LinkPayPayID(ctx context.Context, req domain.LinkPayPayIDRequest) error {
	paypayID := strings.TrimSpace(req.PayPayID)
	if paypayID == "" {
		return domain.ErrInvalidName
	}

	user, err := s.repo.FindByID(ctx, s.db, req.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}

	return s.repo.UpdatePayPayID(ctx, s.db, req.UserID, paypayID)
}

// FindOrCreateByLINEUserID provisions an account on first LINE contact.
// Auto-provisioned users get an unguessable random password and can only
// be reached through their LINE identity until they register a name.
func (s *Service) FindOrCreateByLINEUserID(ctx context.Context, lineUserID string) (domain.User, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		return domain.User{}, domain.ErrInvalidName
	}

	user, err := s.repo.FindByLINEUserID(ctx, s.db, lineUserID)
	if err != nil {
		return domain.User{}, err
	}
	if user != nil {
		return *user, nil
	}

	secret, err := randomSecret()
	if err != nil {
		return domain.User{}, err
	}
	hash, err := password.Hash(secret)
	if err != nil {
		return domain.User{}, err
	}

	created := domain.User{
		ID:           s.genID.Generate(),
		Name:         "line_" + lineUserID,
		PasswordHash: hash,
		LINEUserID:   &lineUserID,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost a race with a concurrent webhook delivery.
			existing, findErr := s.repo.FindByLINEUserID(ctx, s.db, lineUserID)
			if findErr == nil && existing != nil {
				return *existing, nil
			}
		}
		return domain.User{}, err
	}

	s.log.Info("user auto-provisioned from LINE contact", zap.String("user_id", created.ID.String()))
	return created, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}
