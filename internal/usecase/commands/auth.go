package commands

import (
	"context"
	"log/slog"

	"freshfold/internal/domain/user"
	reqdto "freshfold/internal/handler/dto/request"
	"freshfold/internal/pkg/clock"
	"freshfold/internal/pkg/errs"
	"freshfold/internal/pkg/jwt"
	"freshfold/internal/pkg/password"
	"freshfold/internal/usecase/queries"
	"freshfold/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials   = errs.Class("invalid credentials", errs.ErrForbidden)
	ErrAccountInactive      = errs.Class("user inactive", errs.ErrForbidden)
	ErrAuthenticationFailed = errs.Class("authentication failed", errs.ErrValidation)
	ErrTokenGeneration      = errs.New("token generation failed")
	ErrTokenValidation      = errs.Class("token validation failed", errs.ErrForbidden)
)

type LoginResult struct {
	UserID    uuid.UUID
	User      *queries.AuthorizedUserView
	TokenPair *TokenPair
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

//go:generate mockgen -source=auth.go -destination=../../../tests/mock/commands/mock_auth.go -package=commandsmock
type AuthCommands interface {
	Login(ctx context.Context, req reqdto.LoginRequest) (*LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}

type authCommandsImpl struct {
	uow        shared.UnitOfWork
	readStore  queries.UserReadStore
	jwtService *jwt.Service
	clock      clock.Clock
	logger     *slog.Logger
}

func NewAuthCommands(uow shared.UnitOfWork, readStore queries.UserReadStore, jwtService *jwt.Service, clock clock.Clock, logger *slog.Logger) AuthCommands {
	return &authCommandsImpl{
		uow:        uow,
		readStore:  readStore,
		jwtService: jwtService,
		clock:      clock,
		logger:     logger,
	}
}

func (a *authCommandsImpl) Login(ctx context.Context, req reqdto.LoginRequest) (*LoginResult, error) {
	credentials, err := req.ToDomain()
	if err != nil {
		return nil, errs.Mark(err, ErrAuthenticationFailed)
	}

	view, err := a.validateUser(ctx, credentials)
	if err != nil {
		return nil, err
	}

	role, err := user.NewRole(view.Role)
	if err != nil {
		return nil, errs.Mark(err, ErrAuthenticationFailed)
	}

	pair, err := a.issue(view.ID, role)
	if err != nil {
		return nil, err
	}

	err = a.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Users().UpdateLastLogin(ctx, view.ID, a.clock.Now())
	})
	if err != nil {
		// login already succeeded
		a.logger.WarnContext(ctx, "failed to update last login",
			slog.String("user_id", view.ID.String()),
			slog.String("error", err.Error()))
	}

	return &LoginResult{
		UserID:    view.ID,
		User:      view,
		TokenPair: pair,
	}, nil
}

func (a *authCommandsImpl) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := a.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, errs.Mark(err, ErrTokenValidation)
	}

	if claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrTokenValidation
	}

	role, err := user.NewRole(claims.Role)
	if err != nil {
		return nil, errs.Mark(err, ErrTokenValidation)
	}

	view, err := a.readStore.FindByID(ctx, claims.UserID)
	if err != nil || view == nil {
		return nil, ErrTokenValidation
	}
	if !view.IsActive {
		return nil, ErrAccountInactive
	}

	return a.issue(claims.UserID, role)
}

func (a *authCommandsImpl) issue(userID uuid.UUID, role user.Role) (*TokenPair, error) {
	accessToken, err := a.jwtService.GenerateAccessToken(userID, role)
	if err != nil {
		return nil, errs.Mark(err, ErrTokenGeneration)
	}
	refreshToken, err := a.jwtService.GenerateRefreshToken(userID, role)
	if err != nil {
		return nil, errs.Mark(err, ErrTokenGeneration)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (a *authCommandsImpl) validateUser(ctx context.Context, credentials user.Credentials) (*queries.AuthorizedUserView, error) {
	view, hashedPassword, err := a.readStore.FindByEmail(ctx, credentials.Email().Value())
	if err != nil || view == nil {
		// same error as a password mismatch
		return nil, ErrInvalidCredentials
	}

	if !view.IsActive {
		return nil, ErrAccountInactive
	}

	if err := password.ComparePassword(hashedPassword, credentials.Password().Value()); err != nil {
		return nil, ErrInvalidCredentials
	}

	return view, nil
}
