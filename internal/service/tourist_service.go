package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/models"
	"github.com/Baaaki/travel-log/internal/repository"
	"github.com/Baaaki/travel-log/internal/utils"
	"github.com/Baaaki/travel-log/pkg/logger"
	"go.uber.org/zap"
)

const (
	maxEmailLength    = 100
	maxNameLength     = 100
	maxPasswordLength = 128
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type RegisterInput struct {
	Name     *string
	Email    string
	Password string
}

// TouristPatch holds the fields to change; nil means unchanged
type TouristPatch struct {
	Name     *string
	Email    *string
	Password *string
}

type AuthResult struct {
	Tourist models.TouristOutput `json:"tourist"`
	Token   string               `json:"token"`
}

type TouristService struct {
	repo        *repository.TouristRepository
	credentials *CredentialService
	hooks       Hooks
}

func NewTouristService(repo *repository.TouristRepository, credentials *CredentialService, hooks Hooks) *TouristService {
	return &TouristService{
		repo:        repo,
		credentials: credentials,
		hooks:       hooks,
	}
}

func (s *TouristService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	start := time.Now()

	email := normalizeEmail(in.Email)
	if err := validateRegisterInput(in.Name, email, in.Password); err != nil {
		logger.Log.Warn("Registration validation failed",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to check email existence",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, err
	}
	if existing != nil {
		logger.Log.Warn("Email already exists", zap.String("email", email))
		return nil, touristExists(email)
	}

	hashStart := time.Now()
	hash, err := s.credentials.HashPassword(in.Password)
	if err != nil {
		logger.Log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}
	hashDuration := time.Since(hashStart)

	tourist := &models.Tourist{
		Name:     in.Name,
		Email:    email,
		Password: hash,
	}
	if err := s.repo.Create(ctx, tourist); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, touristExists(email)
		}
		logger.Log.Error("Failed to create tourist in database",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, err
	}

	token, err := s.credentials.IssueToken(utils.Principal{ID: tourist.ID, Email: tourist.Email})
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.Uint("tourist_id", tourist.ID),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("Tourist registered successfully",
		zap.Uint("tourist_id", tourist.ID),
		zap.String("email", email),
		zap.Duration("hash_duration", hashDuration),
		zap.Duration("total_duration", time.Since(start)),
	)
	s.hooks.transitioned(ctx, broker.EventCreated, models.EntityTourist, tourist.ID, uintPtr(tourist.ID))

	return &AuthResult{
		Tourist: models.SanitizeTourist(tourist),
		Token:   token,
	}, nil
}

// Login returns only a token, never the stored record
func (s *TouristService) Login(ctx context.Context, email, password string) (string, error) {
	start := time.Now()
	email = normalizeEmail(email)

	tourist, err := s.repo.FindActiveByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to get tourist by email",
			zap.String("email", email),
			zap.Error(err),
		)
		return "", err
	}
	if tourist == nil {
		logger.Log.Warn("Login failed: tourist not found", zap.String("email", email))
		return "", apperror.NotFound(apperror.CodeTouristNotFound, "no tourist with this email")
	}

	valid, err := s.credentials.VerifyPassword(password, tourist.Password)
	if err != nil {
		logger.Log.Error("Failed to verify password",
			zap.Uint("tourist_id", tourist.ID),
			zap.Error(err),
		)
		return "", err
	}
	if !valid {
		logger.Log.Warn("Login failed: invalid password",
			zap.Uint("tourist_id", tourist.ID),
		)
		return "", apperror.Unauthorized(apperror.CodeInvalidCredentials, "invalid email or password")
	}

	token, err := s.credentials.IssueToken(utils.Principal{ID: tourist.ID, Email: tourist.Email})
	if err != nil {
		return "", err
	}

	logger.Log.Info("Tourist logged in successfully",
		zap.Uint("tourist_id", tourist.ID),
		zap.Duration("total_duration", time.Since(start)),
	)

	return token, nil
}

func (s *TouristService) Get(ctx context.Context, id uint) (*models.TouristOutput, error) {
	tourist, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	out := models.SanitizeTourist(tourist)
	return &out, nil
}

func (s *TouristService) List(ctx context.Context) ([]models.TouristOutput, error) {
	tourists, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return models.SanitizeTourists(tourists), nil
}

// Update always targets the authenticated principal
func (s *TouristService) Update(ctx context.Context, principalID uint, patch TouristPatch) (*models.TouristOutput, error) {
	tourist, err := s.loadActive(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if len(*patch.Name) > maxNameLength {
			return nil, apperror.Validation("name too long")
		}
		tourist.Name = patch.Name
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != tourist.Email {
			existing, err := s.repo.FindByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, touristExists(email)
			}
		}
		tourist.Email = email
	}

	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return nil, err
		}
		hash, err := s.credentials.HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		tourist.Password = hash
	}

	if err := s.repo.Save(ctx, tourist); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, touristExists(tourist.Email)
		}
		return nil, err
	}

	logger.Log.Info("Tourist updated",
		zap.Uint("tourist_id", tourist.ID),
		zap.Bool("password_changed", patch.Password != nil),
	)
	s.hooks.transitioned(ctx, broker.EventUpdated, models.EntityTourist, tourist.ID, uintPtr(tourist.ID))

	out := models.SanitizeTourist(tourist)
	return &out, nil
}

// Delete removes the principal's own account and cascades to their visits
func (s *TouristService) Delete(ctx context.Context, principalID uint, hard bool) (*models.TouristOutput, error) {
	tourist, err := s.repo.FindByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if tourist == nil {
		return nil, touristNotFound(principalID)
	}

	var cascaded int64
	if hard {
		cascaded, err = s.repo.HardDeleteCascade(ctx, principalID)
	} else {
		if tourist.Deleted {
			return nil, touristDeleted(principalID)
		}
		cascaded, err = s.repo.SoftDeleteCascade(ctx, principalID)
	}
	if err != nil {
		logger.Log.Error("Failed to delete tourist",
			zap.Uint("tourist_id", principalID),
			zap.Bool("hard", hard),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("Tourist deleted",
		zap.Uint("tourist_id", principalID),
		zap.Bool("hard", hard),
		zap.Int64("cascaded_visits", cascaded),
	)
	s.hooks.deleted(ctx, models.EntityTourist, principalID, uintPtr(principalID), uintPtr(principalID), hard, cascaded)

	out := models.SanitizeTourist(tourist)
	return &out, nil
}

func (s *TouristService) loadActive(ctx context.Context, id uint) (*models.Tourist, error) {
	tourist, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tourist == nil {
		return nil, touristNotFound(id)
	}
	if tourist.Deleted {
		return nil, touristDeleted(id)
	}
	return tourist, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegisterInput(name *string, email, password string) error {
	if name != nil && len(*name) > maxNameLength {
		return apperror.Validation("name too long")
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(password)
}

func validateEmail(email string) error {
	if len(email) > maxEmailLength {
		return apperror.Validation("email too long")
	}
	if !emailRegex.MatchString(email) {
		return apperror.Validation("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperror.Validation("password is required")
	}
	if len(password) > maxPasswordLength {
		return apperror.Validation("password too long")
	}
	return nil
}

func touristNotFound(id uint) error {
	return apperror.NotFound(apperror.CodeTouristNotFound, fmt.Sprintf("tourist %d not found", id))
}

func touristDeleted(id uint) error {
	return apperror.Unauthorized(apperror.CodeTouristDeleted, fmt.Sprintf("tourist %d is deleted", id))
}

func touristExists(email string) error {
	return apperror.AlreadyExists(apperror.CodeTouristAlreadyExists,
		fmt.Sprintf("a tourist with email %q already exists", email))
}
