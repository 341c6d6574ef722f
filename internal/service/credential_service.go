package service

import (
	"errors"
	"time"

	"github.com/Baaaki/travel-log/internal/utils"
)

// CredentialConfig is the process-wide secret material, injected once at startup
type CredentialConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	HashAlgorithm string
	BcryptCost    int
}

type CredentialService struct {
	cfg CredentialConfig
}

func NewCredentialService(cfg CredentialConfig) (*CredentialService, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("credential service: JWT secret is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("credential service: token TTL must be positive")
	}
	if cfg.HashAlgorithm != utils.AlgorithmBcrypt && cfg.HashAlgorithm != utils.AlgorithmArgon2id {
		return nil, utils.ErrUnknownAlgorithm
	}
	return &CredentialService{cfg: cfg}, nil
}

func (s *CredentialService) HashPassword(plain string) (string, error) {
	return utils.HashPassword(plain, s.cfg.HashAlgorithm, s.cfg.BcryptCost)
}

// VerifyPassword works for hashes of either supported algorithm
func (s *CredentialService) VerifyPassword(plain, hash string) (bool, error) {
	return utils.VerifyPassword(plain, hash)
}

func (s *CredentialService) IssueToken(principal utils.Principal) (string, error) {
	return utils.GenerateToken(principal, s.cfg.JWTSecret, s.cfg.TokenTTL)
}

// VerifyToken returns utils.ErrInvalidToken or utils.ErrExpiredToken on failure
func (s *CredentialService) VerifyToken(token string) (utils.Principal, error) {
	claims, err := utils.ValidateToken(token, s.cfg.JWTSecret)
	if err != nil {
		return utils.Principal{}, err
	}
	return claims.Principal(), nil
}
