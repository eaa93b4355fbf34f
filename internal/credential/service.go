package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Repository is the persistence surface for credentials.
type Repository interface {
	ForMethod(method Method) ([]OwnerCredential, error)
	Upsert(userID int64, method Method, codeHash string) error
	UserExists(userID int64) (bool, error)
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Resolve maps a raw code to its owning identity. Codes are stored as
// one-way salted hashes, so there is no index to hit: every enrolled
// credential for the method is tested in turn. That is O(enrolled users)
// and accepted at this population scale. A miss returns (nil, nil); the
// caller cannot tell a wrong code from an unknown one.
func (s *Service) Resolve(method Method, rawCode string) (*Identity, error) {
	if rawCode == "" {
		return nil, nil
	}

	creds, err := s.repo.ForMethod(method)
	if err != nil {
		return nil, fmt.Errorf("load credentials for method %s: %w", method, err)
	}

	for _, c := range creds {
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(rawCode)) == nil {
			return &Identity{ID: c.UserID, Name: c.Name}, nil
		}
	}
	return nil, nil
}

// RotateCode issues a fresh code for the user and method, replacing any
// previous one. The raw value is returned exactly once; only its hash is
// stored.
func (s *Service) RotateCode(userID int64, method Method) (string, error) {
	exists, err := s.repo.UserExists(userID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrUserNotFound
	}

	raw, err := s.generateCode(method)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	if err := s.repo.Upsert(userID, method, string(hash)); err != nil {
		return "", fmt.Errorf("store credential: %w", err)
	}

	s.logger.Info("credential rotated", "user_id", userID, "method", method)
	return raw, nil
}

// generateCode draws a code and re-draws while it collides with any live
// credential, so Resolve stays unambiguous.
func (s *Service) generateCode(method Method) (string, error) {
	for {
		var (
			raw string
			err error
		)
		switch method {
		case MethodKeypad:
			raw, err = randomKeypadCode()
		case MethodBadge:
			raw, err = randomBadgeToken()
		default:
			return "", ErrUnknownMethod
		}
		if err != nil {
			return "", err
		}

		owner, err := s.Resolve(method, raw)
		if err != nil {
			return "", err
		}
		if owner == nil {
			return raw, nil
		}
		s.logger.Debug("generated code collided, re-drawing", "method", method)
	}
}

// randomKeypadCode returns six decimal digits, zero-padded.
func randomKeypadCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// randomBadgeToken returns a 64-character hex token.
func randomBadgeToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
