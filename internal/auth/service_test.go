package auth_test

import (
	"errors"
	"testing"

	"github.com/accessly/lock-management/internal/auth"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Service Suite")
}

type mockUser struct {
	user         *auth.User
	passwordHash string
	active       bool
}

// MockUserRepository implements auth.UserRepository for testing
type MockUserRepository struct {
	users      map[string]mockUser
	shouldFail bool
	failError  error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]mockUser)}
}

func (m *MockUserRepository) AddUser(u *auth.User, password string, active bool) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	Expect(err).NotTo(HaveOccurred())
	m.users[u.Email] = mockUser{user: u, passwordHash: string(hash), active: active}
}

func (m *MockUserRepository) GetPasswordForEmail(email string) (string, int64, bool, error) {
	if m.shouldFail {
		return "", 0, false, m.failError
	}
	mu, ok := m.users[email]
	if !ok {
		return "", 0, false, errors.New("user not found")
	}
	return mu.passwordHash, mu.user.ID, mu.active, nil
}

func (m *MockUserRepository) GetUserByID(userID int64) (*auth.User, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	for _, mu := range m.users {
		if mu.user.ID == userID {
			return mu.user, nil
		}
	}
	return nil, nil
}

var _ = Describe("Auth Service", func() {
	var (
		mockRepo *MockUserRepository
		tokenGen *auth.JWTTokenGenerator
		service  *auth.Service
	)

	BeforeEach(func() {
		mockRepo = NewMockUserRepository()
		tokenGen = auth.NewJWTTokenGenerator(
			"test-access-secret-thats-long-enough!!",
			"test-refresh-secret-thats-long-enough!",
		)
		service = auth.NewService(mockRepo, tokenGen)

		mockRepo.AddUser(&auth.User{
			ID:    1,
			Email: "renata@accessly.dev",
			Name:  "Renata",
		}, "correct-password", true)
	})

	Describe("Authenticate", func() {
		It("should issue a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "renata@accessly.dev",
				Password: "correct-password",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())
			Expect(tokens.AccessToken).NotTo(Equal(tokens.RefreshToken))
		})

		It("should embed the user in the access token claims", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "renata@accessly.dev",
				Password: "correct-password",
			})
			Expect(err).NotTo(HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal("1"))
			Expect(claims.Email).To(Equal("renata@accessly.dev"))
		})

		It("should reject a wrong password", func() {
			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "renata@accessly.dev",
				Password: "wrong-password",
			})
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("should reject an unknown email", func() {
			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "nobody@accessly.dev",
				Password: "correct-password",
			})
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("should reject an inactive user", func() {
			mockRepo.AddUser(&auth.User{
				ID:    2,
				Email: "former@accessly.dev",
				Name:  "Former Employee",
			}, "correct-password", false)

			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "former@accessly.dev",
				Password: "correct-password",
			})
			Expect(err).To(MatchError(auth.ErrUserInactive))
		})

		It("should reject missing fields", func() {
			_, err := service.Authenticate(auth.LoginDTO{Email: "renata@accessly.dev"})
			Expect(err).To(HaveOccurred())

			_, err = service.Authenticate(auth.LoginDTO{Password: "correct-password"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RefreshTokens", func() {
		var tokens auth.AuthTokens

		BeforeEach(func() {
			var err error
			tokens, err = service.Authenticate(auth.LoginDTO{
				Email:    "renata@accessly.dev",
				Password: "correct-password",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should rotate a valid refresh token", func() {
			fresh, err := service.RefreshTokens(tokens.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.AccessToken).NotTo(BeEmpty())
			Expect(fresh.RefreshToken).NotTo(BeEmpty())

			claims, err := service.ValidateAccessToken(fresh.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal("1"))
		})

		It("should reject garbage", func() {
			_, err := service.RefreshTokens("not-a-token")
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("should reject a token for a user that no longer exists", func() {
			delete(mockRepo.users, "renata@accessly.dev")

			_, err := service.RefreshTokens(tokens.RefreshToken)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})
	})

	Describe("ValidateAccessToken", func() {
		It("should reject a token signed with a different secret", func() {
			other := auth.NewJWTTokenGenerator(
				"some-other-access-secret-long-enough!!",
				"some-other-refresh-secret-long-enough!",
			)
			forged, err := other.GenerateAccessToken("1", "renata@accessly.dev")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ValidateAccessToken(forged)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})
	})

	Describe("GetUser", func() {
		It("should load the principal by id", func() {
			u, err := service.GetUser(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).NotTo(BeNil())
			Expect(u.Name).To(Equal("Renata"))
		})
	})
})
