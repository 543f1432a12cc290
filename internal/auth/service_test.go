package auth_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/auth"
)

func TestAuthService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Service Suite")
}

// Mock user repository for testing
type mockUserRepository struct {
	users     map[string]*auth.User
	passwords map[string]string // email -> bcrypt hash
	idByEmail map[string]string
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:     make(map[string]*auth.User),
		passwords: make(map[string]string),
		idByEmail: make(map[string]string),
	}
}

func (m *mockUserRepository) addUser(id, email, password string, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	m.users[id] = &auth.User{ID: id, Email: email, DisplayName: "Test User", IsActive: active}
	m.passwords[email] = string(hash)
	m.idByEmail[email] = id
}

func (m *mockUserRepository) GetPasswordForEmail(email string) (string, string, error) {
	hash, ok := m.passwords[email]
	if !ok {
		return "", "", internal.ErrUserNotFound
	}
	return hash, m.idByEmail[email], nil
}

func (m *mockUserRepository) GetUserByID(userID string) (*auth.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return user, nil
}

var _ = Describe("AuthService", func() {
	var (
		repo    *mockUserRepository
		service *auth.Service
	)

	const (
		accessSecret  = "test-access-secret-0123456789abcdef"
		refreshSecret = "test-refresh-secret-0123456789abcdef"
	)

	newGenerator := func(accessTTL, refreshTTL time.Duration) *auth.JWTTokenGenerator {
		return auth.NewJWTTokenGenerator(accessSecret, refreshSecret, accessTTL, refreshTTL)
	}

	BeforeEach(func() {
		repo = newMockUserRepository()
		repo.addUser("user-1", "dev@docgen.local", "correct-horse", true)
		repo.addUser("user-2", "gone@docgen.local", "whatever", false)
		service = auth.NewService(repo, newGenerator(15*time.Minute, 24*time.Hour), bcrypt.MinCost)
	})

	Describe("Authenticate", func() {
		It("should issue a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "dev@docgen.local", Password: "correct-horse"})
			Expect(err).ToNot(HaveOccurred())
			Expect(tokens.AccessToken).ToNot(BeEmpty())
			Expect(tokens.RefreshToken).ToNot(BeEmpty())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal("user-1"))
			Expect(claims.Email).To(Equal("dev@docgen.local"))
		})

		It("should return the same error for wrong password and unknown email", func() {
			_, badPassword := service.Authenticate(auth.LoginDTO{Email: "dev@docgen.local", Password: "wrong"})
			_, badEmail := service.Authenticate(auth.LoginDTO{Email: "nobody@docgen.local", Password: "correct-horse"})

			Expect(badPassword).To(Equal(internal.ErrInvalidCredentials))
			Expect(badEmail).To(Equal(internal.ErrInvalidCredentials))
		})

		It("should reject empty credentials", func() {
			_, err := service.Authenticate(auth.LoginDTO{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RefreshTokens", func() {
		It("should rotate the pair for a valid refresh token", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "dev@docgen.local", Password: "correct-horse"})
			Expect(err).ToNot(HaveOccurred())

			rotated, err := service.RefreshTokens(tokens.RefreshToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(rotated.AccessToken).ToNot(BeEmpty())
		})

		It("should reject an access token used as a refresh token", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "dev@docgen.local", Password: "correct-horse"})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RefreshTokens(tokens.AccessToken)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("should reject refresh for a deactivated user", func() {
			generator := newGenerator(15*time.Minute, 24*time.Hour)
			refreshToken, err := generator.GenerateRefreshToken("user-2", "gone@docgen.local")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RefreshTokens(refreshToken)
			Expect(err).To(Equal(internal.ErrUserInactive))
		})

		It("should reject an expired refresh token", func() {
			expiredService := auth.NewService(repo, newGenerator(15*time.Minute, -time.Minute), bcrypt.MinCost)
			tokens, err := expiredService.Authenticate(auth.LoginDTO{Email: "dev@docgen.local", Password: "correct-horse"})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RefreshTokens(tokens.RefreshToken)
			Expect(err).To(Equal(internal.ErrTokenExpired))
		})

		It("should reject garbage tokens", func() {
			_, err := service.RefreshTokens("not-a-jwt")
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})

	Describe("ValidateAccessToken", func() {
		It("should reject an expired access token", func() {
			expiredService := auth.NewService(repo, newGenerator(-time.Minute, 24*time.Hour), bcrypt.MinCost)
			tokens, err := expiredService.Authenticate(auth.LoginDTO{Email: "dev@docgen.local", Password: "correct-horse"})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).To(Equal(internal.ErrTokenExpired))
		})

		It("should reject a token signed with the refresh secret", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{Email: "dev@docgen.local", Password: "correct-horse"})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.ValidateAccessToken(tokens.RefreshToken)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})

	Describe("HashPassword", func() {
		It("should produce a verifiable bcrypt hash", func() {
			hash, err := service.HashPassword("s3cret")
			Expect(err).ToNot(HaveOccurred())
			Expect(bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret"))).To(Succeed())
		})
	})
})
