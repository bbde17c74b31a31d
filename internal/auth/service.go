// README: Credential checking against the seeded user directory.
package auth

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"cargoflow/internal/types"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleDriver   Role = "driver"
)

// User is a directory entry. DriverID links a driver account to its
// fleet record.
type User struct {
	ID           types.ID  `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	DriverID     *types.ID `json:"driverId,omitempty"`
	passwordHash []byte
}

// SeedUsers is the demo directory. All accounts use the password
// "password".
func SeedUsers() []User {
	driverID := types.ID(1)
	return []User{
		{ID: 1, Email: "customer@example.com", Name: "Customer One", Role: RoleCustomer, passwordHash: mustHash("password")},
		{ID: 2, Email: "admin@example.com", Name: "Admin One", Role: RoleAdmin, passwordHash: mustHash("password")},
		{ID: 3, Email: "driver@example.com", Name: "John Doe", Role: RoleDriver, DriverID: &driverID, passwordHash: mustHash("password")},
	}
}

func mustHash(password string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}

// Service authenticates users and hands out tokens.
type Service struct {
	mu      sync.RWMutex
	byEmail map[string]User
	tokens  *Manager
}

func NewService(users []User, tokens *Manager) *Service {
	byEmail := make(map[string]User, len(users))
	for _, u := range users {
		byEmail[strings.ToLower(u.Email)] = u
	}
	return &Service{byEmail: byEmail, tokens: tokens}
}

// Login checks the credentials and returns a signed token plus the
// user record. Unknown emails and wrong passwords are indistinguishable
// to the caller.
func (s *Service) Login(email, password string) (string, User, error) {
	s.mu.RLock()
	u, ok := s.byEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return "", User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return "", User{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", User{}, err
	}
	return token, u, nil
}

// Get looks a user up by id, for handlers resolving token claims.
func (s *Service) Get(id types.ID) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
