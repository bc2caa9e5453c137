package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"hightech/internal/models"
	"hightech/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LoginFailedMessage is the only login error shown to users.
const LoginFailedMessage = "Login failed. Check email & password."

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Principal identifies a signed-in admin.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is either logged out or logged in as a principal.
type Session struct {
	principal *Principal
}

// LoggedOut is the session without a principal.
func LoggedOut() Session {
	return Session{}
}

// LoggedIn is the session of p.
func LoggedIn(p Principal) Session {
	return Session{principal: &p}
}

func (s Session) LoggedIn() bool {
	return s.principal != nil
}

// Principal returns the signed-in principal, if any.
func (s Session) Principal() (Principal, bool) {
	if s.principal == nil {
		return Principal{}, false
	}
	return *s.principal, true
}

// SessionListener is notified with the principal whose session changed and the new session.
type SessionListener func(p Principal, s Session)

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration
	validate   *validator.Validate

	mu        sync.Mutex
	revoked   map[string]time.Time // token -> expiry
	listeners []SessionListener
}

// NewAuthService creates a new AuthService. Tokens are valid for tokenTTL, 24h when zero.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
		validate:   validator.New(),
		revoked:    make(map[string]time.Time),
	}
}

// RegisterUser hashes the password and stores a new admin account.
func (s *AuthService) RegisterUser(email, password string) (*models.AdminUser, error) {
	user := &models.AdminUser{
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := s.validate.Struct(user); err != nil {
		return nil, fmt.Errorf("invalid admin user: %w", err)
	}

	if existing, err := s.userRepo.GetByEmail(user.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("email '%s' already registered", user.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// SignIn checks the credentials and returns a bearer token for the new session.
func (s *AuthService) SignIn(email, password string) (string, Session, error) {
	user, err := s.userRepo.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		log.Printf("Sign in failed for %s: %v", email, err)
		return "", LoggedOut(), ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", LoggedOut(), ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":     uuid.New().String(),
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(s.tokenDurat).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", LoggedOut(), fmt.Errorf("failed to generate token: %w", err)
	}

	p := Principal{ID: user.ID, Email: user.Email}
	session := LoggedIn(p)
	s.notify(p, session)
	return tokenString, session, nil
}

// SignOut revokes the token and notifies listeners that its principal logged out.
func (s *AuthService) SignOut(tokenString string) error {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	p := principalFromClaims(claims)

	expiry := time.Now().Add(s.tokenDurat)
	if exp, ok := claims["exp"].(float64); ok {
		expiry = time.Unix(int64(exp), 0)
	}

	s.mu.Lock()
	now := time.Now()
	for t, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, t)
		}
	}
	s.revoked[tokenString] = expiry
	s.mu.Unlock()

	s.notify(p, LoggedOut())
	return nil
}

// OnSessionChanged registers a listener for sign in and sign out.
func (s *AuthService) OnSessionChanged(l SessionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *AuthService) notify(p Principal, session Session) {
	s.mu.Lock()
	listeners := make([]SessionListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(p, session)
	}
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	s.mu.Lock()
	_, revoked := s.revoked[tokenString]
	s.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("%w: signed out", ErrInvalidToken)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// Resolve maps a bearer token to its session. Invalid tokens are logged out.
func (s *AuthService) Resolve(tokenString string) Session {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return LoggedOut()
	}
	p := principalFromClaims(claims)
	if p.ID == "" {
		return LoggedOut()
	}
	return LoggedIn(p)
}

func principalFromClaims(claims jwt.MapClaims) Principal {
	id, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	return Principal{ID: id, Email: email}
}
