package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"userapi/internal/models"
	"userapi/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds the token and hashing parameters for AuthService.
type AuthConfig struct {
	JWTSecret string
	// TokenTTL of zero issues tokens that never expire; they stay valid
	// until logged out.
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService handles registration, login and session tokens.
type AuthService struct {
	userRepo   repositories.UserRepository
	events     EventPublisher
	validate   *validator.Validate
	jwtSecret  []byte
	tokenDurat time.Duration
	bcryptCost int
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(userRepo repositories.UserRepository, cfg AuthConfig, events EventPublisher) *AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:   userRepo,
		events:     events,
		validate:   NewValidator(),
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenDurat: cfg.TokenTTL,
		bcryptCost: cost,
	}
}

// HashPassword returns the bcrypt hash of password. Passwords bcrypt
// cannot hash because of their byte length fail as a ValidationError.
func (s *AuthService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", &ValidationError{Fields: map[string]string{"Password": "max"}}
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Register validates req, hashes the password and stores the new user.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Normalize()
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	if existing, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Age:      req.Age,
		Tokens:   []models.Token{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	publish(s.events, EventUserRegistered, user)
	return user, nil
}

// FindByCredentials returns the user owning email when password matches.
func (s *AuthService) FindByCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			log.Printf("Credential lookup failed: %v", err)
		}
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GenerateAuthToken signs a new token for user and records it on the user.
func (s *AuthService) GenerateAuthToken(ctx context.Context, user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"jti":     uuid.New().String(),
		"iat":     now.Unix(),
	}
	if s.tokenDurat > 0 {
		claims["exp"] = now.Add(s.tokenDurat).Unix()
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.userRepo.AddToken(ctx, user.ID, tokenString); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	user.AddToken(tokenString)
	return tokenString, nil
}

// Login verifies the credentials and issues a new session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.GenerateAuthToken(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
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
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// Authenticate resolves a bearer token to the user holding it. The token
// must be correctly signed and still listed among the user's sessions.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, fmt.Errorf("%w: token has no user_id", ErrUnauthenticated)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", ErrUnauthenticated, userID)
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if !user.HasToken(tokenString) {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}
	return user, nil
}

// Logout revokes the single token used for the current request.
func (s *AuthService) Logout(ctx context.Context, user *models.User, token string) error {
	if err := s.userRepo.RemoveToken(ctx, user.ID, token); err != nil {
		return fmt.Errorf("failed to logout user %s: %w", user.ID, err)
	}
	user.RemoveToken(token)
	return nil
}

// LogoutAll revokes every token of user.
func (s *AuthService) LogoutAll(ctx context.Context, user *models.User) error {
	if err := s.userRepo.ClearTokens(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to logout user %s everywhere: %w", user.ID, err)
	}
	user.ClearTokens()
	return nil
}
