package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = apperr.Unauthorized("Invalid credentials")

// Claims is the JWT payload issued at login and registration.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=tutor student"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, secret string, ttl time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// VerifyPassword compares a plain password with a hashed password
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateJWT signs a token carrying the user id and role.
func (s *AuthService) GenerateJWT(u models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: u.ID.Hex(),
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseJWT validates signature, algorithm and expiry and returns the caller.
func (s *AuthService) ParseJWT(tokenString string) (Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Actor{}, apperr.Unauthorized("Token expired")
		}
		return Actor{}, apperr.Unauthorized("Invalid token")
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil || !models.ValidRole(claims.Role) {
		return Actor{}, apperr.Unauthorized("Invalid token payload")
	}
	return Actor{ID: id, Role: claims.Role}, nil
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	// Check if user already exists
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, apperr.BadRequest("Email already in use")
	} else if !apperr.IsNotFound(err) {
		return AuthResult{}, apperr.Internal(err)
	}

	hashedPassword, err := HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	now := s.now()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Email:     in.Email,
		Password:  hashedPassword,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Insert(ctx, &user); err != nil {
		// lost a race with a concurrent registration
		if apperr.IsDuplicate(err) {
			return AuthResult{}, apperr.BadRequest("Email already in use")
		}
		return AuthResult{}, apperr.Internal(err)
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.Hex()), zap.String("role", user.Role))
	return AuthResult{Token: token, User: user}, nil
}

// Login authenticates a user and returns a JWT with role info
func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return AuthResult{}, errInvalidCredentials
		}
		return AuthResult{}, apperr.Internal(err)
	}
	if !VerifyPassword(in.Password, user.Password) {
		return AuthResult{}, errInvalidCredentials
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, &user); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	return AuthResult{Token: token, User: user}, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, actor Actor) (models.User, error) {
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return models.User{}, notFoundOr(err, "User not found")
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, in ChangePasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	if !VerifyPassword(in.CurrentPassword, user.Password) {
		return apperr.BadRequest("Current password is incorrect")
	}

	hashed, err := HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	user.Password = hashed
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, &user); err != nil {
		return apperr.Internal(fmt.Errorf("update password: %w", err))
	}
	return nil
}
