package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/you/crmauth/domain"
)

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	secretKey       []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	mfaTokenTTL     time.Duration
	now             func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, issuer string, accessTTL, refreshTTL, mfaTTL time.Duration) domain.TokenService {
	return &JWTServiceImpl{
		secretKey:       []byte(secretKey),
		issuer:          issuer,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		mfaTokenTTL:     mfaTTL,
		now:             time.Now,
	}
}

// generateJTI creates a unique JWT ID
func (j *JWTServiceImpl) generateJTI() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// AccessTokenTTL implements domain.TokenService
func (j *JWTServiceImpl) AccessTokenTTL() time.Duration {
	return j.accessTokenTTL
}

// GenerateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) GenerateAccessToken(subject domain.TokenSubject) (string, error) {
	return j.sign(subject, domain.AccessToken, j.accessTokenTTL)
}

// GenerateRefreshToken implements domain.TokenService
func (j *JWTServiceImpl) GenerateRefreshToken(subject domain.TokenSubject) (string, error) {
	return j.sign(subject, domain.RefreshToken, j.refreshTokenTTL)
}

// GenerateMFAToken issues the short-lived challenge token of an MFA-gated login
func (j *JWTServiceImpl) GenerateMFAToken(subject domain.TokenSubject) (string, error) {
	subject.SessionID = ""
	return j.sign(subject, domain.MFAToken, j.mfaTokenTTL)
}

func (j *JWTServiceImpl) sign(subject domain.TokenSubject, typ domain.TokenType, ttl time.Duration) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"sub":            subject.UserID,
		"email":          subject.Email,
		"organizationId": subject.OrganizationID,
		"role":           string(subject.Role),
		"typ":            string(typ),
		"iss":            j.issuer,
		"iat":            now.Unix(),
		"exp":            now.Add(ttl).Unix(),
		"jti":            j.generateJTI(),
	}
	if subject.SessionID != "" {
		claims["sessionId"] = subject.SessionID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.AccessToken)
}

// ValidateRefreshToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateRefreshToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.RefreshToken)
}

// ValidateMFAToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateMFAToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.MFAToken)
}

// validateToken validates a JWT token of the expected type and returns claims
func (j *JWTServiceImpl) validateToken(tokenString string, expected domain.TokenType) (*domain.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenMalformed
		}
		return j.secretKey, nil
	},
		jwt.WithIssuer(j.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, domain.ErrTokenMalformed
		}
		return nil, domain.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrTokenMalformed
	}

	typ, _ := claims["typ"].(string)
	if domain.TokenType(typ) != expected {
		return nil, domain.ErrTokenInvalid
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, domain.ErrTokenMalformed
	}

	role, ok := claims["role"].(string)
	if !ok {
		return nil, domain.ErrTokenMalformed
	}

	orgID, ok := claims["organizationId"].(string)
	if !ok {
		return nil, domain.ErrTokenMalformed
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, domain.ErrTokenMalformed
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, domain.ErrTokenMalformed
	}

	tokenClaims := &domain.TokenClaims{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           domain.Role(role),
		Type:           expected,
		IssuedAt:       int64(iat),
		ExpiresAt:      int64(exp),
	}
	if email, ok := claims["email"].(string); ok {
		tokenClaims.Email = email
	}
	if sessionID, ok := claims["sessionId"].(string); ok {
		tokenClaims.SessionID = sessionID
	}
	if jti, ok := claims["jti"].(string); ok {
		tokenClaims.ID = jti
	}
	if expected == domain.MFAToken && tokenClaims.ID == "" {
		return nil, domain.ErrTokenMalformed
	}

	if expected != domain.MFAToken && tokenClaims.SessionID == "" {
		return nil, domain.ErrTokenMalformed
	}

	return tokenClaims, nil
}
