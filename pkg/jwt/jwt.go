package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"chat-system/config"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType 区分访问令牌与刷新令牌
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrEmptyToken     = errors.New("token is empty")
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// JWTService 提供 JWT 生成与校验能力
// 使用对称密钥 HS256，Subject 存放用户ID
type JWTService struct {
	secretKey  []byte        // 对称密钥
	issuer     string        // 签发者
	accessTTL  time.Duration // 访问令牌有效期
	refreshTTL time.Duration // 刷新令牌有效期
}

// CustomClaims 自定义声明载荷
type CustomClaims struct {
	TokenType TokenType `json:"typ"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	jwtv5.RegisteredClaims
}

// UserID 解析 Subject 中的用户ID
func (c *CustomClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return uint(id), nil
}

// NewJWTService 创建 JWT 服务
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secretKey:  []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.ExpireTime,
		refreshTTL: cfg.RefreshExpireTime,
	}
}

// AccessTTL 访问令牌有效期，即 AuthResponse.expiresIn
func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

// GenerateAccessToken 生成访问令牌
func (s *JWTService) GenerateAccessToken(userID uint, username, role string) (string, error) {
	return s.generate(TokenTypeAccess, userID, username, role, s.accessTTL)
}

// GenerateRefreshToken 生成刷新令牌，只携带用户标识
func (s *JWTService) GenerateRefreshToken(userID uint, username string) (string, error) {
	return s.generate(TokenTypeRefresh, userID, username, "", s.refreshTTL)
}

func (s *JWTService) generate(typ TokenType, userID uint, username, role string, ttl time.Duration) (string, error) {
	if userID == 0 {
		return "", errors.New("userID is required")
	}

	now := time.Now()
	claims := &CustomClaims{
		TokenType: typ,
		Username:  username,
		Role:      role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

// ValidateToken 校验签名、签发者与有效期
func (s *JWTService) ValidateToken(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}
	claims := &CustomClaims{}
	parsedToken, err := jwtv5.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwtv5.Token) (interface{}, error) {
			if token.Method != jwtv5.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		jwtv5.WithIssuer(s.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken 校验访问令牌
func (s *JWTService) ValidateAccessToken(tokenString string) (*CustomClaims, error) {
	return s.validateType(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken 校验刷新令牌
func (s *JWTService) ValidateRefreshToken(tokenString string) (*CustomClaims, error) {
	return s.validateType(tokenString, TokenTypeRefresh)
}

func (s *JWTService) validateType(tokenString string, want TokenType) (*CustomClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != want {
		return nil, ErrWrongTokenType
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
