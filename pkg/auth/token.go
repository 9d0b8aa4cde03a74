package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/authcore/pkg/config"
	apperrors "github.com/authcore/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeOAuth 机器客户端令牌类型
const TokenTypeOAuth = "oauth"

// Claims 令牌声明. 人员令牌带 userId/username, 客户端令牌带 clientId/clientName/scopes/type.
type Claims struct {
	UserID     int64    `json:"userId,omitempty"`
	Username   string   `json:"username,omitempty"`
	ClientID   string   `json:"clientId,omitempty"`
	ClientName string   `json:"clientName,omitempty"`
	Scopes     []string `json:"scopes,omitempty"`
	Type       string   `json:"type,omitempty"`
	IssuedAt   int64    `json:"issuedAt"`
	ExpiresAt  int64    `json:"expiresAt"`
}

// IsClient 是否为客户端令牌
func (c *Claims) IsClient() bool {
	return c.Type == TokenTypeOAuth
}

// Subject 主体标识
func (c *Claims) Subject() string {
	if c.IsClient() {
		return c.ClientID
	}
	return fmt.Sprintf("%d", c.UserID)
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuer() (string, error)              { return "", nil }
func (c *Claims) GetSubject() (string, error)             { return c.Subject(), nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// TokenCodec HS256 令牌签发与校验, 无状态
type TokenCodec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// CodecOption 编解码器选项
type CodecOption func(*TokenCodec)

// WithClock 替换时钟, 测试使用
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec 创建令牌编解码器
func NewTokenCodec(cfg *config.TokenConfig, opts ...CodecOption) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: token secret is empty")
	}
	lifetime, err := ParseLifetime(cfg.Lifetime)
	if err != nil {
		return nil, err
	}

	c := &TokenCodec{
		secret:   []byte(cfg.Secret),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock),
		// 时钟为整秒, 一秒宽限使 expiresAt == now 仍然有效
		jwt.WithLeeway(time.Second),
	)
	return c, nil
}

// Lifetime 默认有效期
func (c *TokenCodec) Lifetime() time.Duration {
	return c.lifetime
}

// clock 秒级精度的当前时间
func (c *TokenCodec) clock() time.Time {
	return time.Unix(c.now().Unix(), 0)
}

// Sign 签发令牌, lifetime<=0 时使用默认有效期
func (c *TokenCodec) Sign(claims Claims, lifetime time.Duration) (string, *Claims, error) {
	if lifetime <= 0 {
		lifetime = c.lifetime
	}
	now := c.clock()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(lifetime).Unix()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, &claims, nil
}

// Verify 校验令牌. 过期返回 ErrTokenExpired, 其余失败统一为 ErrTokenMalformed.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenMalformed
	}
	if !token.Valid {
		return nil, apperrors.ErrTokenMalformed
	}
	return claims, nil
}

// Refresh 重新签发同一主体的令牌, 只接受仍然有效的令牌
func (c *TokenCodec) Refresh(tokenString string, lifetime time.Duration) (string, *Claims, error) {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return "", nil, err
	}
	return c.Sign(*claims, lifetime)
}
