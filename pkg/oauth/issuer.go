package oauth

import (
	"context"
	"strings"
	"time"

	"github.com/authcore/pkg/auth"
	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/errors"
	"github.com/authcore/pkg/metrics"
	"github.com/authcore/pkg/rbac"
)

// Issuer 客户端凭证模式的令牌签发
type Issuer struct {
	repo            ClientRepository
	hasher          *auth.Hasher
	codec           *auth.TokenCodec
	defaultLifetime time.Duration
	metrics         *metrics.Metrics
}

// NewIssuer 创建签发器
func NewIssuer(repo ClientRepository, hasher *auth.Hasher, codec *auth.TokenCodec, cfg *config.OAuthConfig, m *metrics.Metrics) *Issuer {
	lifetime := time.Duration(cfg.DefaultLifetime) * time.Second
	if lifetime <= 0 {
		lifetime = codec.Lifetime()
	}
	return &Issuer{
		repo:            repo,
		hasher:          hasher,
		codec:           codec,
		defaultLifetime: lifetime,
		metrics:         m,
	}
}

// CheckGrantType 只支持 client_credentials, 需在校验其余字段之前调用
func (i *Issuer) CheckGrantType(grantType string) error {
	if grantType != GrantClientCredentials {
		i.metrics.AuthFailure("unsupported_grant_type")
		return errors.ErrUnsupportedGrantType
	}
	return nil
}

// Issue 校验客户端并签发令牌.
// 客户端不存在与密钥错误返回同一个错误; 停用只在密钥正确后才暴露.
func (i *Issuer) Issue(ctx context.Context, req Request) (*TokenResponse, error) {
	if err := i.CheckGrantType(req.GrantType); err != nil {
		return nil, err
	}

	client, err := i.repo.FindClientByClientID(ctx, req.ClientID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if client == nil {
		i.hasher.Burn(req.ClientSecret)
		i.metrics.AuthFailure("invalid_client")
		return nil, errors.ErrInvalidClient
	}
	if !i.hasher.VerifySecret(req.ClientSecret, client.SecretHash) {
		i.metrics.AuthFailure("invalid_client")
		return nil, errors.ErrInvalidClient
	}
	if !client.Enabled {
		i.metrics.AuthFailure("client_disabled")
		return nil, errors.ErrClientDisabled
	}

	granted, err := i.clientScopes(ctx, client)
	if err != nil {
		return nil, err
	}
	scopes, err := narrow(granted, req.Scope)
	if err != nil {
		i.metrics.AuthFailure("scope_exceeded")
		return nil, err
	}

	lifetime := time.Duration(client.TokenLifetimeSeconds) * time.Second
	if lifetime <= 0 {
		lifetime = i.defaultLifetime
	}
	token, claims, err := i.codec.Sign(auth.Claims{
		ClientID:   client.ClientID,
		ClientName: client.Name,
		Scopes:     scopes,
		Type:       auth.TokenTypeOAuth,
	}, lifetime)
	if err != nil {
		return nil, errors.Internal(err)
	}
	i.metrics.TokenIssued("client")

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   claims.ExpiresAt - claims.IssuedAt,
		Scope:       strings.Join(scopes, " "),
	}, nil
}

// clientScopes 客户端绑定的启用权限组的权限并集
func (i *Issuer) clientScopes(ctx context.Context, client *Client) ([]string, error) {
	if len(client.GroupIDs) == 0 {
		return []string{}, nil
	}
	groups, err := i.repo.FindEnabledPermissionGroupsByIDs(ctx, client.GroupIDs)
	if err != nil {
		return nil, errors.Internal(err)
	}
	sets := make([][]string, 0, len(groups))
	for _, g := range groups {
		if g.Enabled {
			sets = append(sets, g.Permissions)
		}
	}
	scopes := rbac.Union(sets...)
	for _, s := range scopes {
		if s == auth.WildcardPermission {
			return []string{auth.WildcardPermission}, nil
		}
	}
	return scopes, nil
}

// narrow 请求的 scope 与授予集合取交集, 交集为空直接拒绝
func narrow(granted []string, requested string) ([]string, error) {
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		return granted, nil
	}

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, s := range fields {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		if auth.MatchesAny(granted, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errors.ErrScopeExceeded
	}
	return out, nil
}
