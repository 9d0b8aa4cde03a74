package oauth

import "context"

// GrantClientCredentials 唯一支持的授权类型
const GrantClientCredentials = "client_credentials"

// Client 机器客户端
type Client struct {
	ID                   int64
	ClientID             string
	Name                 string
	SecretHash           string
	Enabled              bool
	TokenLifetimeSeconds int64
	GroupIDs             []int64
}

// PermissionGroup 权限组, 客户端通过绑定权限组获得权限
type PermissionGroup struct {
	ID          int64
	Key         string
	Name        string
	Permissions []string
	Enabled     bool
}

// ClientRepository 客户端数据访问
type ClientRepository interface {
	// FindClientByClientID 不存在时返回 nil, nil
	FindClientByClientID(ctx context.Context, clientID string) (*Client, error)
	// FindEnabledPermissionGroupsByIDs 只返回启用的权限组
	FindEnabledPermissionGroupsByIDs(ctx context.Context, ids []int64) ([]PermissionGroup, error)
}

// Request 令牌请求
type Request struct {
	GrantType    string `json:"grant_type" form:"grant_type" validate:"required"`
	ClientID     string `json:"client_id" form:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" form:"client_secret" validate:"required"`
	Scope        string `json:"scope" form:"scope"`
}

// TokenResponse 令牌响应
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}
