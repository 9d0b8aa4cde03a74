package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/authcore/pkg/config"
	"golang.org/x/crypto/pbkdf2"
)

// 存储格式 "{salt}${hex(key)}"
const hashSeparator = "$"

// Hasher 口令派生与校验 (PBKDF2-HMAC-SHA256)
type Hasher struct {
	iterations int
	keyLen     int
}

// NewHasher 创建口令哈希器
func NewHasher(cfg *config.AuthConfig) *Hasher {
	return &Hasher{
		iterations: cfg.HashIterations,
		keyLen:     cfg.KeyLength,
	}
}

// UserSalt 用户口令的盐: 用户名去空白后小写.
//
// 盐可由用户名推出, 待安全评审.
func UserSalt(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Hash 用给定盐派生口令
func (h *Hasher) Hash(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, h.keyLen, sha256.New)
	return salt + hashSeparator + hex.EncodeToString(key)
}

// HashPassword 以用户名为盐派生口令
func (h *Hasher) HashPassword(username, password string) string {
	return h.Hash(password, UserSalt(username))
}

// VerifyPassword 校验用户口令
func (h *Hasher) VerifyPassword(password, username, stored string) bool {
	if stored == "" {
		return false
	}
	if IsLegacyHash(stored) {
		// Deprecated: 明文兼容分支, 不安全.
		// TODO: 登录成功后把明文行重新哈希入库, 之后删除该分支.
		return constantTimeEqual(password, stored)
	}
	return constantTimeEqual(h.Hash(password, UserSalt(username)), stored)
}

// IsLegacyHash 存储值不含分隔符时视为历史明文
func IsLegacyHash(stored string) bool {
	return stored != "" && !strings.Contains(stored, hashSeparator)
}

// HashSecret 为客户端密钥生成随机盐并派生
func (h *Hasher) HashSecret(secret string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	return h.Hash(secret, hex.EncodeToString(salt)), nil
}

// VerifySecret 校验客户端密钥, 不接受明文存储
func (h *Hasher) VerifySecret(secret, stored string) bool {
	idx := strings.LastIndex(stored, hashSeparator)
	if idx <= 0 {
		return false
	}
	return constantTimeEqual(h.Hash(secret, stored[:idx]), stored)
}

// Burn 执行一次等价的派生计算, 让"主体不存在"与"口令错误"耗时一致
func (h *Hasher) Burn(password string) {
	_ = h.Hash(password, "burn")
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
