package auth

import "strings"

// WildcardPermission 超级管理员通配权限
const WildcardPermission = "*:*:*"

// Matches 判断持有的权限是否覆盖所需权限.
//
// 持有方某段为 "*" 时, 该位置之后不再比较, 直接视为匹配.
// 段数不一致时越界部分按不匹配处理.
func Matches(held, required string) bool {
	if held == WildcardPermission {
		return true
	}
	if held == required {
		return true
	}

	heldParts := strings.Split(held, ":")
	requiredParts := strings.Split(required, ":")
	for i, part := range heldParts {
		if i >= len(requiredParts) {
			return false
		}
		if part == "*" {
			return true
		}
		if part != requiredParts[i] {
			return false
		}
	}
	return len(heldParts) == len(requiredParts)
}

// MatchesAny 任一持有权限匹配即通过
func MatchesAny(held []string, required string) bool {
	for _, h := range held {
		if Matches(h, required) {
			return true
		}
	}
	return false
}
