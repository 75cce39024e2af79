package entity

import "strings"

// Settings 全局设置（settings.json）
type Settings struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"apiKeyMasked"`
	Theme    string `json:"theme"`
}

// DefaultSettings 默认设置
func DefaultSettings() Settings {
	return Settings{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "",
		Theme:    "light",
	}
}

// HasCredential 是否已配置密钥
func (s Settings) HasCredential() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Masked 返回遮蔽密钥后的副本
func (s Settings) Masked() Settings {
	cp := s
	cp.APIKey = MaskAPIKey(s.APIKey)
	return cp
}

// MaskAPIKey 遮蔽密钥，仅保留末 4 位
func MaskAPIKey(apiKey string) string {
	key := []rune(strings.TrimSpace(apiKey))
	switch {
	case len(key) == 0:
		return ""
	case len(key) <= 4:
		return "****"
	default:
		return strings.Repeat("*", 8) + string(key[len(key)-4:])
	}
}
