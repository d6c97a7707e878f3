// Package urlutil маскирует URL и секреты перед записью в лог.
package urlutil

import (
	"net/url"
	"strings"
)

// MaskURL оставляет от URL только scheme и host: path и query
// webhook-ов и Bot API содержат токены.
//
//	"https://api.telegram.org/bot123:ABC/sendMessage" → "https://api.telegram.org/***"
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***invalid-url***"
	}
	return u.Scheme + "://" + u.Host + "/***"
}

// MaskSecret оставляет первые четыре символа секрета. Короткие секреты скрываются целиком.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + strings.Repeat("*", 3)
}
