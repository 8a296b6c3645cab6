package myjwt

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName 登录服务下发的 token cookie 名
const CookieName = "token"

type CustomClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// GenerateToken 签发 token；登录流程不在本服务，主要供联调与测试使用
func GenerateToken(key string, userID int64, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("jwt key is empty")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	now := time.Now()
	claims := CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

func ParseToken(key string, tokenString string) (*CustomClaims, error) {
	if key == "" {
		return nil, errors.New("jwt key is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ExtractToken 依次从 cookie、Bearer 头、WebSocket 子协议、query 参数中取 token
func ExtractToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value), nil
	}

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t, nil
		}
	}

	// 浏览器原生 WebSocket 不能自定义头，握手时通过子协议 "auth, <token>" 传递
	for _, p := range websocketProtocols(r) {
		if p != "auth" && p != "" {
			return p, nil
		}
	}

	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t, nil
	}

	return "", errors.New("missing authentication token")
}

func websocketProtocols(r *http.Request) []string {
	raw := r.Header.Get("Sec-WebSocket-Protocol")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) < 2 || strings.TrimSpace(parts[0]) != "auth" {
		return nil
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
