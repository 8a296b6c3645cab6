package webpush

import (
	"encoding/base64"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// GenerateKeys 生成一对 VAPID 密钥，返回 (public, private)
func GenerateKeys() (string, string, error) {
	private, public, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", err
	}
	return public, private, nil
}

func decodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	return base64.RawURLEncoding.DecodeString(s)
}
