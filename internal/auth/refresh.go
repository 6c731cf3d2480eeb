package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRefresh é retornado quando o token de refresh é inválido ou expirado.
	ErrInvalidRefresh = errors.New("refresh token inválido")
)

// HashRefreshToken produz hash SHA-256 base64 do token bruto.
// Apenas o hash é guardado no Redis; o token em si nunca é persistido.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RefreshRedisKey monta chave única para a allow-list de refresh tokens.
func RefreshRedisKey(subject, hash string) string {
	return fmt.Sprintf("refresh:%s:%s", subject, hash)
}
