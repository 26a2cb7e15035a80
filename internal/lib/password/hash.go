// Package password реализует функции для безопасного хеширования и проверки паролей.
//
// Используется argon2id: в отличие от bcrypt у него нет ограничения длины пароля
// в 72 байта, поэтому длинные пароли не обрезаются молча.
// GetHash создает argon2id-хеш пароля в PHC-формате для безопасного хранения.
// CompareHash сравнивает хеш с введённым паролем за константное время.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	memory      uint32 = 64 * 1024
	timeCost    uint32 = 1
	parallelism uint8  = 4
	saltLength  uint32 = 16
	keyLength   uint32 = 32
)

// GetHash принимает пароль пользователя и возвращает его argon2id-хэш
// в PHC-формате: $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func GetHash(rawPassword string) (string, error) {
	const op = "password.GetHash"

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hash := argon2.IDKey([]byte(rawPassword), salt, timeCost, memory, parallelism, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory, timeCost, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// CompareHash сравнивает argon2id-хэш с введённым паролем.
//
// Возвращает true, если пароль соответствует хэшу. Некорректный формат хэша
// не приводит к панике или ошибке в потоке управления вызывающего кода:
// проверка просто не проходит.
func CompareHash(encodedHash, rawPassword string) bool {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(rawPassword), salt,
		params.time, params.memory, params.parallelism, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, computed) == 1
}

type hashParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func decodeHash(encodedHash string) (*hashParams, []byte, []byte, error) {
	const op = "password.decodeHash"

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("%s: invalid hash format", op)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("%s: incompatible argon2 version %d", op, version)
	}

	params := &hashParams{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.memory, &params.time, &params.parallelism); err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return params, salt, hash, nil
}
