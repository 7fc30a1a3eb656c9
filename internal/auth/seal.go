package auth

import (
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	ErrInvalidSealKey = errors.New("seal key must be 32 bytes")
	ErrUnseal         = errors.New("sealed value is corrupted")
)

// Sealer encrypts account-link access tokens before they are written to the
// session store.
type Sealer struct {
	key [32]byte
}

// NewSealer создает шифратор с 32-байтовым ключом.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, ErrInvalidSealKey
	}

	s := &Sealer{}
	copy(s.key[:], key)
	return s, nil
}

// Seal шифрует значение, префиксом идет случайный nonce.
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key), nil
}

// Open расшифровывает значение, созданное Seal.
func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrUnseal
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}

	return string(plaintext), nil
}
