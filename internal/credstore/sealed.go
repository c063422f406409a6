package credstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

var ErrUnseal = errors.New("credstore: cannot unseal token")

// SealedStore encrypts the token at rest with NaCl secretbox. The user id is
// stored in the clear; it is not a secret.
type SealedStore struct {
	inner Store
	key   [32]byte
}

// NewSealedStore derives the box key from an arbitrary passphrase.
func NewSealedStore(inner Store, passphrase string) *SealedStore {
	return &SealedStore{inner: inner, key: sha256.Sum256([]byte(passphrase))}
}

func (s *SealedStore) Load(ctx context.Context) (Credentials, error) {
	c, err := s.inner.Load(ctx)
	if err != nil || c.Token == "" {
		return c, err
	}
	plain, err := s.open(c.Token)
	if err != nil {
		return Credentials{}, err
	}
	c.Token = plain
	return c, nil
}

func (s *SealedStore) Save(ctx context.Context, c Credentials) error {
	if !c.Complete() {
		return ErrIncomplete
	}
	sealed, err := s.seal(c.Token)
	if err != nil {
		return err
	}
	c.Token = sealed
	return s.inner.Save(ctx, c)
}

func (s *SealedStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

func (s *SealedStore) seal(plain string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("credstore: nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *SealedStore) open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return "", ErrUnseal
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return "", ErrUnseal
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}
