// Package cryptostore wraps another Store and encrypts every value at rest
// with a passphrase-derived key. Each value carries its own scrypt salt and
// secretbox nonce, so passphrase rotation only affects newly written values.
package cryptostore

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"github.com/syntopia/go-syntopia-client/store"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	// Interactive-login scrypt parameters.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var (
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")
	ErrDecryptFailed   = errors.New("value could not be decrypted")
)

var _ store.Store = (*CryptoStore)(nil)

type CryptoStore struct {
	inner      store.Store
	passphrase []byte
}

// New wraps inner so that all values are sealed with the passphrase.
func New(inner store.Store, passphrase string) (*CryptoStore, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &CryptoStore{inner: inner, passphrase: []byte(passphrase)}, nil
}

func (cs *CryptoStore) Save(key string, value []byte) error {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return errors.Wrap(err, "[CryptoStore.Save] rand salt")
	}

	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return errors.Wrap(err, "[CryptoStore.Save] rand nonce")
	}

	sealKey, err := cs.deriveKey(salt)
	if err != nil {
		return err
	}

	// Layout: salt | nonce | box.
	sealed := make([]byte, 0, saltLength+nonceLength+len(value)+secretbox.Overhead)
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce[:]...)
	sealed = secretbox.Seal(sealed, value, &nonce, sealKey)

	return cs.inner.Save(key, sealed)
}

func (cs *CryptoStore) Load(key string) ([]byte, error) {
	sealed, err := cs.inner.Load(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < saltLength+nonceLength+secretbox.Overhead {
		return nil, ErrDecryptFailed
	}

	salt := sealed[:saltLength]
	var nonce [nonceLength]byte
	copy(nonce[:], sealed[saltLength:saltLength+nonceLength])

	sealKey, err := cs.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	value, ok := secretbox.Open(nil, sealed[saltLength+nonceLength:], &nonce, sealKey)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return value, nil
}

func (cs *CryptoStore) Remove(key string) error {
	return cs.inner.Remove(key)
}

func (cs *CryptoStore) deriveKey(salt []byte) (*[keyLength]byte, error) {
	raw, err := scrypt.Key(cs.passphrase, salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, errors.Wrap(err, "[CryptoStore.deriveKey] scrypt.Key")
	}
	var key [keyLength]byte
	copy(key[:], raw)
	return &key, nil
}
