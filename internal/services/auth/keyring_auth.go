package auth

import (
	"errors"

	"github.com/zalando/go-keyring"
)

type KeyringStore struct {
	serviceName string
}

func NewKeyringStore(serviceName string) *KeyringStore {
	if serviceName == "" {
		serviceName = ServiceName
	}
	return &KeyringStore{serviceName: serviceName}
}

func (k *KeyringStore) SetPassword(login string, password string) error {
	return keyring.Set(k.serviceName, NormalizeLogin(login), password)
}

func (k *KeyringStore) GetPassword(login string) (string, error) {
	password, err := keyring.Get(k.serviceName, NormalizeLogin(login))
	if err == nil {
		return password, nil
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrPasswordNotFound
	}
	return "", err
}

func (k *KeyringStore) DeletePassword(login string) error {
	err := keyring.Delete(k.serviceName, NormalizeLogin(login))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrPasswordNotFound
	}
	return err
}
