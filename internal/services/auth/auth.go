// Package auth stores portal passwords in the operating system keychain so
// updater configurations need not carry them.
package auth

import (
	"errors"

	"fdu/internal/util"
)

const ServiceName = "fdu"

var ErrPasswordNotFound = errors.New("portal password not found")

type Store interface {
	SetPassword(login string, password string) error
	GetPassword(login string) (string, error)
	DeletePassword(login string) error
}

// DefaultStore returns the standard auth store backed by the OS keychain.
func DefaultStore() Store {
	return NewKeyringStore(ServiceName)
}

// NormalizeLogin normalizes an account login for consistent key lookup.
func NormalizeLogin(login string) string {
	return util.NormalizeKey(login)
}
