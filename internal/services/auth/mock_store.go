package auth

// MockStore is an in-memory auth store for testing.
type MockStore struct {
	passwords map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{passwords: make(map[string]string)}
}

func (m *MockStore) SetPassword(login string, password string) error {
	m.passwords[NormalizeLogin(login)] = password
	return nil
}

func (m *MockStore) GetPassword(login string) (string, error) {
	password, ok := m.passwords[NormalizeLogin(login)]
	if !ok {
		return "", ErrPasswordNotFound
	}
	return password, nil
}

func (m *MockStore) DeletePassword(login string) error {
	key := NormalizeLogin(login)
	if _, ok := m.passwords[key]; !ok {
		return ErrPasswordNotFound
	}
	delete(m.passwords, key)
	return nil
}
