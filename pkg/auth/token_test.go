package auth

import (
	"errors"
	"testing"
)

func TestEnvironmentStoreRetrieve(t *testing.T) {
	t.Setenv(envToken, "ghp_from_env")

	store := NewEnvironmentStore()
	token, err := store.Retrieve()
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if token != "ghp_from_env" {
		t.Errorf("Retrieve() = %q, want %q", token, "ghp_from_env")
	}
	if !store.Exists() {
		t.Error("Exists() = false with token set")
	}
}

func TestEnvironmentStoreEmpty(t *testing.T) {
	t.Setenv(envToken, "")

	store := NewEnvironmentStore()
	if _, err := store.Retrieve(); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Retrieve() error = %v, want ErrTokenNotFound", err)
	}
	if store.Exists() {
		t.Error("Exists() = true with no token set")
	}
}

func TestEnvironmentStoreReadOnly(t *testing.T) {
	store := NewEnvironmentStore()
	if err := store.Store("x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Store() error = %v, want ErrStoreUnavailable", err)
	}
	if err := store.Delete(); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Delete() error = %v, want ErrStoreUnavailable", err)
	}
}

// fakeStore lets Manager tests run without a system keychain.
type fakeStore struct {
	name  string
	token string
	err   error
}

func (f *fakeStore) Store(token string) error {
	if f.err != nil {
		return f.err
	}
	f.token = token
	return nil
}

func (f *fakeStore) Retrieve() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.token == "" {
		return "", ErrTokenNotFound
	}
	return f.token, nil
}

func (f *fakeStore) Delete() error {
	if f.err != nil {
		return f.err
	}
	if f.token == "" {
		return ErrTokenNotFound
	}
	f.token = ""
	return nil
}

func (f *fakeStore) Exists() bool {
	return f.err == nil && f.token != ""
}

func (f *fakeStore) Name() string { return f.name }

func TestManagerTokenPrefersFirstStore(t *testing.T) {
	m := &Manager{stores: []TokenStore{
		&fakeStore{name: "primary", token: "first"},
		&fakeStore{name: "fallback", token: "second"},
	}}

	token, source, err := m.Token()
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if token != "first" || source != "primary" {
		t.Errorf("Token() = (%q, %q), want (first, primary)", token, source)
	}
}

func TestManagerTokenFallsThrough(t *testing.T) {
	m := &Manager{stores: []TokenStore{
		&fakeStore{name: "primary"},
		&fakeStore{name: "fallback", token: "second"},
	}}

	token, source, err := m.Token()
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if token != "second" || source != "fallback" {
		t.Errorf("Token() = (%q, %q), want (second, fallback)", token, source)
	}
}

func TestManagerTokenNotFound(t *testing.T) {
	m := &Manager{stores: []TokenStore{
		&fakeStore{name: "primary"},
		&fakeStore{name: "fallback"},
	}}

	if _, _, err := m.Token(); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Token() error = %v, want ErrTokenNotFound", err)
	}
}

func TestManagerStoreSkipsReadOnly(t *testing.T) {
	writable := &fakeStore{name: "writable"}
	m := &Manager{stores: []TokenStore{
		&fakeStore{name: "readonly", err: ErrStoreUnavailable},
		writable,
	}}

	if err := m.Store("ghp_new"); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if writable.token != "ghp_new" {
		t.Errorf("token not written to writable store, got %q", writable.token)
	}
}

func TestManagerDelete(t *testing.T) {
	first := &fakeStore{name: "first", token: "tok"}
	m := &Manager{stores: []TokenStore{
		first,
		&fakeStore{name: "second"},
	}}

	if err := m.Delete(); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if first.token != "" {
		t.Error("token not removed from first store")
	}

	if err := m.Delete(); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("second Delete() error = %v, want ErrTokenNotFound", err)
	}
}

func TestManagerStatus(t *testing.T) {
	m := &Manager{stores: []TokenStore{
		&fakeStore{name: "first", token: "tok"},
		&fakeStore{name: "second"},
	}}

	status := m.Status()
	if !status["first"] {
		t.Error("status[first] = false, want true")
	}
	if status["second"] {
		t.Error("status[second] = true, want false")
	}
}
