package app

import (
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Loader reads the contents behind a URL of the scheme it is registered for.
type Loader func(u *url.URL) ([]byte, error)

var (
	loadersMu sync.RWMutex
	loaders   = map[string]Loader{
		"":     loadLocal,
		"file": loadLocal,
		"env":  loadEnv,
	}
)

// RegisterLoader makes LoadFile handle scheme with l. Registering a scheme
// twice panics.
func RegisterLoader(scheme string, l Loader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()

	if _, exists := loaders[scheme]; exists {
		panic("loader already registered for scheme " + scheme)
	}
	loaders[scheme] = l
}

// LoadFile reads the keypair or config contents at location. A bare path or
// file:// URL reads the local file; env://NAME reads environment variable
// NAME, so keypairs can be injected without touching disk.
func LoadFile(location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid location %s", location)
	}

	loadersMu.RLock()
	l, ok := loaders[u.Scheme]
	loadersMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("no loader for scheme %q", u.Scheme)
	}

	raw, err := l(u)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", location)
	}
	return raw, nil
}

func loadLocal(u *url.URL) ([]byte, error) {
	if u.Path == "" {
		return nil, errors.New("empty file path")
	}
	return os.ReadFile(u.Path)
}

func loadEnv(u *url.URL) ([]byte, error) {
	name := u.Host
	if name == "" {
		name = strings.TrimPrefix(u.Opaque, "//")
	}
	if name == "" {
		return nil, errors.New("empty variable name")
	}

	value, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return nil, errors.Errorf("%s is not set", name)
	}
	return []byte(value), nil
}
