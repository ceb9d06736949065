// Package memory holds config sources for tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/code-payments/ownership-nft/pkg/config"
)

// ErrInduced is a stand-in source failure for tests.
var ErrInduced = errors.New("memory config: induced error")

// Config is a single settable value. A nil value reads as unset.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	err      error
	shutdown bool
}

func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.err != nil:
		return nil, c.err
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

func (c *Config) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
}

func (c *Config) SetValue(value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

func (c *Config) ClearValue() {
	c.SetValue(nil)
}

// SetError makes Get fail with err until it is called again with nil.
func (c *Config) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Source hands out in memory configs by key, so a whole set of keyed values
// can be overridden in tests.
type Source struct {
	mu      sync.Mutex
	configs map[string]*Config
}

func NewSource() *Source {
	return &Source{
		configs: make(map[string]*Config),
	}
}

// Config returns the config for key. Repeated calls return the same config.
func (s *Source) Config(key string) config.Config {
	return s.get(key)
}

// Set overrides the value for key.
func (s *Source) Set(key string, value interface{}) {
	s.get(key).SetValue(value)
}

// Clear unsets every key.
func (s *Source) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.configs {
		c.ClearValue()
	}
}

func (s *Source) get(key string) *Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.configs[key]
	if !ok {
		c = NewConfig(nil)
		s.configs[key] = c
	}
	return c
}
