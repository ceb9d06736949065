// Package wrapper converts untyped config sources into typed config values.
package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/config"
)

// ErrUnsuportedConversion indicates the wrapper does not implement conversion from the source type
var ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

// Converter turns a raw source value into T. Environment sources yield []byte.
type Converter[T any] func(raw interface{}) (T, error)

type valueConfig[T any] struct {
	override     config.Config
	defaultValue T
	convert      Converter[T]

	stateMu   sync.RWMutex
	lastValue T
}

// NewConfig wraps override, falling back to defaultValue when it has no value.
func NewConfig[T any](override config.Config, defaultValue T, convert Converter[T]) config.Value[T] {
	return &valueConfig[T]{
		override:     override,
		defaultValue: defaultValue,
		convert:      convert,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *valueConfig[T]) GetSafe(ctx context.Context) (T, error) {
	override, err := c.override.Get(ctx)

	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()

	if err == config.ErrNoValue {
		c.setLast(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return lastValue, err
	}

	newValue, err := c.convert(override)
	if err != nil {
		return lastValue, err
	}

	c.setLast(newValue)
	return newValue, nil
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *valueConfig[T]) Get(ctx context.Context) T {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *valueConfig[T]) Shutdown() {
	c.override.Shutdown()
}

func (c *valueConfig[T]) setLast(v T) {
	c.stateMu.Lock()
	c.lastValue = v
	c.stateMu.Unlock()
}

func NewBytesConfig(override config.Config, defaultValue []byte) config.Bytes {
	return NewConfig(override, defaultValue, ToBytes)
}

func NewBoolConfig(override config.Config, defaultValue bool) config.Bool {
	return NewConfig(override, defaultValue, ToBool)
}

func NewInt64Config(override config.Config, defaultValue int64) config.Int64 {
	return NewConfig(override, defaultValue, ToInt64)
}

func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return NewConfig(override, defaultValue, ToUint64)
}

func NewFloat64Config(override config.Config, defaultValue float64) config.Float64 {
	return NewConfig(override, defaultValue, ToFloat64)
}

func NewStringConfig(override config.Config, defaultValue string) config.String {
	return NewConfig(override, defaultValue, ToString)
}

func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return NewConfig(override, defaultValue, ToDuration)
}

func ToBytes(raw interface{}) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	default:
		return nil, ErrUnsuportedConversion
	}
}

func ToBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case []byte:
		return strconv.ParseBool(string(v))
	case bool:
		return v, nil
	default:
		return false, ErrUnsuportedConversion
	}
}

func ToInt64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, ErrUnsuportedConversion
	}
}

func ToUint64(raw interface{}) (uint64, error) {
	switch v := raw.(type) {
	case []byte:
		return strconv.ParseUint(string(v), 10, 64)
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, errors.Errorf("negative value: %d", v)
		}
		return uint64(v), nil
	default:
		return 0, ErrUnsuportedConversion
	}
}

func ToFloat64(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case float64:
		return v, nil
	default:
		return 0, ErrUnsuportedConversion
	}
}

func ToString(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case []byte:
		return string(v), nil
	case string:
		return v, nil
	default:
		return "", ErrUnsuportedConversion
	}
}

// ToDuration accepts Go duration strings, or a bare integer as seconds.
func ToDuration(raw interface{}) (time.Duration, error) {
	switch v := raw.(type) {
	case []byte:
		if seconds, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return time.Duration(seconds) * time.Second, nil
		}
		return time.ParseDuration(string(v))
	case time.Duration:
		return v, nil
	default:
		return 0, ErrUnsuportedConversion
	}
}
