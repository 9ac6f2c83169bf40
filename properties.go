package connector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/magiconair/properties"
	"go.uber.org/zap"
)

// Build info keys read from the properties file.
const (
	PropertyBuildVersion  = "info.build.version"
	PropertyBuildArtifact = "info.build.artifact"

	unknownBuildValue = "unknown"
)

// Properties is the immutable key/value configuration handed to a connector.
type Properties struct {
	values map[string]string
}

// NewProperties copies m into a Properties value.
func NewProperties(m map[string]string) Properties {
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[k] = v
	}
	return Properties{values: values}
}

// Get returns the value for key and whether it was set.
func (p Properties) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// GetOr returns the value for key, or def when it is not set.
func (p Properties) GetOr(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Keys returns every key in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (p Properties) Len() int {
	return len(p.values)
}

// Map returns a copy of the underlying values.
func (p Properties) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// PropertiesPath returns the location of a connector's properties file:
// <dir>/<pluginID>.properties.
func PropertiesPath(dir, pluginID string) string {
	return filepath.Join(dir, pluginID+".properties")
}

// LoadProperties reads <dir>/<pluginID>.properties. A missing file is not an
// error: it is logged and empty properties are returned. Unreadable or
// malformed files are returned as errors.
func LoadProperties(dir, pluginID string, logger *zap.Logger) (Properties, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := PropertiesPath(dir, pluginID)
	logger.Debug("Scanning for configuration", zap.String("path", path))

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Configuration file not found, continuing with empty configuration",
				zap.String("path", path),
				zap.Error(ErrConfigurationMissing))
			return NewProperties(nil), nil
		}
		return Properties{}, fmt.Errorf("stat %s: %w", path, err)
	}

	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Properties{}, fmt.Errorf("load %s: %w", path, err)
	}

	logger.Info("Loaded configuration", zap.String("path", path), zap.Int("keys", p.Len()))
	return NewProperties(p.Map()), nil
}

// ExecutableDir returns the directory holding the running binary, which is
// where a connector's properties file is deployed.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}
