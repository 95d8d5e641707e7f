package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	KeyLastCity     = "last_city"
	KeyAPIURL       = "api_url"
	KeyGeocodingURL = "geocoding_url"

	DefaultAPIURL       = "http://localhost:3000"
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1"
)

// Prefs is the client's YAML settings file. Environment variables prefixed
// WEATHER_ override file values.
type Prefs struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// DefaultPrefsPath returns the settings file under the user config dir
func DefaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "weather", "config.yaml")
}

func readFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("prefs: failed to read %s: %w", path, err)
	}
	return v, nil
}

// LoadPrefs reads path; a missing file is an empty one
func LoadPrefs(path string) (*Prefs, error) {
	v, err := readFile(path)
	if err != nil {
		return nil, err
	}
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyGeocodingURL, DefaultGeocodingURL)
	v.SetEnvPrefix("weather")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Prefs{path: path, v: v}, nil
}

// Viper exposes the underlying instance for flag binding
func (p *Prefs) Viper() *viper.Viper {
	return p.v
}

func (p *Prefs) LastCity() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v.GetString(KeyLastCity)
}

func (p *Prefs) APIURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v.GetString(KeyAPIURL)
}

func (p *Prefs) GeocodingURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v.GetString(KeyGeocodingURL)
}

// SetLastCity stores city and writes it to the file. Only keys already in
// the file are written back, so flags and environment overrides stay out.
func (p *Prefs) SetLastCity(city string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.v.Set(KeyLastCity, city)

	file, err := readFile(p.path)
	if err != nil {
		return err
	}
	file.Set(KeyLastCity, city)
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("prefs: failed to create config dir: %w", err)
	}
	if err := file.WriteConfigAs(p.path); err != nil {
		return fmt.Errorf("prefs: failed to write %s: %w", p.path, err)
	}
	return nil
}
