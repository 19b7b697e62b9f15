/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user configuration, persisted as YAML in the user scope.
// Environment variables are read-only overrides applied on Load.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Logging       LoggingConfig `yaml:"logging"`
	Parser        ParserConfig  `yaml:"parser"`
	Types         TypesConfig   `yaml:"types"`
	Index         IndexConfig   `yaml:"index"`
	Export        ExportConfig  `yaml:"export"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type ParserConfig struct {
	// NestedObjects is "absorb" (sub-object lines are read like actor lines)
	// or "track" (only depth-zero Location/Rotation/DrawScale3D count).
	NestedObjects string `yaml:"nested_objects"`
	// ReportSkipped prints actor blocks that produced no record.
	ReportSkipped bool `yaml:"report_skipped"`
}

type TypesConfig struct {
	// File is an optional YAML type mapping replacing the built-in table.
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"`
}

type IndexConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	DSN    string `yaml:"dsn"`
	// The postgres password is not stored on disk; it lives in the OS keychain.
}

type ExportConfig struct {
	Format   string `yaml:"format"` // "json" | "yaml"
	Validate bool   `yaml:"validate"`
	Compress bool   `yaml:"compress"`
}

const (
	NestedAbsorb = "absorb"
	NestedTrack  = "track"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Parser:        ParserConfig{NestedObjects: NestedAbsorb},
		Index:         IndexConfig{Driver: DriverSQLite, DSN: "unrtext.sqlite"},
		Export:        ExportConfig{Format: "json", Validate: true},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile    = "UNR_CONFIG"
	EnvNestedObjects = "UNR_NESTED_OBJECTS"
	EnvTypesFile     = "UNR_TYPES_FILE"
	EnvIndexDriver   = "UNR_INDEX_DRIVER"
	EnvIndexDSN      = "UNR_INDEX_DSN"
	EnvExportFormat  = "UNR_EXPORT_FORMAT"
	EnvLogLevel      = "UNR_LOG_LEVEL"
	EnvLogFormat     = "UNR_LOG_FORMAT"
	EnvLogSource     = "UNR_LOG_SOURCE"
	EnvLogFile       = "UNR_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "unrtext"
	keyringIndexPwd = "index_password"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore with github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// ConfigPath returns the per-user config file path. UNR_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "unrtext")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "unrtext")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "unrtext")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "unrtext")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The index password is read from the keyring and
// returned separately; a missing entry is not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		// start from defaults so booleans missing from the file keep their default
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("config: parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, "", fmt.Errorf("config: read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, "", err
	}
	pwd, _ := tokenStore.Get(keyringService, keyringIndexPwd)
	return cfg, pwd, nil
}

// Save writes the user config YAML and stores the index password in the OS
// keyring when non-empty.
func Save(cfg AppConfig, indexPassword string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if indexPassword != "" {
		if err := tokenStore.Set(keyringService, keyringIndexPwd, indexPassword); err != nil {
			return fmt.Errorf("config: store index password: %w", err)
		}
	}
	return nil
}

// ForgetIndexPassword removes the stored index password.
func ForgetIndexPassword() error {
	err := tokenStore.Delete(keyringService, keyringIndexPwd)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Validate rejects values no component understands.
func (c AppConfig) Validate() error {
	switch c.Parser.NestedObjects {
	case NestedAbsorb, NestedTrack:
	default:
		return fmt.Errorf("config: parser.nested_objects must be %q or %q, got %q", NestedAbsorb, NestedTrack, c.Parser.NestedObjects)
	}
	switch c.Index.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: index.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Index.Driver)
	}
	switch c.Export.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("config: export.format must be json or yaml, got %q", c.Export.Format)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := lowerTrim(src.Logging.Level); v != "" {
		dst.Logging.Level = v
	}
	if v := lowerTrim(src.Logging.Format); v != "" {
		dst.Logging.Format = v
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
	if v := lowerTrim(src.Parser.NestedObjects); v != "" {
		dst.Parser.NestedObjects = v
	}
	dst.Parser.ReportSkipped = src.Parser.ReportSkipped
	if v := strings.TrimSpace(src.Types.File); v != "" {
		dst.Types.File = v
	}
	dst.Types.Watch = src.Types.Watch
	if v := lowerTrim(src.Index.Driver); v != "" {
		dst.Index.Driver = v
	}
	if v := strings.TrimSpace(src.Index.DSN); v != "" {
		dst.Index.DSN = v
	}
	if v := lowerTrim(src.Export.Format); v != "" {
		dst.Export.Format = v
	}
	// booleans: copy directly from the file so user preferences persist
	dst.Export.Validate = src.Export.Validate
	dst.Export.Compress = src.Export.Compress
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := lowerTrim(os.Getenv(EnvNestedObjects)); v != "" {
		cfg.Parser.NestedObjects = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTypesFile)); v != "" {
		cfg.Types.File = v
	}
	if v := lowerTrim(os.Getenv(EnvIndexDriver)); v != "" {
		cfg.Index.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexDSN)); v != "" {
		cfg.Index.DSN = v
	}
	if v := lowerTrim(os.Getenv(EnvExportFormat)); v != "" {
		cfg.Export.Format = v
	}
	if v := lowerTrim(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := lowerTrim(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = v
	}
	if v := lowerTrim(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"parser.nested_objects": EnvNestedObjects,
		"types.file":            EnvTypesFile,
		"index.driver":          EnvIndexDriver,
		"index.dsn":             EnvIndexDSN,
		"export.format":         EnvExportFormat,
		"logging.level":         EnvLogLevel,
		"logging.format":        EnvLogFormat,
		"logging.source":        EnvLogSource,
		"logging.file":          EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// EffectiveDSN returns the DSN to open. For postgres URLs without a password
// the keyring password, if any, is filled in.
func (c IndexConfig) EffectiveDSN(password string) string {
	if c.Driver != DriverPostgres || password == "" {
		return c.DSN
	}
	u, err := url.Parse(c.DSN)
	if err != nil || u.User == nil {
		return c.DSN
	}
	if _, set := u.User.Password(); set {
		return c.DSN
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String()
}

func lowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func truthy(v string) bool {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v == "on" || v == "yes"
}
