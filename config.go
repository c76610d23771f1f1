package ryokan

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/walker84837/ryokan/internal/misc"
)

const (
	configDirName  = "ryokan"
	configFileName = "ryokan.yaml"

	// DefaultNotesDirName is used when the config does not name a notes
	// directory; it is resolved relative to the config file.
	DefaultNotesDirName = "notes"
)

// Config is the persisted configuration record. It is loaded once at startup
// and written back only when a PIN is first set (or the file doesn't exist
// yet). The PIN hash fields are absent until a PIN has been bootstrapped.
type Config struct {
	NotesDir    string `yaml:"notes_dir"`
	Editor      string `yaml:"editor,omitempty"`
	PinHashSalt string `yaml:"pin_hash_salt,omitempty"` // base64
	PinHash     string `yaml:"pin_hash,omitempty"`      // base64

	path string // file the config was loaded from
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// LoadConfig reads the config file at path, creating it with defaults when
// it does not exist. A relative notes_dir is resolved against the config
// file's directory. If path is empty the default location is used.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), misc.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		NotesDir: DefaultNotesDirName,
		path:     path,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.path = path
	}

	// Resolve a relative notes directory against the config location so
	// the store always works on an absolute path.
	if !filepath.IsAbs(cfg.NotesDir) {
		cfg.NotesDir = filepath.Join(filepath.Dir(path), cfg.NotesDir)
	}

	return cfg, nil
}

// Save writes the config back to the file it was loaded from, atomically
// and readable only by the owner.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), misc.DirPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return atomicWriteFile(c.path, data, misc.FilePermissions)
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// HasPin reports whether a PIN record is present.
func (c *Config) HasPin() bool {
	return c.PinHashSalt != "" && c.PinHash != ""
}

// PinRecord decodes the stored PIN record, or returns nil when no PIN has
// been set.
func (c *Config) PinRecord() (*PinRecord, error) {
	if !c.HasPin() {
		return nil, nil
	}

	salt, err := base64.StdEncoding.DecodeString(c.PinHashSalt)
	if err != nil {
		return nil, fmt.Errorf("invalid pin_hash_salt in config: %w", err)
	}
	hash, err := base64.StdEncoding.DecodeString(c.PinHash)
	if err != nil {
		return nil, fmt.Errorf("invalid pin_hash in config: %w", err)
	}

	return &PinRecord{Salt: salt, Hash: hash}, nil
}

// SetPinRecord stores the record's encoded form. The caller is responsible
// for calling Save afterwards.
func (c *Config) SetPinRecord(record *PinRecord) {
	c.PinHashSalt = base64.StdEncoding.EncodeToString(record.Salt)
	c.PinHash = base64.StdEncoding.EncodeToString(record.Hash)
}

// ClearPinRecord removes the stored PIN record, returning the config to its
// pre-bootstrap state.
func (c *Config) ClearPinRecord() {
	c.PinHashSalt = ""
	c.PinHash = ""
}

// atomicWriteFile writes data through a temp file in the target directory
// followed by a rename, so readers never observe a partial config.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err = tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
