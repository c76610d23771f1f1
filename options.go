package ryokan

import (
	"fmt"

	"github.com/walker84837/ryokan/audit"
	"github.com/walker84837/ryokan/store"
)

// Options collects everything needed to open a session: where the config
// lives, which store backend to use, and how to audit. Zero values fall back
// to the config file defaults, a filesystem store rooted at the configured
// notes directory, and a no-op audit logger.
type Options struct {
	// ConfigPath overrides the default per-user config location.
	ConfigPath string

	// NotesDir overrides the notes directory from the config file.
	NotesDir string

	// EditorCommand overrides the editor from the config file and $EDITOR.
	EditorCommand string

	// StoreConfig selects a storage backend. When nil, a filesystem store
	// rooted at the notes directory is used.
	StoreConfig *store.StoreConfig

	// AuditConfig enables audit logging. When nil, events are discarded.
	AuditConfig *audit.Config
}

// OpenSession loads configuration, opens the store and audit logger, and
// returns a session at the PIN prompt together with the resolved editor.
// The caller owns the session and must Close it.
func OpenSession(opts Options) (*Session, Editor, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.NotesDir != "" {
		cfg.NotesDir = opts.NotesDir
	}
	if opts.EditorCommand != "" {
		cfg.Editor = opts.EditorCommand
	}

	storeCfg := opts.StoreConfig
	if storeCfg == nil {
		storeCfg = &store.StoreConfig{
			Type:   store.StoreTypeFileSystem,
			Config: map[string]interface{}{"base_path": cfg.NotesDir},
		}
	}

	st, err := store.NewStore(*storeCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open note store: %w", err)
	}

	logger, err := audit.NewLogger(opts.AuditConfig)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to open audit logger: %w", err)
	}

	session, err := NewSession(cfg, st, logger)
	if err != nil {
		_ = logger.Close()
		_ = st.Close()
		return nil, nil, err
	}

	editor := &ExecEditor{Command: ResolveEditorCommand(cfg.Editor)}
	return session, editor, nil
}
