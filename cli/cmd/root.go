package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/walker84837/ryokan"
	"github.com/walker84837/ryokan/audit"
	"github.com/walker84837/ryokan/store"
)

var (
	cfgFile    string
	verbosity  int
	session    *ryokan.Session
	noteEditor ryokan.Editor

	verboseOut io.Writer = os.Stderr
)

// verbosef writes diagnostic output when enough -v flags were given.
func verbosef(level int, format string, args ...interface{}) {
	if verbosity >= level {
		fmt.Fprintf(verboseOut, format+"\n", args...)
	}
}

// changedFlags collects the flags set on the command line, redacting
// values whose names suggest sensitive material.
func changedFlags(cmd *cobra.Command) map[string]string {
	flags := make(map[string]string)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if isSensitiveKey(f.Name) {
			flags[f.Name] = "[REDACTED]"
		} else {
			flags[f.Name] = f.Value.String()
		}
	})
	return flags
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ryokan",
	Short: "A PIN-protected encrypted note store for the terminal",
	Long: `A local encrypted note store driven from the terminal. Notes are
encrypted with ChaCha20-Poly1305 under keys derived from a 6-digit PIN via
Argon2id; every save uses a fresh salt and nonce. Without a subcommand an
interactive browse loop is started.`,
	PersistentPreRunE: initializeSession,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if session != nil {
			return session.Close()
		}
		return nil
	},
	RunE: runInteractive,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the per-user ryokan.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase diagnostic output on stderr (-v, -vv)")
	rootCmd.PersistentFlags().String("notes-dir", "", "directory holding the encrypted notes")
	rootCmd.PersistentFlags().String("editor", "", "editor command (falls back to $EDITOR, then nano)")
	rootCmd.PersistentFlags().String("store-type", "", "storage backend type (filesystem, s3)")

	bindFlagOrPanic("notes.dir", "notes-dir")
	bindFlagOrPanic("notes.editor", "editor")
	bindFlagOrPanic("notes.store_type", "store-type")

	// Audit flags
	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-type", "", "audit logger type (file, syslog)")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.type", "audit-type")
	bindFlagOrPanic("audit.options.file_path", "audit-file")

	// S3 flags (for direct CLI usage)
	rootCmd.PersistentFlags().String("s3-endpoint", "", "S3 endpoint URL")
	rootCmd.PersistentFlags().String("s3-region", "", "S3 region")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 bucket name")
	rootCmd.PersistentFlags().String("s3-prefix", "", "S3 key prefix")
	rootCmd.PersistentFlags().String("s3-access-key", "", "S3 access key ID")
	rootCmd.PersistentFlags().String("s3-secret-key", "", "S3 secret access key")
	rootCmd.PersistentFlags().Bool("s3-use-ssl", true, "Use SSL for S3 connections")

	bindFlagOrPanic("notes.s3.endpoint", "s3-endpoint")
	bindFlagOrPanic("notes.s3.region", "s3-region")
	bindFlagOrPanic("notes.s3.bucket", "s3-bucket")
	bindFlagOrPanic("notes.s3.prefix", "s3-prefix")
	bindFlagOrPanic("notes.s3.access_key_id", "s3-access-key")
	bindFlagOrPanic("notes.s3.secret_access_key", "s3-secret-key")
	bindFlagOrPanic("notes.s3.use_ssl", "s3-use-ssl")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".ryokan")
	}

	viper.SetEnvPrefix("RYOKAN")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// No config file is fine, defaults and env vars apply.
	}
}

func setDefaults() {
	viper.SetDefault("notes.store_type", "filesystem")

	viper.SetDefault("notes.s3.region", "us-east-1")
	viper.SetDefault("notes.s3.prefix", "ryokan/")
	viper.SetDefault("notes.s3.use_ssl", true)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.type", "file")
	viper.SetDefault("audit.log_level", "info")
	viper.SetDefault("audit.options.file_path", "audit.log")
}

func initializeSession(cmd *cobra.Command, args []string) error {
	// Help, completion, config inspection and audit queries never need an
	// unlocked store.
	switch cmd.Name() {
	case "help", "completion", "__complete", "config":
		return nil
	}
	if cmd.HasParent() {
		switch cmd.Parent().Name() {
		case "audit", "config":
			return nil
		}
	}

	opts := ryokan.Options{
		ConfigPath:    cfgFile,
		NotesDir:      viper.GetString("notes.dir"),
		EditorCommand: viper.GetString("notes.editor"),
		AuditConfig:   auditConfigFromViper(),
	}

	storeCfg, err := storeConfigFromViper(opts.NotesDir)
	if err != nil {
		return err
	}
	opts.StoreConfig = storeCfg

	verbosef(2, "flags: %v", changedFlags(cmd))

	s, editor, err := ryokan.OpenSession(opts)
	if err != nil {
		return err
	}
	session = s
	noteEditor = editor

	if err := unlockLoop(s); err != nil {
		return err
	}
	verbosef(1, "session %s unlocked, store type %s, memory protection %d",
		s.ID(), s.Store().GetType(), s.MemoryProtection())
	return nil
}

// unlockLoop prompts until the PIN is accepted. First use asks twice to
// guard against typos before the record is persisted.
func unlockLoop(s *ryokan.Session) error {
	if !s.HasPin() {
		fmt.Println("No PIN set yet. Choose a 6-digit PIN to protect your notes.")
		for {
			pin, err := readPin("New PIN: ")
			if err != nil {
				return err
			}
			confirm, err := readPin("Confirm PIN: ")
			if err != nil {
				return err
			}
			if pin != confirm {
				fmt.Println("PINs do not match, try again.")
				continue
			}
			if err := s.Unlock(pin); err != nil {
				fmt.Printf("Could not set PIN: %v\n", formatError(err))
				continue
			}
			fmt.Println("PIN set.")
			return nil
		}
	}

	for {
		pin, err := readPin("PIN: ")
		if err != nil {
			return err
		}
		err = s.Unlock(pin)
		if err == nil {
			return nil
		}
		fmt.Printf("%v\n", formatError(err))
	}
}

func auditConfigFromViper() *audit.Config {
	if !viper.GetBool("audit.enabled") {
		return nil
	}
	return &audit.Config{
		Enabled: true,
		Type:    audit.ConfigType(viper.GetString("audit.type")),
		Options: map[string]interface{}{
			"file_path": auditFilePath(),
		},
		LogLevel: viper.GetString("audit.log_level"),
	}
}

func storeConfigFromViper(notesDir string) (*store.StoreConfig, error) {
	storeType := strings.ToLower(viper.GetString("notes.store_type"))
	switch storeType {
	case "", "filesystem", "file":
		// nil lets the library root the store at the configured notes dir.
		if notesDir == "" {
			return nil, nil
		}
		return &store.StoreConfig{
			Type:   store.StoreTypeFileSystem,
			Config: map[string]interface{}{"base_path": notesDir},
		}, nil

	case "s3":
		cfg := store.S3Config{
			Endpoint:        viper.GetString("notes.s3.endpoint"),
			Region:          viper.GetString("notes.s3.region"),
			Bucket:          viper.GetString("notes.s3.bucket"),
			KeyPrefix:       viper.GetString("notes.s3.prefix"),
			AccessKeyID:     viper.GetString("notes.s3.access_key_id"),
			SecretAccessKey: viper.GetString("notes.s3.secret_access_key"),
			UseSSL:          viper.GetBool("notes.s3.use_ssl"),
		}
		if err := validateS3Config(cfg); err != nil {
			return nil, fmt.Errorf("invalid S3 configuration: %w", err)
		}
		return &store.StoreConfig{
			Type: store.StoreTypeS3,
			Config: map[string]interface{}{
				"endpoint":          cfg.Endpoint,
				"region":            cfg.Region,
				"bucket":            cfg.Bucket,
				"key_prefix":        cfg.KeyPrefix,
				"access_key_id":     cfg.AccessKeyID,
				"secret_access_key": cfg.SecretAccessKey,
				"use_ssl":           cfg.UseSSL,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s. Supported types: filesystem, s3", storeType)
	}
}

func validateS3Config(config store.S3Config) error {
	var missing []string

	if config.Bucket == "" {
		missing = append(missing, "notes.s3.bucket")
	}
	if config.Region == "" {
		missing = append(missing, "notes.s3.region")
	}

	hasAccessKey := config.AccessKeyID != ""
	hasSecretKey := config.SecretAccessKey != ""

	if hasAccessKey && !hasSecretKey {
		missing = append(missing, "notes.s3.secret_access_key")
	}
	if !hasAccessKey && hasSecretKey {
		missing = append(missing, "notes.s3.access_key_id")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// auditFilePath resolves the audit log location the same way the session
// resolves the notes directory: relative paths land next to the notes.
func auditFilePath() string {
	path := viper.GetString("audit.options.file_path")
	if filepath.IsAbs(path) {
		return path
	}
	if dir := viper.GetString("notes.dir"); dir != "" {
		return filepath.Join(dir, path)
	}
	return path
}
