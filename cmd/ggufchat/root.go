package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ggufchat/internal/chat"
	"ggufchat/internal/common/fsutil"
	"ggufchat/internal/config"
	"ggufchat/internal/manager"
	"ggufchat/internal/sessionstore"
	"ggufchat/internal/state"
)

// rootOptions carries persistent flags and the configuration resolved from
// them before any subcommand runs.
type rootOptions struct {
	configPath  string
	modelsDir   string
	sessionsDir string
	logLevel    string
	// lookupEnv defaults to os.LookupEnv.
	lookupEnv func(string) (string, bool)

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:           "ggufchat",
		Short:         "Chat with local GGUF models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.resolve()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", os.Getenv("GGUFCHAT_CONFIG"), "Config file (.yaml, .json or .toml)")
	pf.StringVar(&o.modelsDir, "models-dir", "", "Directory holding *.gguf model files (env GGUFCHAT_MODELS_DIR)")
	pf.StringVar(&o.sessionsDir, "sessions-dir", "", "Directory for saved sessions (env GGUFCHAT_SESSIONS_DIR)")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level: debug|info|warn|error (env GGUFCHAT_LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(o),
		newChatCmd(o),
		newModelsCmd(o),
		newDiagnoseCmd(o),
		newSessionsCmd(o),
		newPersonasCmd(),
		newPresetsCmd(o),
	)
	return root
}

// resolve layers the config file, GGUFCHAT_* variables and flags, in that
// order, over the defaults.
func (o *rootOptions) resolve() error {
	var cfg config.Config
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	lookup := o.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg, err := cfg.ApplyEnv(lookup)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if o.modelsDir != "" {
		cfg.ModelsDir = o.modelsDir
	}
	if o.sessionsDir != "" {
		cfg.SessionsDir = o.sessionsDir
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	o.cfg = cfg
	o.log = newLogger(cfg.LogLevel)
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	st    *state.Session
	mgr   *manager.Manager
	store *sessionstore.Store
	chat  *chat.Service
}

func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	modelsDir, err := fsutil.ExpandHome(cfg.ModelsDir)
	if err != nil {
		return nil, err
	}
	st := state.New()
	if err := st.SetParams(*cfg.Generation); err != nil {
		return nil, fmt.Errorf("generation defaults: %w", err)
	}
	if err := st.SetPersona(cfg.DefaultPersona, false); err != nil {
		return nil, err
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		ModelsDir:    modelsDir,
		State:        st,
		LoadDefaults: cfg.Load,
		Logger:       &log,
		Publisher:    manager.LogPublisher{Logger: log},
	})
	store, err := sessionstore.New(sessionstore.Config{
		Dir:         cfg.SessionsDir,
		MaxSessions: cfg.MaxSessions,
		MaxBytes:    cfg.MaxSessionBytes(),
		Logger:      &log,
	})
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:   cfg,
		log:   log,
		st:    st,
		mgr:   mgr,
		store: store,
		chat:  chat.New(mgr, st, &log),
	}, nil
}

func (o *rootOptions) app() (*app, error) { return newApp(o.cfg, o.log) }

// modelPath maps a bare file name to the models directory.
func (a *app) modelPath(p string) string {
	if p == "" || filepath.IsAbs(p) || filepath.Base(p) != p || strings.HasPrefix(p, "~") {
		return p
	}
	return filepath.Join(a.mgr.ModelsDir(), p)
}

// splitCSV splits a comma-separated list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
