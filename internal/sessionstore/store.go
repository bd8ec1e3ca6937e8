// Package sessionstore persists conversation and settings snapshots as JSON
// files in a single directory. Writes go through a temporary file and an
// atomic rename. The directory holds at most MaxSessions files; the oldest
// are evicted to make room.
package sessionstore

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ggufchat/internal/common/fsutil"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

const (
	Ext = ".json"

	DefaultMaxSessions = 50
	DefaultMaxBytes    = 10 << 20
	MaxMessages        = 500
	MaxNameLen         = 50

	timeLayout   = "2006-01-02 15:04:05"
	nameLayout   = "20060102_150405"
	previewRunes = 50
)

// Config configures a Store. Zero values select the defaults.
type Config struct {
	Dir         string
	MaxSessions int
	MaxBytes    int64
	Logger      *zerolog.Logger
}

// Store reads and writes session files. It does not lock the directory
// against other processes.
type Store struct {
	dir         string
	maxSessions int
	maxBytes    int64
	log         zerolog.Logger
	now         func() time.Time
}

// Summary is the listing view of a stored session.
type Summary struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Timestamp     time.Time `json:"timestamp"`
	FormattedTime string    `json:"formatted_time"`
	MessageCount  int       `json:"message_count"`
	ModelPath     string    `json:"model_path"`
	PersonaID     string    `json:"persona"`
	Roleplay      bool      `json:"roleplay_mode"`
	Preview       string    `json:"preview"`
}

// New creates the store directory with owner-only permissions if needed.
func New(cfg Config) (*Store, error) {
	dir, err := fsutil.ExpandHome(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = "sessions"
	}
	if err := fsutil.EnsurePrivateDir(dir); err != nil {
		return nil, fmt.Errorf("sessions dir: %w", err)
	}
	s := &Store{
		dir:         dir,
		maxSessions: cfg.MaxSessions,
		maxBytes:    cfg.MaxBytes,
		log:         zerolog.Nop(),
		now:         time.Now,
	}
	if s.maxSessions <= 0 {
		s.maxSessions = DefaultMaxSessions
	}
	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxBytes
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "sessions").Logger()
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path a session saved under name would use.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, fileName(name))
}

func fileName(name string) string {
	// Leading dots would hide the file from List.
	name = strings.TrimLeft(fsutil.SanitizeName(name, MaxNameLen), ".")
	if !strings.HasSuffix(name, Ext) {
		name += Ext
	}
	return name
}

// DefaultName returns a timestamped name with a random suffix so two saves in
// the same second do not collide.
func DefaultName(t time.Time) string {
	return "Session_" + t.Format(nameLayout) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// Save writes snap under name, or under DefaultName when name is empty, and
// returns the file path. An existing file with the same name is replaced.
// Messages beyond MaxMessages are dropped. Once the file is written, the
// oldest sessions are removed until the store is back under its cap. Nothing
// is written or removed if the record is invalid, would exceed the size cap
// or cannot be written.
func (s *Store) Save(snap state.Snapshot, name string) (string, error) {
	now := s.now()
	if strings.TrimSpace(name) == "" {
		name = DefaultName(now)
	}
	file := fileName(name)
	if strings.TrimSuffix(file, Ext) == "" {
		return "", errValidation("session name %q has no usable characters", name)
	}
	path := filepath.Join(s.dir, file)

	msgs := snap.Messages
	if msgs == nil {
		msgs = []types.Message{}
	}
	if len(msgs) > MaxMessages {
		msgs = msgs[:MaxMessages]
	}
	presets := snap.Presets
	if presets == nil {
		presets = map[string]types.Preset{}
	}
	ts := float64(now.UnixNano()) / 1e9
	sum := md5.Sum([]byte(fmt.Sprintf("%f%s", ts, file)))
	rec := &Record{
		Timestamp:        ts,
		FormattedTime:    now.Format(timeLayout),
		ModelPath:        snap.ModelPath,
		ModelParams:      snap.ModelParams,
		Messages:         msgs,
		Roleplay:         snap.Roleplay,
		PersonaID:        snap.PersonaID,
		GenerationParams: snap.Params,
		Theme:            snap.Theme,
		UserPresets:      presets,
		Metadata:         Metadata{Name: file, SessionID: hex.EncodeToString(sum[:])},
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if int64(buf.Len()) > s.maxBytes {
		return "", tooLargeError{path: path, size: int64(buf.Len()), limit: s.maxBytes}
	}

	err := fsutil.WriteFileAtomic(path, 0o600, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("save session")
		return "", fmt.Errorf("save session: %w", err)
	}
	s.enforceRetention(path)
	s.log.Info().Str("path", path).Int("messages", len(msgs)).Msg("session saved")
	return path, nil
}

// enforceRetention removes the oldest sessions other than keep until at most
// maxSessions remain, keep included.
func (s *Store) enforceRetention(keep string) {
	list, err := s.List()
	if err != nil {
		s.log.Warn().Err(err).Msg("list sessions for retention")
		return
	}
	list = slices.DeleteFunc(list, func(x Summary) bool { return x.Path == keep })
	excess := len(list) - (s.maxSessions - 1)
	if excess <= 0 {
		return
	}
	// List is newest first.
	for _, old := range list[len(list)-excess:] {
		if err := os.Remove(old.Path); err != nil {
			s.log.Warn().Err(err).Str("path", old.Path).Msg("remove old session")
			continue
		}
		s.log.Info().Str("path", old.Path).Msg("evicted old session")
	}
}

// Load reads and validates the session file at path.
func (s *Store) Load(path string) (*Record, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFoundError{path: path}
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, notFoundError{path: path}
	}
	if fi.Size() > s.maxBytes {
		return nil, tooLargeError{path: path, size: fi.Size(), limit: s.maxBytes}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return decodeRecord(path, data)
}

// List returns summaries of stored sessions, newest first. Files that cannot
// be loaded are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, Ext) || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(s.dir, name)
		rec, err := s.Load(path)
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("skip unreadable session")
			continue
		}
		out = append(out, summarize(path, rec))
	}
	slices.SortStableFunc(out, func(a, b Summary) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// summarize names the session after its file so the name resolves through
// Path even when the file was renamed.
func summarize(path string, rec *Record) Summary {
	return Summary{
		Name:          strings.TrimSuffix(filepath.Base(path), Ext),
		Path:          path,
		Timestamp:     rec.Time(),
		FormattedTime: rec.FormattedTime,
		MessageCount:  len(rec.Messages),
		ModelPath:     rec.ModelPath,
		PersonaID:     rec.PersonaID,
		Roleplay:      rec.Roleplay,
		Preview:       Preview(rec.Messages),
	}
}

// Preview renders the first user message and the first assistant reply,
// each cut to 50 characters.
func Preview(msgs []types.Message) string {
	var user, assistant string
	for _, m := range msgs {
		switch {
		case m.Role == types.RoleUser && user == "":
			user = truncate(m.Content, previewRunes)
		case m.Role == types.RoleAssistant && assistant == "":
			assistant = truncate(m.Content, previewRunes)
		}
	}
	switch {
	case user == "" && assistant == "":
		return ""
	case assistant == "":
		return user
	case user == "":
		return "→ " + assistant
	}
	return user + " → " + assistant
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Delete removes the session file at path. Only session files directly
// inside the store directory may be removed.
func (s *Store) Delete(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return err
	}
	if filepath.Dir(abs) != dir || filepath.Ext(abs) != Ext {
		return errValidation("%s is not a session file in %s", path, s.dir)
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFoundError{path: path}
		}
		return fmt.Errorf("delete session: %w", err)
	}
	s.log.Info().Str("path", abs).Msg("session deleted")
	return nil
}

// Apply validates rec and then replaces the conversation, settings and
// presets of st. Nothing is changed when validation fails.
func Apply(st *state.Session, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	st.Restore(rec.Snapshot())
	return nil
}
