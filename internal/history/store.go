// Package history persists conversation transcripts on disk. Files live at
// <root>/<YYYY-MM-DD>/<task_id>.json, partitioned by the date embedded in
// the task id, with optional txt or markdown exports rendered alongside.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ikmalsaid/mindful-agents/internal/chat"
	"github.com/ikmalsaid/mindful-agents/internal/task"
)

// ErrFormat marks a persisted transcript that cannot be used: not a JSON
// array, empty, or missing required fields on its first message.
var ErrFormat = errors.New("history: invalid format")

// Format selects the auxiliary export written next to the JSON file. JSON
// itself is always written and is the authoritative copy.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
)

// ParseFormat normalizes a format selector. Unknown values fall back to
// JSON; ok reports whether the input was recognized.
func ParseFormat(s string) (f Format, ok bool) {
	switch Format(s) {
	case FormatJSON, FormatText, FormatMarkdown:
		return Format(s), true
	default:
		return FormatJSON, false
	}
}

// Store owns the on-disk transcript layout. The session engine never writes
// conversation files itself; it always goes through a Store.
type Store struct {
	root   string
	format Format
	logger *slog.Logger
}

// NewStore builds a store rooted at root. format selects the auxiliary
// export; FormatJSON means none.
func NewStore(root string, format Format, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: root, format: format, logger: logger}
}

// Root returns the directory conversations are stored under.
func (s *Store) Root() string {
	return s.root
}

// Save writes the transcript to its task file, merging with any messages
// already on disk. The merge assumes histories only grow: messages beyond
// the existing file's length are appended, earlier entries are never
// rewritten. If the existing file is longer than the incoming history (for
// example after a concurrent writer), its content wins and nothing is
// appended. A file that fails to parse is treated as absent and
// overwritten. Not safe for concurrent writers against the same task id.
func (s *Store) Save(history []chat.Message) error {
	if len(history) == 0 {
		return fmt.Errorf("cannot save an empty history")
	}

	id := history[0].ID
	date, err := task.DatePartition(id)
	if err != nil {
		return fmt.Errorf("deriving date partition: %w", err)
	}

	dir := filepath.Join(s.root, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating partition directory: %w", err)
	}

	path := filepath.Join(dir, id+".json")
	if data, err := os.ReadFile(path); err == nil {
		var existing []chat.Message
		if err := json.Unmarshal(data, &existing); err != nil {
			s.logger.Warn("existing history file corrupted, overwriting", "task_id", id, "path", path)
		} else {
			if len(history) > len(existing) {
				existing = append(existing, history[len(existing):]...)
			}
			history = existing
		}
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}

	if s.format != FormatJSON {
		if err := s.export(history, path); err != nil {
			return fmt.Errorf("converting history to %s: %w", s.format, err)
		}
	}

	s.logger.Info("saved chat history", "task_id", id, "messages", len(history))
	return nil
}

// Load reads a transcript from an arbitrary path. The file must hold a
// non-empty JSON array whose first element carries id, role, content and
// model; anything else fails with ErrFormat.
func (s *Store) Load(path string) ([]chat.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: history is empty", ErrFormat)
	}
	for _, field := range []string{"id", "role", "content", "model"} {
		if _, ok := raw[0][field]; !ok {
			return nil, fmt.Errorf("%w: first message missing %q", ErrFormat, field)
		}
	}

	var history []chat.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	s.logger.Info("loaded chat history", "task_id", history[0].ID, "messages", len(history))
	return history, nil
}
