package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/HuyNguyen260398/bob/tool"
)

// NoteStore persists notes the agent takes on the user's behalf.
type NoteStore interface {
	Save(ctx context.Context, title, content string) (location string, err error)
}

// SaveNote stores a short note via the configured store and tells the
// model where it ended up.
func SaveNote(store NoteStore) tool.Definition {
	return tool.Must("save_note", func(ctx context.Context, args tool.Args) (string, error) {
		location, err := store.Save(ctx, args.String("title"), args.String("content"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("note saved as %s", location), nil
	},
		tool.Description("Save a note with a title and content for later reference."),
		tool.Param("title", "string", "a short title for the note"),
		tool.Param("content", "string", "the body of the note"),
		tool.Required("title", "content"),
	)
}

// MemoryNotes keeps notes in process memory. Suitable for tests and for
// running without a scratch directory.
type MemoryNotes struct {
	mu    sync.Mutex
	notes map[string]string
}

// NewMemoryNotes creates an empty in-memory note store.
func NewMemoryNotes() *MemoryNotes {
	return &MemoryNotes{notes: make(map[string]string)}
}

func (m *MemoryNotes) Save(_ context.Context, title, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := noteSlug(title)
	m.notes[key] = content
	return key, nil
}

// Get returns a stored note by its slug.
func (m *MemoryNotes) Get(title string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.notes[noteSlug(title)]
	return content, ok
}

// DirNotes writes each note to a markdown file under a directory.
type DirNotes struct {
	Dir string
}

func (d DirNotes) Save(_ context.Context, title, content string) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("notes: %w", err)
	}
	name := fmt.Sprintf("%s-%s.md", time.Now().Format("20060102-150405"), noteSlug(title))
	path := filepath.Join(d.Dir, name)
	body := fmt.Sprintf("# %s\n\n%s\n", title, content)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("notes: %w", err)
	}
	return path, nil
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

func noteSlug(title string) string {
	slug := slugRE.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "note"
	}
	return slug
}

// Defaults returns the standard tool set backed by the given note store
// and the system clock.
func Defaults(notes NoteStore) []tool.Definition {
	if notes == nil {
		notes = NewMemoryNotes()
	}
	return []tool.Definition{
		CurrentTime(nil),
		CurrentDate(nil),
		Calculate(),
		FormatText(),
		SearchText(),
		SaveNote(notes),
	}
}
