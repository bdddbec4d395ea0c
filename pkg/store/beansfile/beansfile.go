// Package beansfile is a BeanStore over a .beans directory: one markdown file
// per bean, named "<id>--<slug>.md", with the fields in YAML front matter and
// the body below it.
package beansfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/beanwork/pkg/filter"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/store"
)

const (
	fence     = "---"
	extension = ".md"
	slugSep   = "--"
)

// Pattern matches bean files, for watchers.
const Pattern = "*" + extension

// Store reads and writes a bean directory. Writes from this process are
// serialised; writes from other processes are detected by modification time
// and reported as store.ErrConflict.
type Store struct {
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sends warnings about unreadable files to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a store for dir. The directory is not required to exist until
// the first call.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.BeanStore = (*Store)(nil)

// Dir returns the bean directory.
func (s *Store) Dir() string { return s.dir }

// entry is one parsed file.
type entry struct {
	bean  model.Bean
	path  string
	mtime time.Time
}

// List returns the beans matching f in file name order. Files that cannot be
// parsed are skipped with a warning.
func (s *Store) List(ctx context.Context, f model.ListFilter) ([]model.Bean, error) {
	entries, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	beans := make([]model.Bean, len(entries))
	for i, e := range entries {
		beans[i] = e.bean
	}
	pipe := filter.Pipeline{Fixed: f.Status}
	return pipe.Apply(beans, filter.State{Types: f.Type}, false), nil
}

// Show returns one bean.
func (s *Store) Show(ctx context.Context, id string) (model.Bean, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return model.Bean{}, err
	}
	return e.bean, nil
}

// Update validates patch against the directory and rewrites the bean's file.
func (s *Store) Update(ctx context.Context, id string, patch model.Patch) (model.Bean, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll(ctx)
	if err != nil {
		return model.Bean{}, err
	}
	byID := make(map[string]entry, len(entries))
	for _, e := range entries {
		byID[e.bean.ID] = e
	}
	cur, ok := byID[id]
	if !ok {
		return model.Bean{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	lookup := func(ref string) (model.Bean, bool) {
		e, ok := byID[ref]
		return e.bean, ok
	}
	if err := store.ValidatePatch(cur.bean, patch, lookup); err != nil {
		return model.Bean{}, err
	}

	next := patch.Apply(cur.bean)
	next.UpdatedAt = s.now().UTC()
	data, err := Encode(next)
	if err != nil {
		return model.Bean{}, err
	}
	if err := s.replace(cur, data); err != nil {
		return model.Bean{}, err
	}
	return next, nil
}

// Create writes a new bean file. It fails if the id is taken.
func (s *Store) Create(ctx context.Context, b model.Bean) (model.Bean, error) {
	if b.ID == "" {
		return model.Bean{}, errors.New("bean id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return model.Bean{}, fmt.Errorf("creating bean directory: %w", err)
	}
	if _, err := s.find(ctx, b.ID); err == nil {
		return model.Bean{}, fmt.Errorf("bean %s already exists", b.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.Bean{}, err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	data, err := Encode(b)
	if err != nil {
		return model.Bean{}, err
	}
	if err := writeAtomic(filepath.Join(s.dir, FileName(b)), data); err != nil {
		return model.Bean{}, err
	}
	return b.Clone(), nil
}

func (s *Store) find(ctx context.Context, id string) (entry, error) {
	entries, err := s.readAll(ctx)
	if err != nil {
		return entry{}, err
	}
	for _, e := range entries {
		if e.bean.ID == id {
			return e, nil
		}
	}
	return entry{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
}

func (s *Store) readAll(ctx context.Context) ([]entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading bean directory: %w", err)
	}
	out := make([]entry, 0, len(dirents))
	seen := make(map[string]bool, len(dirents))
	for _, d := range dirents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), extension) {
			continue
		}
		path := filepath.Join(s.dir, d.Name())
		info, err := d.Info()
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.warnf("warning: skipping %s: %v", d.Name(), err)
			continue
		}
		b, err := Decode(d.Name(), data)
		if err != nil {
			s.warnf("warning: skipping %s: %v", d.Name(), err)
			continue
		}
		if seen[b.ID] {
			s.warnf("warning: skipping %s: duplicate id %s", d.Name(), b.ID)
			continue
		}
		seen[b.ID] = true
		out = append(out, entry{bean: b, path: path, mtime: info.ModTime()})
	}
	return out, nil
}

// replace writes data over cur's file, refusing when the file changed since it
// was read.
func (s *Store) replace(cur entry, data []byte) error {
	info, err := os.Stat(cur.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", cur.bean.ID, store.ErrConflict)
		}
		return err
	}
	if !info.ModTime().Equal(cur.mtime) {
		return fmt.Errorf("%s: %w", cur.bean.ID, store.ErrConflict)
	}
	return writeAtomic(cur.path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bean-*")
	if err != nil {
		return fmt.Errorf("writing bean: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing bean: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing bean: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing bean: %w", err)
	}
	return nil
}

func (s *Store) warnf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// SplitFileName returns the id and slug of "<id>--<slug>.md".
func SplitFileName(name string) (id, slug string) {
	base := strings.TrimSuffix(filepath.Base(name), extension)
	id, slug, _ = strings.Cut(base, slugSep)
	return id, slug
}

// FileName returns the file name for b.
func FileName(b model.Bean) string {
	if b.Slug == "" {
		return b.ID + extension
	}
	return b.ID + slugSep + b.Slug + extension
}

// Decode parses a bean file. The id and slug come from the file name.
func Decode(fileName string, data []byte) (model.Bean, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != fence {
		return model.Bean{}, errors.New("missing front matter")
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fence {
			end = i
			break
		}
	}
	if end < 0 {
		return model.Bean{}, errors.New("unterminated front matter")
	}

	var b model.Bean
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &b); err != nil {
		return model.Bean{}, fmt.Errorf("parsing front matter: %w", err)
	}
	b.ID, b.Slug = SplitFileName(fileName)
	b.Body = strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
	return b, nil
}

// Encode renders b as a bean file.
func Encode(b model.Bean) ([]byte, error) {
	front, err := yaml.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	buf.WriteString("# " + b.ID + "\n")
	buf.Write(front)
	buf.WriteString(fence + "\n")
	if b.Body != "" {
		buf.WriteString("\n")
		buf.WriteString(b.Body)
		if !strings.HasSuffix(b.Body, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}
