// Package beanscli is a BeanStore that shells out to the beans command line
// tool and reads its JSON output.
package beanscli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/beanwork/pkg/debug"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/store"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "beans"

// Runner executes one command and returns its stdout and stderr.
type Runner func(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Store talks to the beans binary.
type Store struct {
	binary string
	dir    string
	run    Runner
}

// Option configures a Store.
type Option func(*Store)

// WithBinary sets the executable. Empty keeps DefaultBinary.
func WithBinary(path string) Option {
	return func(s *Store) {
		if path != "" {
			s.binary = path
		}
	}
}

// WithDir runs the tool in dir, the project root holding .beans.
func WithDir(dir string) Option {
	return func(s *Store) { s.dir = dir }
}

// WithRunner replaces os/exec, for tests.
func WithRunner(r Runner) Option {
	return func(s *Store) { s.run = r }
}

// New returns a CLI-backed store.
func New(opts ...Option) *Store {
	s := &Store{binary: DefaultBinary, run: ExecRunner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ store.BeanStore = (*Store)(nil)
	_ store.Searcher  = (*Store)(nil)
)

// SupportsSearch is true: the tool evaluates --search itself.
func (s *Store) SupportsSearch() bool { return true }

// wireBean is the JSON shape the tool prints.
type wireBean struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug,omitempty"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Parent    string    `json:"parent,omitempty"`
	Blocking  []string  `json:"blocking,omitempty"`
	BlockedBy []string  `json:"blocked_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Body      string    `json:"body,omitempty"`
}

func (w wireBean) bean() model.Bean {
	return model.Bean{
		ID:           w.ID,
		Slug:         w.Slug,
		Title:        w.Title,
		Status:       model.Status(w.Status),
		Type:         model.Type(w.Type),
		Priority:     model.Priority(w.Priority),
		Tags:         w.Tags,
		ParentID:     w.Parent,
		BlockingIDs:  w.Blocking,
		BlockedByIDs: w.BlockedBy,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
		Body:         w.Body,
	}
}

// List runs "beans list --json" with the filter as flags.
func (s *Store) List(ctx context.Context, f model.ListFilter) ([]model.Bean, error) {
	args := []string{"list", "--json"}
	for _, st := range f.Status {
		args = append(args, "--status", string(st))
	}
	for _, t := range f.Type {
		args = append(args, "--type", string(t))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "--search", q)
	}

	out, err := s.exec(ctx, args...)
	if err != nil {
		return nil, err
	}
	var wire []wireBean
	if err := json.Unmarshal(out, &wire); err != nil {
		return nil, fmt.Errorf("beans list: decoding output: %w", err)
	}
	beans := make([]model.Bean, len(wire))
	for i, w := range wire {
		beans[i] = w.bean()
	}
	return beans, nil
}

// Show runs "beans show --json <id>".
func (s *Store) Show(ctx context.Context, id string) (model.Bean, error) {
	out, err := s.exec(ctx, "show", "--json", id)
	if err != nil {
		return model.Bean{}, err
	}
	return decodeOne("show", out)
}

// Update runs "beans update --json <id>" with one flag per patch field. The
// tool validates the hierarchy; its refusals come back as ValidationError.
func (s *Store) Update(ctx context.Context, id string, patch model.Patch) (model.Bean, error) {
	if err := store.ValidatePatch(model.Bean{ID: id}, patch, nil); err != nil {
		return model.Bean{}, err
	}
	args := append([]string{"update", "--json", id}, PatchArgs(patch)...)
	out, err := s.exec(ctx, args...)
	if err != nil {
		var cerr *CommandError
		if errors.As(err, &cerr) && cerr.kind() == "invalid" {
			return model.Bean{}, &store.ValidationError{ID: id, Reason: cerr.Message()}
		}
		return model.Bean{}, err
	}
	return decodeOne("update", out)
}

// PatchArgs renders patch as beans update flags.
func PatchArgs(p model.Patch) []string {
	var args []string
	if p.Status != nil {
		args = append(args, "--status", string(*p.Status))
	}
	if p.Type != nil {
		args = append(args, "--type", string(*p.Type))
	}
	if p.Priority != nil {
		args = append(args, "--priority", string(*p.Priority))
	}
	switch {
	case p.ClearParent:
		args = append(args, "--remove-parent")
	case p.ParentID != nil:
		args = append(args, "--parent", *p.ParentID)
	}
	for _, id := range p.AddBlocking {
		args = append(args, "--blocking", id)
	}
	for _, id := range p.RemoveBlocking {
		args = append(args, "--remove-blocking", id)
	}
	for _, id := range p.AddBlockedBy {
		args = append(args, "--blocked-by", id)
	}
	for _, id := range p.RemoveBlockedBy {
		args = append(args, "--remove-blocked-by", id)
	}
	return args
}

func decodeOne(verb string, out []byte) (model.Bean, error) {
	var w wireBean
	if err := json.Unmarshal(out, &w); err != nil {
		return model.Bean{}, fmt.Errorf("beans %s: decoding output: %w", verb, err)
	}
	return w.bean(), nil
}

// CommandError is a failed invocation of the tool.
type CommandError struct {
	Args   []string
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("beans %s: %v\n%s", strings.Join(e.Args, " "), e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Message returns the tool's own explanation, falling back to the exec error.
func (e *CommandError) Message() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return e.Err.Error()
}

// Is maps the tool's messages onto the store sentinels.
func (e *CommandError) Is(target error) bool {
	switch target {
	case store.ErrNotFound:
		return e.kind() == "not-found"
	case store.ErrConflict:
		return e.kind() == "conflict"
	}
	return false
}

func (e *CommandError) kind() string {
	msg := strings.ToLower(e.Stderr)
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "no such bean"):
		return "not-found"
	case strings.Contains(msg, "modified"), strings.Contains(msg, "conflict"):
		return "conflict"
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "cannot"):
		return "invalid"
	}
	return ""
}

func (s *Store) exec(ctx context.Context, args ...string) ([]byte, error) {
	debug.Log("beanscli: %s %s", s.binary, strings.Join(args, " "))
	stdout, stderr, err := s.run(ctx, s.dir, s.binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &CommandError{Args: args, Err: err, Stderr: strings.TrimSpace(string(stderr))}
	}
	return stdout, nil
}
