// Package testutil provides bean fixtures for tests. All generators are
// deterministic for a given seed.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/beanwork/pkg/model"
)

// BaseTime is the timestamp fixtures count from.
var BaseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// GeneratorConfig controls bean generation.
type GeneratorConfig struct {
	Seed        int64            // 0 = use current time
	IDPrefix    string           // default "test"
	BaseTime    time.Time        // default BaseTime
	IncludeTags bool             // attach 1-3 sample tags
	StatusMix   []model.Status   // nil = all todo
	PriorityMix []model.Priority // nil = all unset
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		IDPrefix:  "test",
		BaseTime:  BaseTime,
		StatusMix: []model.Status{model.StatusTodo},
	}
}

// Generator creates bean fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
	seq int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = BaseTime
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "test"
	}
	if len(cfg.StatusMix) == 0 {
		cfg.StatusMix = []model.Status{model.StatusTodo}
	}
	if len(cfg.PriorityMix) == 0 {
		cfg.PriorityMix = []model.Priority{""}
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Bean returns the next bean of type t under parentID.
func (g *Generator) Bean(t model.Type, parentID string) model.Bean {
	n := g.seq
	g.seq++
	code := fmt.Sprintf("%04d", n)
	b := model.Bean{
		ID:        fmt.Sprintf("%s-%s", g.cfg.IDPrefix, code),
		Slug:      fmt.Sprintf("%s-%s", t, code),
		Title:     fmt.Sprintf("%s %d", titleCase(string(t)), n),
		Status:    g.cfg.StatusMix[g.rng.Intn(len(g.cfg.StatusMix))],
		Type:      t,
		Priority:  g.cfg.PriorityMix[g.rng.Intn(len(g.cfg.PriorityMix))],
		ParentID:  parentID,
		CreatedAt: g.cfg.BaseTime.Add(time.Duration(n) * time.Hour),
		UpdatedAt: g.cfg.BaseTime.Add(time.Duration(n) * time.Hour),
	}
	if g.cfg.IncludeTags {
		b.Tags = g.pickTags()
	}
	return b
}

// Hierarchy builds milestones → epics → features → tasks, breadth children per
// level, to the given depth (1 = milestones only, at most 4).
func (g *Generator) Hierarchy(roots, breadth, depth int) []model.Bean {
	levels := []model.Type{model.TypeMilestone, model.TypeEpic, model.TypeFeature, model.TypeTask}
	if depth > len(levels) {
		depth = len(levels)
	}
	var out []model.Bean
	var grow func(parentID string, level int)
	grow = func(parentID string, level int) {
		if level >= depth {
			return
		}
		count := breadth
		if level == 0 {
			count = roots
		}
		for i := 0; i < count; i++ {
			b := g.Bean(levels[level], parentID)
			out = append(out, b)
			grow(b.ID, level+1)
		}
	}
	grow("", 0)
	return out
}

// ParentCycle returns size tasks whose parents form one loop:
// 0 → 1 → … → size-1 → 0.
func (g *Generator) ParentCycle(size int) []model.Bean {
	out := make([]model.Bean, size)
	for i := range out {
		out[i] = g.Bean(model.TypeTask, "")
	}
	for i := range out {
		out[i].ParentID = out[(i+1)%size].ID
	}
	return out
}

var sampleTags = []string{"backend", "frontend", "api", "auth", "ui", "docs", "perf", "security"}

func (g *Generator) pickTags() []string {
	count := g.rng.Intn(3) + 1
	tags := make([]string, 0, count)
	used := make(map[int]bool)
	for len(tags) < count {
		idx := g.rng.Intn(len(sampleTags))
		if !used[idx] {
			used[idx] = true
			tags = append(tags, sampleTags[idx])
		}
	}
	return tags
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// QuickHierarchy is Hierarchy with default settings.
func QuickHierarchy(roots, breadth, depth int) []model.Bean {
	return NewDefault().Hierarchy(roots, breadth, depth)
}

// B builds a single bean for table tests.
func B(id string, status model.Status, t model.Type, parentID string) model.Bean {
	return model.Bean{
		ID:        id,
		Title:     id,
		Status:    status,
		Type:      t,
		ParentID:  parentID,
		CreatedAt: BaseTime,
		UpdatedAt: BaseTime,
	}
}
