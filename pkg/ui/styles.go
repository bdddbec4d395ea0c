package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/beanwork/pkg/model"
)

// Adaptive palette. Light values are darkened for contrast on white.
var (
	ColorText      = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger    = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	ColorStatusTodo       = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorStatusInProgress = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorStatusDraft      = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorStatusCompleted  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}
	ColorStatusScrapped   = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#44475A"}

	ColorPrioCritical = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
	ColorPrioHigh     = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorPrioLow      = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}

	ColorTypeMilestone = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorTypeEpic      = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorTypeFeature   = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorTypeBug       = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
	ColorTypeTask      = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
)

// Styles is the set of styles the renderer and the TUI draw with.
type Styles struct {
	Connector lipgloss.Style
	ID        lipgloss.Style
	Title     lipgloss.Style
	Score     lipgloss.Style
	Hint      lipgloss.Style
	Blocked   lipgloss.Style
	Selected  lipgloss.Style
	Marked    lipgloss.Style
	Header    lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style

	statusColor map[model.Status]lipgloss.AdaptiveColor
	typeColor   map[model.Type]lipgloss.AdaptiveColor
	plain       bool
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Connector: lipgloss.NewStyle().Foreground(ColorMuted),
		ID:        lipgloss.NewStyle().Foreground(ColorMuted),
		Title:     lipgloss.NewStyle().Foreground(ColorText),
		Score:     lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
		Hint:      lipgloss.NewStyle().Foreground(ColorStatusInProgress),
		Blocked:   lipgloss.NewStyle().Foreground(ColorDanger).Bold(true),
		Selected:  lipgloss.NewStyle().Background(ColorHighlight).Bold(true),
		Marked:    lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
		Header:    lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
		Tab:       lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1),
		ActiveTab: lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true).Padding(0, 1),
		Status:    lipgloss.NewStyle().Foreground(ColorMuted),
		Error:     lipgloss.NewStyle().Foreground(ColorDanger),
		Prompt:    lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),

		statusColor: map[model.Status]lipgloss.AdaptiveColor{
			model.StatusTodo:       ColorStatusTodo,
			model.StatusInProgress: ColorStatusInProgress,
			model.StatusDraft:      ColorStatusDraft,
			model.StatusCompleted:  ColorStatusCompleted,
			model.StatusScrapped:   ColorStatusScrapped,
		},
		typeColor: map[model.Type]lipgloss.AdaptiveColor{
			model.TypeMilestone: ColorTypeMilestone,
			model.TypeEpic:      ColorTypeEpic,
			model.TypeFeature:   ColorTypeFeature,
			model.TypeBug:       ColorTypeBug,
			model.TypeTask:      ColorTypeTask,
		},
	}
}

// PlainStyles renders text without any escape sequences, for pipes and tests.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{
		Connector: s, ID: s, Title: s, Score: s, Hint: s, Blocked: s,
		Selected: s, Marked: s, Header: s, Tab: s, ActiveTab: s,
		Status: s, Error: s, Prompt: s,
		plain: true,
	}
}

// StatusLabel is the fixed-width label shown for a status.
func StatusLabel(s model.Status) string {
	switch s {
	case model.StatusTodo:
		return "TODO"
	case model.StatusInProgress:
		return "PROG"
	case model.StatusDraft:
		return "DRFT"
	case model.StatusCompleted:
		return "DONE"
	case model.StatusScrapped:
		return "SCRP"
	default:
		return "????"
	}
}

// PriorityLabel returns P0 (critical) to P4 (deferred), or "" for normal
// and unset priorities, which carry no badge.
func PriorityLabel(p model.Priority) string {
	if p.Effective() == model.PriorityNormal || !p.IsValid() {
		return ""
	}
	return "P" + string(rune('0'+p.Rank()))
}

// TypeLetter is the one-cell type badge.
func TypeLetter(t model.Type) string {
	switch t {
	case model.TypeMilestone:
		return "M"
	case model.TypeEpic:
		return "E"
	case model.TypeFeature:
		return "F"
	case model.TypeBug:
		return "B"
	case model.TypeTask:
		return "T"
	default:
		return "·"
	}
}

// StatusBadge renders the status label in its color.
func (s Styles) StatusBadge(status model.Status) string {
	label := StatusLabel(status)
	if s.plain {
		return label
	}
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	if c, ok := s.statusColor[status]; ok {
		style = style.Foreground(c)
	}
	return style.Render(label)
}

// PriorityBadge renders the priority label, or "" when there is none.
func (s Styles) PriorityBadge(p model.Priority) string {
	label := PriorityLabel(p)
	if label == "" || s.plain {
		return label
	}
	var c lipgloss.AdaptiveColor
	switch p {
	case model.PriorityCritical:
		c = ColorPrioCritical
	case model.PriorityHigh:
		c = ColorPrioHigh
	case model.PriorityLow:
		c = ColorPrioLow
	default:
		c = ColorMuted
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(label)
}

// TypeBadge renders the type letter in its color.
func (s Styles) TypeBadge(t model.Type) string {
	letter := TypeLetter(t)
	if s.plain {
		return letter
	}
	style := lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)
	if c, ok := s.typeColor[t]; ok {
		style = style.Foreground(c)
	}
	return style.Render(letter)
}
