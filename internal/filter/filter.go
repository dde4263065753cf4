package filter

import (
	"strings"

	"github.com/gobwas/glob"
)

// Selector matches dashboard names against glob patterns, so a run can
// target a subset ("the-shield") or a family ("the-*").
type Selector struct {
	g glob.Glob
}

// NewSelector compiles the patterns. No patterns means match everything.
func NewSelector(patterns []string) (*Selector, error) {
	patterns = cleanUp(patterns)
	if len(patterns) == 0 {
		return &Selector{}, nil
	}
	expr := patterns[0]
	if len(patterns) > 1 {
		expr = "{" + strings.Join(patterns, ",") + "}"
	}
	g, err := glob.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Selector{g: g}, nil
}

// Match reports whether the dashboard is selected.
func (s *Selector) Match(dashboard string) bool {
	if s.g == nil {
		return true
	}
	return s.g.Match(dashboard)
}

func cleanUp(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}
