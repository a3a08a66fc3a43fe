package service

import (
	"context"
	"strings"
)

type RouteKind int

const (
	RagPath RouteKind = iota
	FastPath
)

func (k RouteKind) String() string {
	if k == FastPath {
		return "fast"
	}
	return "rag"
}

type Route struct {
	Kind   RouteKind
	Intent string
}

// Rule sends questions containing any of Keywords to the fast path for Intent.
type Rule struct {
	Intent   string
	Keywords []string
}

// DefaultRules is used when no routing table is configured.
var DefaultRules = []Rule{{Intent: IntentTimetable, Keywords: []string{"timetable", "schedule"}}}

// Router picks the first rule with a keyword contained in the question,
// ignoring case. Questions matching no rule go to retrieval.
type Router struct {
	rules []Rule
}

func NewRouter(rules []Rule) *Router {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		if r.Intent == "" || len(kw) == 0 {
			continue
		}
		normalized = append(normalized, Rule{Intent: r.Intent, Keywords: kw})
	}
	return &Router{rules: normalized}
}

func (r *Router) Route(question string) Route {
	q := strings.ToLower(question)
	for _, rule := range r.rules {
		for _, k := range rule.Keywords {
			if strings.Contains(q, k) {
				return Route{Kind: FastPath, Intent: rule.Intent}
			}
		}
	}
	return Route{Kind: RagPath}
}

// FastPathHandler answers one intent without embedding or generation.
type FastPathHandler interface {
	Handle(ctx context.Context, question string) (string, error)
}

type FastPathFunc func(ctx context.Context, question string) (string, error)

func (f FastPathFunc) Handle(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}
