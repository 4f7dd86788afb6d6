// Package intent maps recognised question shapes to rule computations.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ken-1511/howard-financial/internal/rules"
)

// Binding is a computation bound to one query, with its display label.
type Binding struct {
	Compute rules.ScalarRule
	Formula string
}

// BuildFunc builds a Binding from the original query text.
type BuildFunc func(query string) Binding

// Intent pairs a trigger pattern with the computation it builds.
type Intent struct {
	Name    string
	Pattern *regexp.Regexp
	Build   BuildFunc
	// Accept, when set, must also return true for the intent to match.
	Accept func(query string) bool
}

// New compiles expr case-insensitively. It panics on an invalid pattern;
// intents are declared at startup.
func New(name, expr string, build BuildFunc) Intent {
	return Intent{
		Name:    name,
		Pattern: regexp.MustCompile("(?i)" + expr),
		Build:   build,
	}
}

// When returns a copy of in that only matches queries accept approves.
func (in Intent) When(accept func(query string) bool) Intent {
	in.Accept = accept
	return in
}

// Registry is an ordered, read-only list of intents.
type Registry struct {
	intents []Intent
}

// Match is the outcome of a successful registry lookup.
type Match struct {
	Intent  string
	Binding Binding
}

// NewRegistry returns a registry holding intents in the given order.
// Panics on a duplicate name.
func NewRegistry(intents ...Intent) *Registry {
	seen := make(map[string]bool, len(intents))
	list := make([]Intent, 0, len(intents))
	for _, in := range intents {
		key := strings.ToLower(in.Name)
		if seen[key] {
			panic("duplicate intent: " + key)
		}
		if in.Pattern == nil || in.Build == nil {
			panic(fmt.Sprintf("intent %q: pattern and build are required", in.Name))
		}
		seen[key] = true
		list = append(list, in)
	}
	return &Registry{intents: list}
}

// Match returns the binding of the first intent, in registration order, whose
// pattern matches anywhere in query and whose Accept guard, if any, agrees.
// ok is false when nothing matches.
func (r *Registry) Match(query string) (m Match, ok bool) {
	for _, in := range r.intents {
		if in.Pattern.MatchString(query) && (in.Accept == nil || in.Accept(query)) {
			return Match{Intent: in.Name, Binding: in.Build(query)}, true
		}
	}
	return Match{}, false
}

// Names returns intent names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.intents))
	for i, in := range r.intents {
		names[i] = in.Name
	}
	return names
}

// Len returns the number of registered intents.
func (r *Registry) Len() int {
	return len(r.intents)
}
