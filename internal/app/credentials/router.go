// Package credentials picks the media backend for a session language.
package credentials

import (
	"strings"

	"github.com/dkeye/Classroom/internal/core"
	"github.com/dkeye/Classroom/internal/domain"
)

// Router maps exactly one language to the primary backend and every other
// language to the secondary one. A missing secondary degrades to primary.
type Router struct {
	primaryLanguage string
	primary         core.Credentials
	secondary       core.Credentials
}

func NewRouter(primaryLanguage string, primary, secondary core.Credentials) *Router {
	primary.Name = "primary"
	secondary.Name = "secondary"
	return &Router{
		primaryLanguage: normalize(primaryLanguage),
		primary:         primary,
		secondary:       secondary,
	}
}

// Select is deterministic and never consults the network.
func (r *Router) Select(language string) core.Credentials {
	if normalize(language) == r.primaryLanguage {
		return r.primary
	}
	if !r.secondary.Configured() {
		return r.primary
	}
	return r.secondary
}

// SelectConfigured is Select plus the configuration check callers surface as 5xx.
func (r *Router) SelectConfigured(language string) (core.Credentials, error) {
	c := r.Select(language)
	if !c.Configured() {
		return core.Credentials{}, domain.ErrNotConfigured
	}
	return c, nil
}

// All returns the distinct configured backends.
func (r *Router) All() []core.Credentials {
	out := []core.Credentials{}
	if r.primary.Configured() {
		out = append(out, r.primary)
	}
	if r.secondary.Configured() {
		out = append(out, r.secondary)
	}
	return out
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
