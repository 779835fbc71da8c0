package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Ensure Router implements the interface.
var _ driven.Notifier = (*Router)(nil)

// Router dispatches to a notifier by destination scheme ("mailto", "https", ...).
type Router struct {
	routes map[string]driven.Notifier
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]driven.Notifier)}
}

// Handle registers n for scheme, replacing any previous registration.
func (r *Router) Handle(scheme string, n driven.Notifier) *Router {
	r.routes[strings.ToLower(scheme)] = n
	return r
}

// Schemes returns the registered schemes.
func (r *Router) Schemes() []string {
	schemes := make([]string, 0, len(r.routes))
	for s := range r.routes {
		schemes = append(schemes, s)
	}
	return schemes
}

// Notify forwards to the notifier registered for the destination's scheme.
func (r *Router) Notify(ctx context.Context, destination string, msg driven.Message) (string, error) {
	scheme, _, ok := strings.Cut(destination, ":")
	if !ok || scheme == "" {
		return "", fmt.Errorf("%w: %q has no scheme", domain.ErrUnsupportedDestination, destination)
	}
	n, ok := r.routes[strings.ToLower(scheme)]
	if !ok {
		return "", fmt.Errorf("%w: scheme %q", domain.ErrUnsupportedDestination, scheme)
	}
	return n.Notify(ctx, destination, msg)
}
