// Package registry holds the set of configured bot identities and resolves
// which identity should handle a given request.
package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrDuplicateID is returned when registering an id that already exists.
	ErrDuplicateID = errors.New("bot id already registered")

	// ErrInvalidBotID is returned when a bot id is outside the [A-Z0-9_]+
	// alphabet required by the reply-correlation encoding.
	ErrInvalidBotID = errors.New("invalid bot id")

	// ErrBotNotFound is returned when no identity matches a requested id.
	ErrBotNotFound = errors.New("bot not found")
)

var idPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// Identity is one configured bot credential capable of delivering a text
// message to an external recipient.
type Identity interface {
	ID() string
	Send(ctx context.Context, recipientID int64, text string) error
}

// Registry maps bot ids to identities. It is populated once at startup and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	order []string
	bots  map[string]Identity
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{bots: make(map[string]Identity)}
}

// Register adds an identity under the given id. Registration order is
// preserved and drives the ResolveDefault fallback.
func (r *Registry) Register(id string, ident Identity) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalidBotID, id, idPattern)
	}
	if ident == nil {
		return fmt.Errorf("identity for bot %q is nil", id)
	}
	if _, exists := r.bots[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	r.bots[id] = ident
	r.order = append(r.order, id)
	return nil
}

// Resolve returns the identity registered under id.
func (r *Registry) Resolve(id string) (Identity, error) {
	ident, ok := r.bots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBotNotFound, id)
	}
	return ident, nil
}

// ResolveDefault picks the identity for a request that names no bot: each
// preferred id is tried in order, then the first registered id.
func (r *Registry) ResolveDefault(preferred []string) (Identity, error) {
	for _, id := range preferred {
		if ident, ok := r.bots[id]; ok {
			return ident, nil
		}
	}
	if len(r.order) > 0 {
		return r.bots[r.order[0]], nil
	}
	return nil, fmt.Errorf("%w: no bots registered", ErrBotNotFound)
}

// IDs returns the registered bot ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Len returns the number of registered bots.
func (r *Registry) Len() int {
	return len(r.order)
}
