package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Instance is a freshly created remote sandbox as reported by the
// provisioning API.
type Instance struct {
	RemoteID string
	BaseURL  string
}

// Provisioner is the subset of the provisioning API the registry needs.
type Provisioner interface {
	Create(ctx context.Context) (Instance, error)
	Destroy(ctx context.Context, remoteID string) error
}

// Registry maps caller-chosen names to live sandboxes. One instance is owned
// by the process: created at startup, torn down with Close at shutdown. A
// fault on one sandbox never touches the entries of the others.
type Registry struct {
	api Provisioner

	mu      sync.Mutex
	entries map[string]*Sandbox
	pending map[string]struct{}
	order   []string
	now     func() time.Time
}

// NewRegistry creates an empty registry backed by the given provisioner.
func NewRegistry(api Provisioner) *Registry {
	return &Registry{
		api:     api,
		entries: make(map[string]*Sandbox),
		pending: make(map[string]struct{}),
		now:     time.Now,
	}
}

// Provision requests a new remote sandbox and registers it under name.
// Provisioning an existing name fails with ErrNameInUse rather than
// replacing the entry — replacement would silently leak the old remote
// sandbox. The name is reserved before the API call so concurrent
// provisions of the same name conflict instead of racing, while provisions
// of different names proceed in parallel.
func (r *Registry) Provision(ctx context.Context, name string) (*Sandbox, error) {
	r.mu.Lock()
	if _, ok := r.entries[name]; ok {
		r.mu.Unlock()
		return nil, &ProvisionError{Name: name, Err: ErrNameInUse}
	}
	if _, ok := r.pending[name]; ok {
		r.mu.Unlock()
		return nil, &ProvisionError{Name: name, Err: ErrNameInUse}
	}
	r.pending[name] = struct{}{}
	r.mu.Unlock()

	inst, err := r.api.Create(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, name)
	if err != nil {
		return nil, &ProvisionError{Name: name, Err: err}
	}

	sb := &Sandbox{
		Name:      name,
		RemoteID:  inst.RemoteID,
		BaseURL:   inst.BaseURL,
		CreatedAt: r.now(),
		Status:    StatusActive,
	}
	r.entries[name] = sb
	r.order = append(r.order, name)
	return sb, nil
}

// Get returns the sandbox registered under name.
func (r *Registry) Get(name string) (*Sandbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sb, ok := r.entries[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return sb, nil
}

// List returns a snapshot of all registered sandboxes in insertion order.
func (r *Registry) List() []*Sandbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*Sandbox, 0, len(r.entries))
	for _, name := range r.order {
		result = append(result, r.entries[name])
	}
	return result
}

// Destroy releases the remote sandbox and removes the registry entry.
// Destroying an unknown or already-destroyed name fails with NotFoundError
// and has no side effect. The entry is removed before the remote release so
// the name is freed even if the release itself fails; the returned error
// reports a failed release for the caller to retry out of band.
func (r *Registry) Destroy(ctx context.Context, name string) error {
	r.mu.Lock()
	sb, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{Name: name}
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	sb.Status = StatusDestroyed
	r.mu.Unlock()

	if err := r.api.Destroy(ctx, sb.RemoteID); err != nil {
		return fmt.Errorf("releasing sandbox %q (remote %s): %w", name, sb.RemoteID, err)
	}
	return nil
}

// Close tears the registry down, destroying every sandbox it still tracks.
// Best-effort: the first release error is returned after all entries have
// been attempted.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.Unlock()

	var firstErr error
	for _, name := range names {
		if err := r.Destroy(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
