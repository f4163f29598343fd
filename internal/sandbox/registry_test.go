package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeAPI struct {
	mu         sync.Mutex
	created    int
	destroyed  []string
	createErr  error
	destroyErr error
}

func (f *fakeAPI) Create(ctx context.Context) (Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return Instance{}, f.createErr
	}
	f.created++
	id := fmt.Sprintf("sbx-%03d", f.created)
	return Instance{RemoteID: id, BaseURL: "https://8000-" + id + ".e2b.app"}, nil
}

func (f *fakeAPI) Destroy(ctx context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyErr != nil {
		return f.destroyErr
	}
	f.destroyed = append(f.destroyed, remoteID)
	return nil
}

func TestProvisionAndGet(t *testing.T) {
	r := NewRegistry(&fakeAPI{})

	sb, err := r.Provision(context.Background(), "deploy-1")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if sb.Status != StatusActive {
		t.Errorf("Status = %q, want %q", sb.Status, StatusActive)
	}
	if sb.RemoteID == "" || sb.BaseURL == "" {
		t.Errorf("incomplete sandbox: %+v", sb)
	}

	got, err := r.Get("deploy-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != sb {
		t.Error("Get returned a different sandbox")
	}
}

func TestProvisionDuplicateName(t *testing.T) {
	r := NewRegistry(&fakeAPI{})

	if _, err := r.Provision(context.Background(), "dup"); err != nil {
		t.Fatalf("first Provision: %v", err)
	}
	_, err := r.Provision(context.Background(), "dup")
	var pe *ProvisionError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProvisionError", err)
	}
	if !errors.Is(err, ErrNameInUse) {
		t.Errorf("err = %v, want ErrNameInUse", err)
	}
}

func TestProvisionAPIFailure(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("quota exceeded")}
	r := NewRegistry(api)

	_, err := r.Provision(context.Background(), "fail")
	var pe *ProvisionError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProvisionError", err)
	}

	// Failed provisioning must free the name for a retry.
	api.createErr = nil
	if _, err := r.Provision(context.Background(), "fail"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestDestroyRemovesEntry(t *testing.T) {
	api := &fakeAPI{}
	r := NewRegistry(api)

	sb, err := r.Provision(context.Background(), "gone")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := r.Destroy(context.Background(), "gone"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if sb.Status != StatusDestroyed {
		t.Errorf("Status = %q, want %q", sb.Status, StatusDestroyed)
	}

	var nf *NotFoundError
	if _, err := r.Get("gone"); !errors.As(err, &nf) {
		t.Fatalf("Get after Destroy: err = %v, want NotFoundError", err)
	}
	if len(api.destroyed) != 1 || api.destroyed[0] != sb.RemoteID {
		t.Errorf("destroyed = %v, want [%s]", api.destroyed, sb.RemoteID)
	}
}

func TestDestroyUnknown(t *testing.T) {
	api := &fakeAPI{}
	r := NewRegistry(api)

	var nf *NotFoundError
	if err := r.Destroy(context.Background(), "nope"); !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if len(api.destroyed) != 0 {
		t.Errorf("unexpected remote destroy calls: %v", api.destroyed)
	}
}

func TestListInsertionOrder(t *testing.T) {
	r := NewRegistry(&fakeAPI{})

	for _, name := range []string{"c", "a", "b"} {
		if _, err := r.Provision(context.Background(), name); err != nil {
			t.Fatalf("Provision(%s): %v", name, err)
		}
	}

	var got []string
	for _, sb := range r.List() {
		got = append(got, sb.Name)
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List order = %v, want %v", got, want)
		}
	}
}

func TestConcurrentProvision(t *testing.T) {
	r := NewRegistry(&fakeAPI{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, name := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = r.Provision(context.Background(), name)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Provision #%d: %v", i, err)
		}
	}
	for _, name := range []string{"a", "b"} {
		if _, err := r.Get(name); err != nil {
			t.Errorf("Get(%s): %v", name, err)
		}
	}
}

func TestClose(t *testing.T) {
	api := &fakeAPI{}
	r := NewRegistry(api)

	for _, name := range []string{"x", "y"} {
		if _, err := r.Provision(context.Background(), name); err != nil {
			t.Fatalf("Provision(%s): %v", name, err)
		}
	}
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(r.List()) != 0 {
		t.Errorf("registry not empty after Close: %v", r.List())
	}
	if len(api.destroyed) != 2 {
		t.Errorf("destroyed %d sandboxes, want 2", len(api.destroyed))
	}
}
