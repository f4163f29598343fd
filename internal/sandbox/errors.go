package sandbox

import (
	"errors"
	"fmt"
)

// ErrNameInUse reports a provisioning request for a name the registry
// already tracks.
var ErrNameInUse = errors.New("sandbox name already in use")

// NotFoundError reports an operation against a sandbox name the registry
// does not know.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sandbox %q not found", e.Name)
}

// ProvisionError reports that a sandbox could not be provisioned, either
// because the name conflicts or because the provisioning API failed.
type ProvisionError struct {
	Name string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning sandbox %q: %v", e.Name, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
