package remote

import (
	"errors"
	"fmt"
)

// The closed set of storage authentication modes. The mode is picked once per
// run before any remote I/O; anything outside the set is a configuration
// error, never a fallback.
const (
	AuthSAS              = "sas" // pre-shared token appended to every URL
	AuthServicePrincipal = "spn" // application identity login
	AuthManagedIdentity  = "msi" // host managed identity login
)

// ErrUnknownAuthMode is returned for auth modes outside the supported set.
var ErrUnknownAuthMode = errors.New("unknown auth mode")

func validateAuthMode(mode string) error {
	switch mode {
	case AuthSAS, AuthServicePrincipal, AuthManagedIdentity:
		return nil
	}
	return fmt.Errorf("%w: %q (want %s, %s or %s)", ErrUnknownAuthMode, mode, AuthSAS, AuthServicePrincipal, AuthManagedIdentity)
}
