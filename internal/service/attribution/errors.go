package attribution

import "errors"

// Sentinel errors for the attribution resolver.
var (
	// ErrNotFound means the code matches no ambassador. Expected and
	// recoverable; callers must not treat it as exceptional.
	ErrNotFound = errors.New("ambassador not found")

	// ErrAmbiguous means a code matched more than one ambassador. Codes
	// are unique at write time, so this indicates the uniqueness invariant
	// was bypassed at the storage layer. Fatal integrity error.
	ErrAmbiguous = errors.New("code matches multiple ambassadors")

	// ErrBlankCode means the input was empty after trimming.
	ErrBlankCode = errors.New("code must not be blank")
)
