package releaseservice

import (
	"errors"
	"fmt"
)

// ErrOwnerRequired: a create-path upload arrived without an
// authenticated owner, so no App can be found or created for it.
var ErrOwnerRequired = errors.New("no channel key given and no authenticated owner to create an app for")

// BundleMismatchError rejects a package whose bundle identifier does not
// match the channel's enforced one. Raised before anything is persisted,
// so no version number is consumed.
type BundleMismatchError struct {
	Expected string
	Actual   string
}

func (e *BundleMismatchError) Error() string {
	return fmt.Sprintf("bundle id mismatch: channel enforces %q, package carries %q", e.Expected, e.Actual)
}
