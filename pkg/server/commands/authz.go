package commands

import (
	"errors"

	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// checkReadAccess hides private resources from non-owners. A private
// resource is reported as not found, never as forbidden, so its
// existence does not leak.
func checkReadAccess(visibility storage.Visibility, ownerID, principalID, resource, id string) error {
	if visibility == storage.VisibilityPublic || ownerID == principalID {
		return nil
	}
	return serverErrors.NewNotFoundError(resource, id)
}

// checkWriteAccess permits mutation only by the owner. Unlike reads,
// a visible-but-foreign resource yields forbidden rather than not
// found.
func checkWriteAccess(ownerID, principalID, resource string) error {
	if ownerID == principalID {
		return nil
	}
	return serverErrors.NewForbiddenError(resource)
}

// notFoundOrInternal maps storage.ErrNotFound to a typed not-found
// error and everything else to an internal error.
func notFoundOrInternal(err error, resource, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return serverErrors.NewNotFoundError(resource, id)
	}
	return serverErrors.NewInternalError("", err)
}
