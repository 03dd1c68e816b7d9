package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galleria-app/galleria/pkg/storage"
)

func TestHandleErrorPassesThroughServerErrors(t *testing.T) {
	original := NewForbiddenError("item")
	handled := HandleError(fmt.Errorf("executing command: %w", original))
	require.Equal(t, original, handled)
}

func TestHandleErrorMapsStorageSentinels(t *testing.T) {
	handled := HandleError(storage.ErrNotFound)
	require.Equal(t, http.StatusNotFound, handled.HTTPStatus)
	require.Equal(t, CodeNotFound, handled.ErrorCode)
}

func TestHandleErrorHidesInternalDetail(t *testing.T) {
	cause := errors.New("pq: connection refused on 10.0.0.5")
	handled := HandleError(cause)

	require.Equal(t, http.StatusInternalServerError, handled.HTTPStatus)
	require.Equal(t, InternalServerErrorMsg, handled.Message)
	require.NotContains(t, handled.Message, "10.0.0.5")
	require.ErrorIs(t, handled.Internal(), cause)
}

func TestConflictConstructors(t *testing.T) {
	tests := []struct {
		err  *ServerError
		code string
	}{
		{NewDuplicateRegistrationError("t1"), CodeDuplicateRegistration},
		{NewCapacityExceededError("t1"), CodeCapacityExceeded},
		{NewWindowClosedError("t1"), CodeWindowClosed},
		{NewAlreadyExistsError("submission"), CodeAlreadyExists},
	}

	for _, test := range tests {
		require.Equal(t, http.StatusConflict, test.err.HTTPStatus)
		require.Equal(t, test.code, test.err.ErrorCode)
	}
}
