package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindAuthenticationRequired, http.StatusUnauthorized},
		{KindPermissionDenied, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindAuditWrite, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.kind.HTTPStatus())
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	err := New(KindPermissionDenied, "cannot manage group")
	assert.Equal(t, "permission_denied: cannot manage group", err.Error())

	cause := errors.New("row missing")
	wrapped := Wrap(KindNotFound, "group lookup", cause)
	assert.Contains(t, wrapped.Error(), "not_found: group lookup")
	assert.Contains(t, wrapped.Error(), "row missing")
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOf(t *testing.T) {
	err := Newf(KindValidation, "bad limit %d", -1)

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindValidation, kind)

	// Kind survives further wrapping.
	outer := fmt.Errorf("query activity: %w", err)
	assert.True(t, IsKind(outer, KindValidation))
	assert.False(t, IsKind(outer, KindNotFound))

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
