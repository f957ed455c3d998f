package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "dubstudio/internal/app/errors"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    ErrorKind
		message string
	}{
		{"unauthenticated", apperrors.ErrUnauthenticated, http.StatusUnauthorized, KindUnauthorized, "the function must be called while authenticated"},
		{"invalid argument", apperrors.TooLong("script", 2000), http.StatusUnprocessableEntity, KindValidation, "script is too long. Max 2000 characters."},
		{"not found", apperrors.ErrJobNotFound, http.StatusNotFound, KindNotFound, "job not found"},
		{"wrapped not found", fmt.Errorf("load: %w", apperrors.ErrSessionNotFound), http.StatusNotFound, KindNotFound, "chat session not found"},
		{"unavailable", apperrors.Unavailable("Text-to-Speech"), http.StatusServiceUnavailable, KindServiceUnavailable, "Text-to-Speech client not available"},
		{"internal hides cause", apperrors.Internal(fmt.Errorf("dial tcp: refused"), "failed to start avatar video"), http.StatusInternalServerError, KindInternal, "failed to start avatar video"},
		{"untyped", fmt.Errorf("boom"), http.StatusInternalServerError, KindInternal, "Internal server error"},
		{"already an api error", NewBadRequestError("bad json"), http.StatusBadRequest, KindBadRequest, "bad json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromDomain(tt.err)
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestFromDomain_KeepsFieldDetails(t *testing.T) {
	apiErr := FromDomain(apperrors.RequiredFields("Missing required parameters (videoUrl).", "videoUrl"))
	assert.Equal(t, map[string]string{"videoUrl": "is required"}, apiErr.Details)
	assert.Nil(t, FromDomain(nil))
}
