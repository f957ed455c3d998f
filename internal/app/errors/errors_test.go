package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error is internal", stderrors.New("boom"), KindInternal},
		{"direct kind", Unauthenticated("no identity"), KindUnauthenticated},
		{"wrapped by fmt", fmt.Errorf("context: %w", NotFound("job", "j1")), KindNotFound},
		{"outermost kind wins", Wrap(InvalidArgument("bad", nil), KindInternal, "processing failed"), KindInternal},
		{"unavailable", Unavailable("text-to-speech"), KindUnavailable},
		{"nil has no kind", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("get: %w", ErrJobNotFound)
	assert.True(t, stderrors.Is(err, ErrJobNotFound))
	assert.False(t, stderrors.Is(err, ErrSessionNotFound))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
	assert.False(t, Is(nil, ""))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := Internal(cause, "synthesis failed")

	assert.Equal(t, "synthesis failed: dial tcp: refused", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Nil(t, Wrap(nil, KindInternal, "ignored"))
}

func TestValidationHelpers(t *testing.T) {
	err := RequiredFields("Missing required parameters (avatarId, script).", "avatarId", "script")

	var e *Error
	assert.True(t, stderrors.As(err, &e))
	assert.Equal(t, KindInvalidArgument, e.Kind())
	assert.Equal(t, map[string]string{"avatarId": "is required", "script": "is required"}, e.Fields())

	tooLong := TooLong("script", 2000)
	assert.Equal(t, KindInvalidArgument, KindOf(tooLong))
	assert.Contains(t, tooLong.Error(), "Max 2000 characters")
}
