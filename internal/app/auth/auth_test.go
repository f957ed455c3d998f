package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAuthenticator(t *testing.T) {
	a := NewStaticAuthenticator(map[string]string{"dev-token": "u1", "blank": ""})

	p, err := a.Verify(context.Background(), "dev-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UID)

	_, err = a.Verify(context.Background(), "other")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.Verify(context.Background(), "blank")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))

	ctx = WithPrincipal(ctx, &Principal{UID: "u1"})
	require.NotNil(t, FromContext(ctx))
	assert.Equal(t, "u1", FromContext(ctx).UID)
}
