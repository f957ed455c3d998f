package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseAuthenticator verifies Firebase ID tokens
type FirebaseAuthenticator struct {
	client *fbauth.Client
}

// NewFirebaseAuthenticator initializes the Firebase Admin SDK. An empty
// credentialsFile falls back to application default credentials.
func NewFirebaseAuthenticator(ctx context.Context, projectID, credentialsFile string) (*FirebaseAuthenticator, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firebase Auth client: %w", err)
	}
	return &FirebaseAuthenticator{client: client}, nil
}

func (a *FirebaseAuthenticator) Verify(ctx context.Context, token string) (*Principal, error) {
	t, err := a.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	p := &Principal{UID: t.UID}
	if email, ok := t.Claims["email"].(string); ok {
		p.Email = email
	}
	return p, nil
}
