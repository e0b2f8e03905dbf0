package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/siacollections/storefront/internal/platform/config"
)

const (
	signInEndpoint       = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"
	defaultVerifyTimeout = 10 * time.Second
)

// ErrInvalidCredentials is returned when Firebase rejects the email/password
// pair.
var ErrInvalidCredentials = errors.New("firebase auth: invalid credentials")

// FirebaseVerifier signs in dashboard users against Firebase Authentication.
// The email/password pair goes through the Identity Toolkit REST endpoint
// (the Admin SDK cannot check passwords); the resulting user record is then
// loaded through the Admin SDK for display name and custom claims.
type FirebaseVerifier struct {
	apiKey     string
	client     *firebaseauth.Client
	httpClient *http.Client
	timeout    time.Duration
}

// FirebaseOption customises FirebaseVerifier instances.
type FirebaseOption func(*FirebaseVerifier)

// WithVerifyTimeout overrides the timeout used for sign-in calls.
func WithVerifyTimeout(d time.Duration) FirebaseOption {
	return func(v *FirebaseVerifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithHTTPClient overrides the HTTP client used for the REST sign-in call.
func WithHTTPClient(client *http.Client) FirebaseOption {
	return func(v *FirebaseVerifier) {
		if client != nil {
			v.httpClient = client
		}
	}
}

// NewFirebaseVerifier constructs a FirebaseVerifier backed by the Admin SDK.
func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig, opts ...FirebaseOption) (*FirebaseVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	if cfg.WebAPIKey == "" {
		return nil, errors.New("firebase web api key is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}

	verifier := &FirebaseVerifier{
		apiKey:     cfg.WebAPIKey,
		client:     authClient,
		httpClient: http.DefaultClient,
		timeout:    defaultVerifyTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(verifier)
		}
	}
	return verifier, nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
}

// SignInWithPassword checks the email/password pair and returns the Firebase
// user record on success. Wrong credentials, unknown users and disabled
// accounts all come back as ErrInvalidCredentials.
func (v *FirebaseVerifier) SignInWithPassword(ctx context.Context, email, password string) (*firebaseauth.UserRecord, error) {
	if v == nil || v.client == nil {
		return nil, errors.New("firebase verifier not initialised")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	payload, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("encode sign-in request: %w", err)
	}

	endpoint := signInEndpoint + "?key=" + url.QueryEscape(v.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign-in request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		// Identity Toolkit reports EMAIL_NOT_FOUND, INVALID_PASSWORD and
		// USER_DISABLED all as 400.
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("sign-in request: unexpected status %d", resp.StatusCode)
	}

	var body signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode sign-in response: %w", err)
	}
	if body.LocalID == "" {
		return nil, ErrInvalidCredentials
	}

	record, err := v.client.GetUser(ctx, body.LocalID)
	if err != nil {
		return nil, fmt.Errorf("load firebase user %s: %w", body.LocalID, err)
	}
	if record.Disabled {
		return nil, ErrInvalidCredentials
	}
	return record, nil
}
