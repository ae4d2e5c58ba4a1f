package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "authStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth",
		Summary:     "Auth status",
		Description: "Returns the current cloud sign-in state",
		Tags:        []string{"Auth"},
	}, s.handleAuthStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "beginSignIn",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Begin sign-in",
		Description: "Attempts a silent sign-in from cached credentials; returns a consent URL when user interaction is needed",
		Tags:        []string{"Auth"},
	}, s.handleBeginSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID: "completeSignIn",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/callback",
		Summary:     "Complete sign-in",
		Description: "Exchanges an authorization code for tokens",
		Tags:        []string{"Auth"},
	}, s.handleCompleteSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID: "signOut",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signout",
		Summary:     "Sign out",
		Description: "Clears cached credentials and tokens",
		Tags:        []string{"Auth"},
	}, s.handleSignOut)
}

// === DTOs ===

// AuthStatusResponse contains sign-in state in API responses.
type AuthStatusResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated" doc:"Whether a cloud account is connected"`
	User            string `json:"user,omitempty" doc:"Connected account identifier"`
}

// AuthStatusOutput wraps the auth status response for Huma.
type AuthStatusOutput struct {
	Body AuthStatusResponse
}

// BeginSignInRequest is the request body for starting sign-in.
type BeginSignInRequest struct {
	RedirectURI string `json:"redirectUri" format:"uri" doc:"OAuth redirect URI owned by the client"`
}

// BeginSignInInput wraps the begin sign-in request for Huma.
type BeginSignInInput struct {
	Body BeginSignInRequest
}

// BeginSignInResponse reports whether a silent sign-in succeeded.
type BeginSignInResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated" doc:"True when silent sign-in succeeded"`
	ConsentURL      string `json:"consentUrl,omitempty" doc:"URL to open in a browser when interaction is needed"`
}

// BeginSignInOutput wraps the begin sign-in response for Huma.
type BeginSignInOutput struct {
	Body BeginSignInResponse
}

// CompleteSignInRequest is the request body for finishing sign-in.
type CompleteSignInRequest struct {
	Code        string `json:"code" minLength:"1" doc:"Authorization code from the consent redirect"`
	RedirectURI string `json:"redirectUri" format:"uri" doc:"The redirect URI used to obtain the code"`
}

// CompleteSignInInput wraps the complete sign-in request for Huma.
type CompleteSignInInput struct {
	Body CompleteSignInRequest
}

// === Handlers ===

func (s *Server) handleAuthStatus(_ context.Context, _ *struct{}) (*AuthStatusOutput, error) {
	state := s.services.Auth.CurrentState()
	return &AuthStatusOutput{Body: AuthStatusResponse{
		IsAuthenticated: state.IsAuthenticated,
		User:            state.CurrentUser,
	}}, nil
}

func (s *Server) handleBeginSignIn(ctx context.Context, input *BeginSignInInput) (*BeginSignInOutput, error) {
	ok, err := s.services.Auth.Authenticate(ctx, false)
	if err != nil {
		return nil, err
	}
	if ok {
		return &BeginSignInOutput{Body: BeginSignInResponse{IsAuthenticated: true}}, nil
	}

	return &BeginSignInOutput{Body: BeginSignInResponse{
		IsAuthenticated: false,
		ConsentURL:      s.services.Auth.ConsentURL(input.Body.RedirectURI),
	}}, nil
}

func (s *Server) handleCompleteSignIn(ctx context.Context, input *CompleteSignInInput) (*AuthStatusOutput, error) {
	if err := s.services.Auth.CompleteSignIn(ctx, input.Body.Code, input.Body.RedirectURI); err != nil {
		return nil, err
	}

	state := s.services.Auth.CurrentState()
	return &AuthStatusOutput{Body: AuthStatusResponse{
		IsAuthenticated: state.IsAuthenticated,
		User:            state.CurrentUser,
	}}, nil
}

func (s *Server) handleSignOut(_ context.Context, _ *struct{}) (*MessageOutput, error) {
	if !s.services.Auth.SignOut() {
		return nil, huma.Error409Conflict("Not signed in")
	}
	return &MessageOutput{Body: MessageResponse{Message: "Signed out"}}, nil
}
