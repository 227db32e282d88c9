package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	tokens map[string]bool
	err    error
	calls  []string
}

func (s *stubVerifier) CompleteVerification(_ context.Context, token string) (bool, error) {
	s.calls = append(s.calls, token)
	if s.err != nil {
		return false, s.err
	}
	return s.tokens[token], nil
}

type stubHealth struct {
	err error
}

func (s stubHealth) Healthy(context.Context) error { return s.err }

func serve(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestVerifyPage(t *testing.T) {
	verifier := &stubVerifier{}
	srv := NewServer(verifier, stubHealth{}, 0)

	rec := serve(t, srv, http.MethodGet, "/verify?token=abc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/verify?token=abc"`)
	assert.Empty(t, verifier.calls, "viewing the page does not verify")

	rec = serve(t, srv, http.MethodGet, "/verify")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteVerification(t *testing.T) {
	tests := []struct {
		name     string
		verifier *stubVerifier
		target   string
		status   int
		body     string
	}{
		{"valid token", &stubVerifier{tokens: map[string]bool{"abc": true}}, "/verify?token=abc", http.StatusOK, "Your account is verified"},
		{"unknown token", &stubVerifier{tokens: map[string]bool{}}, "/verify?token=nope", http.StatusNotFound, "not valid"},
		{"missing token", &stubVerifier{}, "/verify", http.StatusBadRequest, "incomplete"},
		{"store down", &stubVerifier{err: errors.New("db down")}, "/verify?token=abc", http.StatusServiceUnavailable, "try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, NewServer(tt.verifier, stubHealth{}, 0), http.MethodPost, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestCompleteVerification_Repeat(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]bool{"abc": true}}
	srv := NewServer(verifier, stubHealth{}, 0)

	for i := 0; i < 2; i++ {
		rec := serve(t, srv, http.MethodPost, "/verify?token=abc")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, []string{"abc", "abc"}, verifier.calls)
}

func TestHealthz(t *testing.T) {
	rec := serve(t, NewServer(&stubVerifier{}, stubHealth{}, 0), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, NewServer(&stubVerifier{}, stubHealth{err: errors.New("down")}, 0), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTokenIsEscapedInPage(t *testing.T) {
	rec := serve(t, NewServer(&stubVerifier{}, stubHealth{}, 0), http.MethodGet, `/verify?token=%22%3E%3Cscript%3E`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
}
