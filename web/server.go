package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/verify.html"))

// Verifier completes a user's verification from the token in their link
type Verifier interface {
	CompleteVerification(ctx context.Context, token string) (bool, error)
}

// HealthChecker reports whether the datastore is reachable
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

type page struct {
	Title   string
	Message string
	Token   string
}

// Server serves the verification page
type Server struct {
	verifier Verifier
	health   HealthChecker
	timeout  time.Duration
}

// NewServer creates the HTTP handlers; timeout bounds each request
func NewServer(verifier Verifier, health HealthChecker, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{verifier: verifier, health: health, timeout: timeout}
}

// Router builds the chi router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/verify", s.showVerify)
	r.Post("/verify", s.completeVerify)
	r.Get("/healthz", s.healthz)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func (s *Server) showVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		render(w, http.StatusBadRequest, page{Title: "Invalid link", Message: "This verification link is incomplete."})
		return
	}
	render(w, http.StatusOK, page{
		Title:   "Verify your account",
		Message: "Press the button below to finish verification, then return to the bot and press Completed Verification.",
		Token:   token,
	})
}

func (s *Server) completeVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		render(w, http.StatusBadRequest, page{Title: "Invalid link", Message: "This verification link is incomplete."})
		return
	}

	ok, err := s.verifier.CompleteVerification(r.Context(), token)
	if err != nil {
		log.WithFields(log.Fields{
			"requestID": middleware.GetReqID(r.Context()),
			"error":     err,
		}).Error("Verification failed")
		render(w, http.StatusServiceUnavailable, page{Title: "Try again", Message: "Something went wrong. Please try again in a moment."})
		return
	}
	if !ok {
		render(w, http.StatusNotFound, page{Title: "Link not recognised", Message: "This verification link is not valid. Request a new one from the bot."})
		return
	}

	render(w, http.StatusOK, page{Title: "Verified", Message: "Your account is verified. You can close this page and return to the bot."})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Healthy(r.Context()); err != nil {
		log.WithError(err).Warn("Health check failed")
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		log.WithError(err).Error("Failed to render page")
	}
}

// requestLogger logs each request with its status and duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"requestID": middleware.GetReqID(r.Context()),
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start),
		}).Debug("Handled HTTP request")
	})
}
