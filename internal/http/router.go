package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux (no third-party routing
// dependency).
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler supports the http.Handler interface (static files etc).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes registers the account endpoints.
func (r *Router) RegisterAuthRoutes(a *AuthHandler, mw *AuthMiddleware) {
	r.Handle("/api/auth/register", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.Register(w, req)
	})

	r.Handle("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.Login(w, req)
	})

	r.Handle("/api/auth/me", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(a.Me)(w, req)
	})
}

// RegisterHealthRoutes registers the reading endpoints.
func (r *Router) RegisterHealthRoutes(h *HealthHandler, mw *AuthMiddleware) {
	r.Handle("/api/health/upload", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(h.Upload)(w, req)
	})

	r.Handle("/api/health/history", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(h.History)(w, req)
	})

	r.Handle("/api/health/stats", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(h.Stats)(w, req)
	})

	r.Handle("/api/health/timeseries", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(h.TimeSeries)(w, req)
	})

	r.Handle("/api/health/latest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(h.Latest)(w, req)
	})

	r.Handle("/api/health/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(h.Export)(w, req)
	})

	// record/{id}
	r.Handle("/api/health/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(req.URL.Path, "/api/health/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		mw.Require(func(w http.ResponseWriter, req *http.Request) {
			h.GetByID(w, req, id)
		})(w, req)
	})
}

// RegisterWSRoutes registers the push session endpoint.
func (r *Router) RegisterWSRoutes(h *WSHandler) {
	r.Handle("/ws/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID := strings.TrimPrefix(req.URL.Path, "/ws/")
		if userID == "" || strings.Contains(userID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.ServeWS(w, req, userID)
	})
}

// RegisterSystemRoutes registers service info, probes and static uploads.
func (r *Router) RegisterSystemRoutes(s *SystemHandler, uploadDir string) {
	r.Handle("/", s.Root)

	r.Handle("/health-check", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.HealthCheck(w, req)
	})

	r.HandleHandler("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
}
