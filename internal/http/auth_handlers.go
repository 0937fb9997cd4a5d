package httpapi

import (
	"errors"
	"net/http"

	"babycare-backend/internal/repository"
	"babycare-backend/internal/service"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AuthHandler serves the account endpoints.
type AuthHandler struct {
	auth     service.AuthService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(auth service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		validate: validator.New(),
		logger:   logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(registerValidationMessage(err)))
		return
	}

	user, err := h.auth.Register(r.Context(), service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			writeJSON(w, http.StatusBadRequest, Fail("Email already registered"))
			return
		}
		h.logger.Error("Failed to register user", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to create user"))
		return
	}

	writeJSON(w, http.StatusCreated, Ok(user))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("email and password are required"))
		return
	}

	resp, err := h.auth.Login(r.Context(), service.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, Fail("Incorrect email or password"))
			return
		}
		h.logger.Error("Failed to log in user", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to log in"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, Fail("invalid token"))
			return
		}
		h.logger.Error("Failed to load current user", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load user"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(user))
}

func registerValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	switch verrs[0].Field() {
	case "Email":
		if verrs[0].Tag() == "required" {
			return "email is required"
		}
		return "invalid email address"
	case "Password":
		if verrs[0].Tag() == "required" {
			return "password is required"
		}
		return "password must be at least 6 characters"
	case "Name":
		return "name must be 100 characters or less"
	default:
		return "invalid request"
	}
}
