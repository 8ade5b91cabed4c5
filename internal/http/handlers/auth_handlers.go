package handlers

import (
	"errors"
	"net/http"

	"github.com/PeterGeers/myadmin/internal/auth"
	"github.com/PeterGeers/myadmin/internal/repo"
)

// LoginHandler godoc
// @Summary Authenticate user and return an access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body CredentialsRequest true "username and password"
// @Success 200 {object} auth.TokenPair
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /login [post]
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var credentials CredentialsRequest
	if err := readJSON(w, r, &credentials); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}

	pair, err := authService.Login(r.Context(), credentials.Username, credentials.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		requestLog(r).WithField("username", credentials.Username).Warn("failed login")
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not log in")
		return
	}
	respond(w, r, http.StatusOK, pair)
}

// RefreshTokenHandler godoc
// @Summary Exchange a refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "refresh token"
// @Success 200 {object} auth.TokenPair
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /token/refresh [post]
func RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := readJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		errorJSON(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := authService.Refresh(r.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrUnknownRefreshToken) {
		errorJSON(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not refresh token")
		return
	}
	respond(w, r, http.StatusOK, pair)
}

// CreateUserHandler godoc
// @Summary Create user with roles and tenants
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param user body CreateUserRequest true "User to create"
// @Success 201 {object} CreateUserResult
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /admin/users [post]
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := readJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid input")
		return
	}
	if errs := validateUser(req); len(errs) > 0 {
		validationJSON(w, errs)
		return
	}

	user, err := authService.CreateUser(r.Context(), req.Username, req.Password, req.Roles, req.Tenants)
	if errors.Is(err, repo.ErrDuplicatedValueUnique) {
		errorJSON(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		internalError(w, r, err, "could not create user")
		return
	}
	requestLog(r).WithField("username", user.Username).Info("user created")
	respond(w, r, http.StatusCreated, CreateUserResult{
		ID:       user.ID,
		Username: user.Username,
		Roles:    user.Roles,
		Tenants:  user.Tenants,
	})
}
