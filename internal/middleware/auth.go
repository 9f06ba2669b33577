package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"CapIot.dashboard/internal/models"
	"CapIot.dashboard/internal/utils"
)

// AuthConfig holds the Auth0 tenant used to validate bearer tokens. An
// empty Issuer disables authentication.
type AuthConfig struct {
	Issuer   string
	Audience string
}

func (c AuthConfig) Enabled() bool {
	return c.Issuer != ""
}

// NewAuth returns a middleware that requires a valid RS256 access token,
// or a pass-through when auth is disabled.
func NewAuth(cfg AuthConfig, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	if cfg.Audience == "" {
		return nil, errors.New("auth: audience is required when an issuer is set")
	}

	issuerURL, err := url.Parse(cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("auth: parse issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: set up jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Info("rejected request", "path", r.URL.Path, "error", err)
		apiErr := models.NewAPIError(models.ErrorCodeUnauthorized, "Failed to validate JWT", nil, http.StatusUnauthorized)
		utils.RespondWithError(w, apiErr)
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)
	return mw.CheckJWT, nil
}
