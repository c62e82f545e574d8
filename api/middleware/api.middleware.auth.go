// FilePath: api/middleware/api.middleware.auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Nerzal/gocloak/v13"
	"github.com/spoilsense/spoilsense/internal/errors"
)

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

type KeycloakMiddleware struct {
	client *gocloak.GoCloak
	config KeycloakConfig
}

type UserContext struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func NewKeycloakMiddleware(config KeycloakConfig) *KeycloakMiddleware {
	return &KeycloakMiddleware{
		client: gocloak.NewClient(config.URL),
		config: config,
	}
}

// Authenticate validates the bearer token and adds the user identity and
// roles to the request context. The roles drive field-level filtering in
// the service layer.
func (k *KeycloakMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}

		result, err := k.client.RetrospectToken(r.Context(), token, k.config.ClientID, k.config.ClientSecret, k.config.Realm)
		if err != nil || result.Active == nil || !*result.Active {
			handleError(w, errors.NewAuthError("invalid token", err))
			return
		}

		roles, err := k.client.GetRealmRoles(r.Context(), token, k.config.Realm, gocloak.GetRoleParams{})
		if err != nil {
			handleError(w, errors.NewAuthError("failed to get realm roles", err))
			return
		}

		userInfo, err := k.client.GetUserInfo(r.Context(), token, k.config.Realm)
		if err != nil {
			handleError(w, errors.NewAuthError("failed to get user info", err))
			return
		}

		userContext := &UserContext{
			ID:       deref(userInfo.Sub),
			Username: deref(userInfo.PreferredUsername),
			Email:    deref(userInfo.Email),
			Roles:    extractRoles(roles),
		}

		ctx := context.WithValue(r.Context(), "user", userContext)
		ctx = context.WithValue(ctx, "user_roles", userContext.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles middleware ensures user has required roles
func (k *KeycloakMiddleware) RequireRoles(roles []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := r.Context().Value("user").(*UserContext)
			if !ok {
				handleError(w, errors.NewAuthError("no user context found", nil))
				return
			}

			if !hasRequiredRoles(user.Roles, roles) {
				handleError(w, errors.NewAuthorizationError("insufficient permissions", nil))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions

func extractToken(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	parts := strings.Split(bearerToken, " ")
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}

func extractRoles(roles []*gocloak.Role) []string {
	var roleStrings []string
	for _, role := range roles {
		if role.Name != nil {
			roleStrings = append(roleStrings, *role.Name)
		}
	}
	return roleStrings
}

func hasRequiredRoles(userRoles, requiredRoles []string) bool {
	if len(requiredRoles) == 0 {
		return true
	}

	roleMap := make(map[string]bool)
	for _, role := range userRoles {
		roleMap[role] = true
	}

	for _, required := range requiredRoles {
		if required == "*" {
			return true
		}
		if !roleMap[required] {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func handleError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		http.Error(w, apiErr.Message, apiErr.Code)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
