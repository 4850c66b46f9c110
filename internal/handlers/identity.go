// internal/handlers/identity.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/auth"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/sirupsen/logrus"
)

const maxAliasLen = 24

// resolveIdentity reads the caller's identity once per connection. A valid token in
// the auth_token cookie or the token query parameter yields a registered identity;
// anything else is a guest named by the alias parameter.
func resolveIdentity(r *http.Request, logger *logrus.Entry) models.Identity {
	token := ""
	if ck, err := r.Cookie("auth_token"); err == nil {
		token = ck.Value
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token != "" {
		id, err := auth.AuthenticateJWT(token)
		if err == nil {
			return id
		}
		logger.WithError(err).Debug("ignoring invalid auth token, continuing as guest")
	}

	alias := strings.TrimSpace(r.URL.Query().Get("alias"))
	if alias == "" {
		alias = "Guest-" + uuid.NewString()[:4]
	}
	if runes := []rune(alias); len(runes) > maxAliasLen {
		alias = string(runes[:maxAliasLen])
	}
	return models.Guest(alias)
}
