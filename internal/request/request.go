// Package request holds per-request values shared by middleware and handlers.
package request

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

var organizationIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// WithID stores the request id in ctx.
func WithID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ID returns the request id stored by WithID, or "".
func ID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ParseOrganizationID validates an organization id taken from a URL.
func ParseOrganizationID(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if !organizationIDRegex.MatchString(value) {
		return "", false
	}
	return value, true
}

// OrganizationID reads the {id} path value.
func OrganizationID(r *http.Request) (string, bool) {
	organizationID, ok := ParseOrganizationID(r.PathValue("id"))
	if !ok {
		log.Ctx(r.Context()).
			Debug().
			Str("path", r.URL.Path).
			Msg("Invalid organization id in path")
	}
	return organizationID, ok
}
