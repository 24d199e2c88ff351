package tenancy

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidOrgID is returned by ParseOrgID.
var ErrInvalidOrgID = errors.New("tenancy: org id must be 1-64 letters, digits, '-' or '_'")

// Org ids become part of Redis keys, S3 prefixes and Kafka message keys.
var orgIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

type orgCtxKey struct{}

// ParseOrgID trims raw and checks it against the org id alphabet.
func ParseOrgID(raw string) (string, error) {
	orgID := strings.TrimSpace(raw)
	if !orgIDPattern.MatchString(orgID) {
		return "", ErrInvalidOrgID
	}
	return orgID, nil
}

// WithOrgID scopes ctx to a tenant.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgCtxKey{}, orgID)
}

// OrgIDFromContext returns the tenant ctx is scoped to.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	orgID, _ := ctx.Value(orgCtxKey{}).(string)
	return orgID, orgID != ""
}
