package domain

import "strings"

// Token audiences. The audience claim unambiguously selects the principal
// domain a token resolves against.
const (
	AudienceOwnerPlatform     = "OWNER_PLATFORM"
	AudienceEmailVerification = "EMAIL_VERIFICATION"

	endUserAudiencePrefix = "END_USER_PROJECT:"
)

// EndUserAudience builds the audience value for an end-user login token
// scoped to the given project.
func EndUserAudience(projectID string) string {
	return endUserAudiencePrefix + projectID
}

// ParseEndUserAudience extracts the project id from an end-user audience
// value. ok is false when aud is not an end-user audience.
func ParseEndUserAudience(aud string) (projectID string, ok bool) {
	if !strings.HasPrefix(aud, endUserAudiencePrefix) {
		return "", false
	}
	projectID = strings.TrimPrefix(aud, endUserAudiencePrefix)
	if projectID == "" {
		return "", false
	}
	return projectID, true
}
