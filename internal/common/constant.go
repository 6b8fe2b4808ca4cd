package common

// OOBRedirectURI is the redirect URI registered for the PIN flow. The
// instance shows the authorization code to the user instead of redirecting.
const OOBRedirectURI = "urn:ietf:wg:oauth:2.0:oob"

// DefaultScopes are requested at app registration and authorization.
const DefaultScopes = "read write follow push"

// Metadata keys stored in the local key/value table.
const (
	MetadataActiveDomain = "active_domain"
	MetadataActiveUserID = "active_user_id"
	MetadataSealSalt     = "seal_salt"
	MetadataSealCheck    = "seal_check"
)
