package model

// CredentialPair holds the access/refresh token pair issued by the backend on
// login or refresh. Both values are opaque to the client. The pair is always
// replaced as a whole; a half-updated pair is never valid.
type CredentialPair struct {
	Access  string
	Refresh string
}

// IsZero returns true when neither token is present (logged out).
func (p CredentialPair) IsZero() bool {
	return p.Access == "" && p.Refresh == ""
}

// HasAccess returns true when an access token is present.
func (p CredentialPair) HasAccess() bool {
	return p.Access != ""
}

// HasRefresh returns true when a refresh token is present.
func (p CredentialPair) HasRefresh() bool {
	return p.Refresh != ""
}
