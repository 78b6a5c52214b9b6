package cache

// Key layout shared by the route cache, the engine's invalidation and the session hooks.
const (
	routePrefix   = "route:"
	studentPrefix = "student:"
	revokedPrefix = "revoked:"
)

// RouteKey is the ephemeral-tier key of a cached GET response for uri.
// Used as a prefix, RouteKey("/api/hostels") covers every nested path and query.
func RouteKey(uri string) string {
	return routePrefix + uri
}

// StudentPrefix covers every session-tier entry owned by studentID.
func StudentPrefix(studentID string) string {
	return studentPrefix + studentID + ":"
}

// StudentKey is a session-tier key owned by studentID.
func StudentKey(studentID, name string) string {
	return StudentPrefix(studentID) + name
}

// RevokedKey marks a revoked token ID in the durable tier.
func RevokedKey(tokenID string) string {
	return revokedPrefix + tokenID
}
