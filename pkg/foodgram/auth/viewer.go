package auth

// Viewer is the caller of a request: either anonymous or an authenticated
// user. It is resolved once by Authenticate and passed on explicitly.
type Viewer struct {
	userID        uint
	authenticated bool
}

// Anonymous returns the viewer of an unauthenticated request.
func Anonymous() Viewer {
	return Viewer{}
}

// User returns the viewer for an authenticated user.
func User(id uint) Viewer {
	return Viewer{userID: id, authenticated: true}
}

// IsAuthenticated reports whether the viewer is a logged-in user.
func (v Viewer) IsAuthenticated() bool {
	return v.authenticated
}

// UserID returns the user id and whether the viewer is authenticated.
func (v Viewer) UserID() (uint, bool) {
	return v.userID, v.authenticated
}

// Is reports whether the viewer is the authenticated user id.
func (v Viewer) Is(id uint) bool {
	return v.authenticated && v.userID == id
}
