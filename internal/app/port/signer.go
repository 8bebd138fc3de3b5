package port

// TokenSigner produces a short-lived bearer token bound to one request.
type TokenSigner interface {
	// Sign returns a token for method and path. path is the request target without scheme or
	// query string and must match the request actually sent.
	Sign(method, path string) (string, error)
}
