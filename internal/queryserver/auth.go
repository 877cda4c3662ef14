package queryserver

import "crypto/subtle"

// checkAuth reports whether req carries the expected bearer token.
// Uses a constant-time comparison so a timing side channel can't be
// used to brute-force the token byte by byte.
func checkAuth(req Request, expected string) bool {
	if len(req.Token) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(req.Token), []byte(expected)) == 1
}
