// SPDX-License-Identifier: MIT

package auth

import (
	"net/http"
	"strings"
)

// ExtractToken retrieves the bearer token from the Authorization header.
// Query parameters and cookies are never consulted.
func ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
