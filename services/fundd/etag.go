package fundd

import (
	"encoding/hex"
	"net/http"
	"strings"

	"lukechampine.com/blake3"
)

// etagFor returns a strong entity tag over the serialised body.
func etagFor(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// notModified reports whether the request's If-None-Match matches etag.
func notModified(r *http.Request, etag string) bool {
	header := r.Header.Get("If-None-Match")
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}
