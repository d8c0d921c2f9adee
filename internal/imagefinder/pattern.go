// pattern.go: deterministic candidate URL construction for the direct probe tier.
package imagefinder

import (
	"strings"
)

const (
	productImagePath = "/out/pictures/master/product/1/"
	productImageExt  = ".jpg"
)

// CandidateURL returns the direct image URL for a catalog identifier on the
// given host. The identifier is lower-cased, so "ABC123" and "abc123" yield
// the same URL. An empty identifier returns ErrInvalidIdentifier.
func CandidateURL(host, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidIdentifier
	}
	return strings.TrimSuffix(host, "/") + productImagePath + strings.ToLower(id) + productImageExt, nil
}

// IdentifierFromURL recovers the identifier embedded in a candidate URL,
// the same substring CandidateURL put there. Reports false if the URL does
// not follow the candidate pattern.
func IdentifierFromURL(raw string) (string, bool) {
	i := strings.Index(raw, productImagePath)
	if i < 0 {
		return "", false
	}
	rest := raw[i+len(productImagePath):]
	j := strings.LastIndex(rest, ".")
	if j <= 0 {
		return "", false
	}
	return rest[:j], true
}
