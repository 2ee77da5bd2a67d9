// Package qr produces and parses the verification codes printed on crop
// batch labels. A code is "gl-" followed by alphanumerics; the scannable
// image encodes a verify URL carrying the code as its last path segment.
package qr

import (
	"fmt"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const codePrefix = "gl-"

var (
	codePattern = regexp.MustCompile(`^gl-[a-zA-Z0-9]+$`)
	nonAlnum    = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// Code derives the verification code for a product id. Separators are
// stripped so the code stays scannable as a single token.
func Code(productID string) string {
	return codePrefix + nonAlnum.ReplaceAllString(productID, "")
}

// Valid reports whether code is a well-formed verification code.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}

// ShortID returns the product fragment of a code, or "" when the code is
// not well-formed.
func ShortID(code string) string {
	if !Valid(code) {
		return ""
	}
	return strings.TrimPrefix(code, codePrefix)
}

// VerifyURL builds the URL encoded into the QR image.
func VerifyURL(baseURL, code string) string {
	return fmt.Sprintf("%s/verify/%s", strings.TrimRight(baseURL, "/"), code)
}

// CodeFromURL extracts the verification code from a scanned verify URL.
// Returns "" when the URL does not carry a well-formed code.
func CodeFromURL(url string) string {
	idx := strings.LastIndex(url, "/verify/")
	if idx < 0 {
		return ""
	}
	code := url[idx+len("/verify/"):]
	if i := strings.IndexAny(code, "?#"); i >= 0 {
		code = code[:i]
	}
	if !Valid(code) {
		return ""
	}
	return code
}

// PNG renders the verify URL for a code as a QR image.
func PNG(baseURL, code string, size int) ([]byte, error) {
	if !Valid(code) {
		return nil, fmt.Errorf("invalid verification code %q", code)
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(VerifyURL(baseURL, code), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
