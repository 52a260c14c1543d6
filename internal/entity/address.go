package entity

import "strings"

// AddressParts holds the structured fragments of a display address.
type AddressParts struct {
	Street          string
	Suburb          string
	City            string
	Province        string
	PostalCode      string
	FallbackAddress string
}

// ComposeAddress joins the non-empty, trimmed street, suburb, city and
// province fragments with ", ", then appends the postal code if present.
// The fallback address is returned only when the composed result is empty.
func ComposeAddress(parts AddressParts) string {
	segments := make([]string, 0, 4)
	for _, v := range []string{parts.Street, parts.Suburb, parts.City, parts.Province} {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	address := strings.Join(segments, ", ")
	if postal := strings.TrimSpace(parts.PostalCode); postal != "" {
		if address != "" {
			address = address + ", " + postal
		} else {
			address = postal
		}
	}
	if address == "" {
		return parts.FallbackAddress
	}
	return address
}
