package catalog

import (
	"net/url"
	"strings"
)

// KeySeparator joins the OS and denomination in a catalog key.
const KeySeparator = "-"

// RedirectPath is the route a list entry links back to.
const RedirectPath = "./downloadRedirect"

// Key returns the catalog key for an OS and denomination.
func Key(os, denom string) string {
	return os + KeySeparator + denom
}

// Prefix returns the listing prefix for an OS.
func Prefix(os string) string {
	return os + KeySeparator
}

// Denom strips the OS prefix from a listed key. ok is false when the key
// does not carry the prefix, which a conforming store never returns.
func Denom(os, key string) (string, bool) {
	return strings.CutPrefix(key, Prefix(os))
}

// RedirectLink builds the relative link a client follows to download one
// entry. Plain identifiers pass through escaping unchanged.
func RedirectLink(os, denom string) string {
	return RedirectPath + "?os=" + url.QueryEscape(os) + "&denom=" + url.QueryEscape(denom)
}
