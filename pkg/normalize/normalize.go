// Package normalize provides text normalization used only for capability
// content matching, never for hashing. The normalized form is never stored:
// manifest and file hashes always reflect raw bytes.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Text applies, in order: Unicode NFC normalization, then CRLF/lone-CR to LF
// newline canonicalization. Invalid UTF-8 is left as-is by norm.NFC (it
// passes invalid sequences through unchanged), so content matching over a
// binary or non-UTF-8 file simply degrades to raw-byte matching rather than
// failing.
func Text(raw []byte) string {
	s := norm.NFC.String(string(raw))
	return canonicalizeNewlines(s)
}

func canonicalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}
