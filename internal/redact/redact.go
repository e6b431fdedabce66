// Package redact scrubs secrets out of text lifted from model sources
// (docstrings, default values, help texts) before it reaches a report.
package redact

import (
	"regexp"
	"strings"

	"github.com/dshills/modelcritic/internal/kind"
)

const redacted = "[REDACTED]"

// pemPattern matches PEM key blocks across multiple lines.
var pemPattern = regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+KEY-----.*?-----END [A-Z ]+KEY-----`)

// credentialURL matches the user:password part of a connection string.
var credentialURL = regexp.MustCompile(`([a-z][a-z0-9+.\-]*://[^\s:/@]+:)[^\s@]+@`)

// patterns holds single-line secret-detection regexes in priority order.
var patterns = []*regexp.Regexp{
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// sk- style API secret keys, word-boundary aware
	regexp.MustCompile(`(?:^|\s|["'])sk-[a-zA-Z0-9]{20,}`),
	// JWT tokens (three base64url segments)
	regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`),
	// Bearer tokens; require a 20-char token to avoid false positives
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]{20,}=*`),
	// Inline password assignments
	regexp.MustCompile(`(?i)password\s*[:=]\s*\S+`),
	// Django SECRET_KEY and other secret/token assignments
	regexp.MustCompile(`(?i)\b(?:secret_key|secret|api_key|apikey|token)\s*[:=]\s*\S+`),
}

// Redact replaces known secret patterns in input with [REDACTED].
// Line structure is preserved: the number of newlines in the output
// always equals the number of newlines in the input.
func Redact(input string) string {
	if input == "" {
		return input
	}
	// PEM blocks first, one marker per line so that line count is preserved.
	input = pemPattern.ReplaceAllStringFunc(input, func(match string) string {
		lines := strings.Split(match, "\n")
		for i := range lines {
			lines[i] = redacted
		}
		return strings.Join(lines, "\n")
	})

	input = credentialURL.ReplaceAllString(input, "${1}"+redacted+"@")
	for _, re := range patterns {
		input = re.ReplaceAllString(input, redacted)
	}
	return input
}

// Descriptor scrubs the free text of d in place: its docstring and every
// field's default value, help text and verbose name.
func Descriptor(d *kind.Descriptor) {
	if d == nil {
		return
	}
	d.Doc = Redact(d.Doc)
	for i := range d.Fields {
		f := &d.Fields[i]
		f.Default = Redact(f.Default)
		f.HelpText = Redact(f.HelpText)
		f.VerboseName = Redact(f.VerboseName)
	}
}
