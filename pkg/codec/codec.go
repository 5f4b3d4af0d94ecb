// Package codec reads and writes the group prefix embedded in an entry
// comment. A tagged comment looks like "::Group Name:: Title".
package codec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidName is returned when a group name is empty after normalisation,
// contains the "::" delimiter, or starts or ends with a colon.
var ErrInvalidName = errors.New("codec: invalid group name")

const delimiter = "::"

var (
	prefixRE     = regexp.MustCompile(`(?s)^::([^:].*?)::\s*(.*)$`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// Normalize trims the name and collapses interior whitespace runs to a
// single space.
func Normalize(name string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(name), " ")
}

// Decode splits a raw comment into its group and title. A missing, malformed
// or empty prefix yields an empty group and the raw text as title. Decode
// never fails.
func Decode(raw string) (group, title string) {
	if raw == "" {
		return "", ""
	}
	m := prefixRE.FindStringSubmatch(raw)
	if m == nil {
		return "", raw
	}
	name := Normalize(m[1])
	if name == "" {
		return "", raw
	}
	return name, strings.TrimSpace(m[2])
}

// Encode builds a tagged comment for group and title.
func Encode(group, title string) string {
	out := delimiter + Normalize(group) + delimiter + " " + strings.TrimSpace(title)
	return strings.TrimRight(out, " \t\r\n")
}

// Retitle keeps the group of raw and replaces its title.
func Retitle(raw, title string) string {
	group, _ := Decode(raw)
	if group == "" {
		return strings.TrimSpace(title)
	}
	return Encode(group, title)
}

// Regroup moves raw into group, keeping its title. An empty group strips the
// prefix.
func Regroup(raw, group string) string {
	_, title := Decode(raw)
	if Normalize(group) == "" {
		return title
	}
	return Encode(group, title)
}

// ValidateGroupName returns the normalised name or an error wrapping
// ErrInvalidName.
func ValidateGroupName(name string) (string, error) {
	n := Normalize(name)
	if n == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.Contains(n, delimiter) {
		return "", fmt.Errorf("%w: %q must not contain %q", ErrInvalidName, n, delimiter)
	}
	if strings.HasPrefix(n, ":") || strings.HasSuffix(n, ":") {
		return "", fmt.Errorf("%w: %q must not start or end with a colon", ErrInvalidName, n)
	}
	return n, nil
}
