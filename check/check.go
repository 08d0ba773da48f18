// Package check provides the value-format checkers used by structural entity
// checks: URL syntax, URI classification, ISO dates, checksums, size strings,
// MIME types and national identifiers.
//
// Every checker is a pure function of its input, except IsPastDate which
// reads the clock through Now.
package check

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrFormat is matched by every error returned from a checker.
var ErrFormat = errors.New("invalid format")

// FormatError reports a value that does not have the named format.
type FormatError struct {
	Format string
	Value  string
}

func (e *FormatError) Error() string { return fmt.Sprintf("invalid %s: %q", e.Format, e.Value) }

// Is makes errors.Is(err, ErrFormat) hold for every FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func invalid(format, v string) error { return &FormatError{Format: format, Value: v} }

// Func is the signature shared by the string checkers.
type Func func(string) error

// Now returns the current time. Tests replace it to pin the date used by
// IsPastDate.
var Now = time.Now

// URIKind classifies the form of a URI reference.
type URIKind int

const (
	RelPath URIKind = iota
	AbsPath
	URLKind
)

func (k URIKind) String() string {
	switch k {
	case URLKind:
		return "URL"
	case AbsPath:
		return "abs_path"
	default:
		return "rel_path"
	}
}

// quoteSafe lists the bytes left unescaped before parsing, next to ASCII
// letters, digits and "_.-~".
const quoteSafe = "!#$&'()*+,/:;=?@[]\\"

// quote percent-escapes every byte outside the safe set so that parsing does
// not fail on spaces or non-ASCII input.
func quote(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '_', c == '.', c == '-', c == '~', strings.IndexByte(quoteSafe, c) >= 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func parseURI(s string) (*url.URL, string, error) {
	q := quote(s)
	u, err := url.Parse(q)
	return u, q, err
}

// URL checks that s is an http or https URL with a host.
func URL(s string) error {
	u, _, err := parseURI(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("URL", s)
	}
	return nil
}

var windowsAbs = regexp.MustCompile(`^([A-Za-z]:[\\/]|\\\\)`)

// ClassifyURI reports whether s is a URL, an absolute path (POSIX, Windows or
// file: URI) or a relative path.
func ClassifyURI(s string) (URIKind, error) {
	u, q, err := parseURI(s)
	if err != nil {
		return RelPath, invalid("URI", s)
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return URLKind, nil
	}
	if strings.HasPrefix(q, "/") || windowsAbs.MatchString(q) || u.Scheme == "file" {
		return AbsPath, nil
	}
	return RelPath, nil
}

const isoDateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	if len(s) != len(isoDateLayout) {
		return time.Time{}, invalid("date", s)
	}
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return time.Time{}, invalid("date", s)
	}
	return t, nil
}

// ISODate checks that s is a calendar date in the form YYYY-MM-DD.
func ISODate(s string) error {
	_, err := parseDate(s)
	return err
}

// IsPastDate reports whether the date s is today or earlier.
func IsPastDate(s string) (bool, error) {
	d, err := parseDate(s)
	if err != nil {
		return false, err
	}
	now := Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !d.After(today), nil
}

var sha256Pattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

// SHA256 checks that s is a hex-encoded SHA-256 digest.
func SHA256(s string) error {
	if !sha256Pattern.MatchString(s) {
		return invalid("sha256", s)
	}
	return nil
}

// Over100GB is the open-ended bound accepted where a size limit is declared.
const Over100GB = "over100GB"

var (
	contentSizePattern = regexp.MustCompile(`^(\d+)([KMGTP]?B)$`)
	boundSizePattern   = regexp.MustCompile(`^\d+[KMGTP]B$`)
)

// ContentSize checks a file size such as "1560B" or "2GB".
func ContentSize(s string) error {
	if !contentSizePattern.MatchString(s) {
		return invalid("size", s)
	}
	return nil
}

// BoundSize checks a declared size bound: an integer with a unit from KB to
// PB, or the sentinel "over100GB".
func BoundSize(s string) error {
	if s == Over100GB || boundSizePattern.MatchString(s) {
		return nil
	}
	return invalid("size bound", s)
}

// ParseSize splits a size string into its integer value and unit.
func ParseSize(s string) (int64, string, error) {
	m := contentSizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, "", invalid("size", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", invalid("size", s)
	}
	return n, m[2], nil
}

var emailPattern = regexp.MustCompile(`^[\w\-_]+(.[\w\-_]+)*@([\w][\w\-]*[\w]\.)+[A-Za-z]{2,}$`)

// Email checks the shape of an email address.
func Email(s string) error {
	if !emailPattern.MatchString(s) {
		return invalid("email", s)
	}
	return nil
}

var phonePattern = regexp.MustCompile(`^(0(\d\-?\d{4}|\d{2}\-?\d{3}|\d{3}\-?\d{2}|\d{4}\-?\d)\-?\d{4}|0[5789]0\-?\d{4}\-?\d{4})$`)

// PhoneNumber checks a Japanese landline or mobile number, with or without hyphens.
func PhoneNumber(s string) error {
	if !phonePattern.MatchString(s) {
		return invalid("phone number", s)
	}
	return nil
}

// ERadResearcherNumber checks an eight digit e-Rad researcher number whose
// leading digit is the check digit over the remaining seven.
func ERadResearcherNumber(s string) error {
	if len(s) != 8 {
		return invalid("e-Rad researcher number", s)
	}
	sum := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return invalid("e-Rad researcher number", s)
		}
		if i == 0 {
			continue
		}
		d := int(s[i] - '0')
		if i%2 == 0 {
			d *= 2
		}
		sum += d
	}
	if sum%10 != int(s[0]-'0') {
		return invalid("e-Rad researcher number", s)
	}
	return nil
}

var orcidPattern = regexp.MustCompile(`^(\d{4}-){3}\d{3}[\dX]$`)

// ORCID checks the form and ISO 7064 11,2 checksum of an ORCID iD such as
// "0000-0002-1825-0097".
func ORCID(s string) error {
	if !orcidPattern.MatchString(s) {
		return invalid("ORCID iD", s)
	}
	digits := strings.ReplaceAll(s, "-", "")
	total := 0
	for _, c := range digits[:len(digits)-1] {
		total = (total + int(c-'0')) * 2
	}
	want := (12 - total%11) % 11
	got := 10
	if last := digits[len(digits)-1]; last != 'X' {
		got = int(last - '0')
	}
	if got != want {
		return invalid("ORCID iD", s)
	}
	return nil
}
