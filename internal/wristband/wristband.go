// Package wristband encodes and validates guest wristband codes.
//
// A code is a two or three letter prefix naming the wristband color, a
// hyphen, and five hexadecimal digits. The last digit is a checksum over the
// first four: (d0 + 3*d1 + d2 + 3*d3) mod 16. Input is case-insensitive;
// codes are stored and compared in upper case.
package wristband

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

var format = regexp.MustCompile(`^[A-Z]{2,3}-[0-9A-F]{5}$`)

// Normalize upper-cases a code and trims surrounding whitespace.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Checksum returns the check digit for four hex digits.
func Checksum(body string) (byte, error) {
	if len(body) != 4 {
		return 0, fmt.Errorf("checksum body must be 4 digits, got %d", len(body))
	}
	var d [4]int
	for i := 0; i < 4; i++ {
		v := strings.IndexByte(hexDigits, upper(body[i]))
		if v < 0 {
			return 0, fmt.Errorf("invalid hex digit %q", body[i])
		}
		d[i] = v
	}
	return hexDigits[(d[0]+3*d[1]+d[2]+3*d[3])%16], nil
}

// Validate reports whether id is well-formed and carries a correct checksum.
func Validate(id string) bool {
	id = Normalize(id)
	if !format.MatchString(id) {
		return false
	}
	digits := id[len(id)-5:]
	sum, err := Checksum(digits[:4])
	if err != nil {
		return false
	}
	return sum == digits[4]
}

// Prefix returns the letter prefix of id, or "" when id has no hyphen.
func Prefix(id string) string {
	p, _, ok := strings.Cut(Normalize(id), "-")
	if !ok {
		return ""
	}
	return p
}

// Generate returns a new random code with the given prefix.
func Generate(prefix string) (string, error) {
	prefix = strings.ToUpper(prefix)
	if !format.MatchString(prefix + "-00000") {
		return "", fmt.Errorf("invalid wristband prefix %q", prefix)
	}
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	body := make([]byte, 4)
	for i := range b {
		body[i] = hexDigits[b[i]&0x0f]
	}
	sum, _ := Checksum(string(body))
	return prefix + "-" + string(body) + string(sum), nil
}

func upper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
