package password

import (
	"strings"
	"unicode"
)

// MinLength is the minimum accepted password length.
const MinLength = 8

// Passwords seen at the top of public breach corpora. Matched
// case-insensitively; not exhaustive, but catches the worst offenders.
var commonPasswords = map[string]struct{}{
	"123456":      {},
	"123456789":   {},
	"12345678":    {},
	"1234567890":  {},
	"password":    {},
	"password1":   {},
	"password123": {},
	"qwerty":      {},
	"qwerty123":   {},
	"qwertyuiop":  {},
	"abc123":      {},
	"letmein":     {},
	"welcome":     {},
	"welcome1":    {},
	"monkey":      {},
	"dragon":      {},
	"sunshine":    {},
	"princess":    {},
	"football":    {},
	"baseball":    {},
	"iloveyou":    {},
	"trustno1":    {},
	"superman":    {},
	"master":      {},
	"shadow":      {},
	"michael":     {},
	"jennifer":    {},
	"computer":    {},
	"11111111":    {},
	"00000000":    {},
	"aa123456":    {},
	"admin123":    {},
	"passw0rd":    {},
	"p@ssw0rd":    {},
	"changeme":    {},
	"secret":      {},
	"internet":    {},
	"starwars":    {},
}

// Validate checks a candidate password against the registration policy and
// returns one message per violated rule, empty when the password passes.
// The rules: minimum length, not entirely numeric, not trivially similar
// to the username, not on the common-password list.
func Validate(plaintext, username string) []string {
	var problems []string

	if len(plaintext) < MinLength {
		problems = append(problems, "password must be at least 8 characters")
	}

	if plaintext != "" && allNumeric(plaintext) {
		problems = append(problems, "password cannot be entirely numeric")
	}

	// Very short usernames would make the containment check reject nearly
	// everything, so the similarity rule needs at least three characters.
	lower := strings.ToLower(plaintext)
	user := strings.ToLower(strings.TrimSpace(username))
	if len(user) >= 3 && lower != "" && (strings.Contains(lower, user) || strings.Contains(user, lower)) {
		problems = append(problems, "password is too similar to the username")
	}

	if _, ok := commonPasswords[lower]; ok {
		problems = append(problems, "password is too common")
	}

	return problems
}

func allNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
