package config

import (
	"os"
	"regexp"
	"strings"
)

// refPattern matches ${VAR} and ${VAR:-default}, optionally escaped as
// $${VAR}. Group 1 is the escape, 2 the name, 3 the ":-" marker, 4 the default.
var refPattern = regexp.MustCompile(`(\$?)\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnv substitutes environment references in a reel.yaml body before
// it is parsed, so that webhook tokens and redis URLs need not be committed.
//
//   - ${VAR} is the value of VAR, or empty when unset
//   - ${VAR:-default} is the value of VAR, or default when unset or empty
//   - $${VAR} is the literal text ${VAR}
//
// A reference that expands to nothing is caught later by Validate or by
// the flag checks (an empty adapter url, for instance).
func ExpandEnv(input string) string {
	return expandWith(input, os.LookupEnv)
}

func expandWith(input string, lookup func(string) (string, bool)) string {
	matches := refPattern.FindAllStringSubmatchIndex(input, -1)
	if matches == nil {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	last := 0
	for _, m := range matches {
		b.WriteString(input[last:m[0]])
		last = m[1]

		if m[3] > m[2] { // escaped
			b.WriteString(input[m[0]+1 : m[1]])
			continue
		}
		name := input[m[4]:m[5]]
		if value, ok := lookup(name); ok && value != "" {
			b.WriteString(value)
		} else if m[6] >= 0 {
			b.WriteString(input[m[8]:m[9]])
		}
	}
	b.WriteString(input[last:])
	return b.String()
}
