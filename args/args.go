// Package args implements the literal ${key} placeholder substitutor
// shared by JVM and game argument assembly.
package args

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Substitute replaces every ${key} occurrence in s using values. Multiple
// occurrences of the same key are all replaced. A placeholder with no
// entry in values is left verbatim and logged as unresolved.
func Substitute(s string, values map[string]string) string {
	var b strings.Builder
	rest := s

	for {
		start := strings.Index(rest, "${")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}")
		if end == -1 {
			b.WriteString(rest)
			break
		}
		end += start

		b.WriteString(rest[:start])
		key := rest[start+2 : end]

		if value, ok := values[key]; ok {
			b.WriteString(value)
		} else {
			log.Warn().Str("variable", key).Msg("unresolved variable")
			b.WriteString(rest[start : end+1])
		}

		rest = rest[end+1:]
	}

	return b.String()
}

// SubstituteAll applies Substitute to every element of tokens.
func SubstituteAll(tokens []string, values map[string]string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = Substitute(t, values)
	}
	return out
}
