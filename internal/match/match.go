// Package match implements the patch document's name matching language:
// brace expansion, comma-separated alternatives, shell globs, and the
// "enumeration token" index lookup used when a matched wildcard's captured
// substring becomes part of a generated name (array/cluster collection),
// plus the anchored glob regex used by strip operations.
package match

import (
	"regexp"
	"strings"
)

// Name reports whether name matches spec. An underscore-prefixed spec never
// matches anything (those are directive keys, not selectors). A spec
// containing "{" is brace-expanded into alternatives first; otherwise it is
// split on commas. Each alternative is matched as a shell glob.
func Name(name, spec string) bool {
	return Subspec(name, spec) != ""
}

// Subspec returns the first alternative within spec (after brace expansion
// or comma splitting) that name matches, or "" if none match. Note that ""
// is ambiguous with "no match" only when an alternative is itself the empty
// string, which can't glob-match a non-empty name, so callers never need to
// distinguish the two cases in practice.
func Subspec(name, spec string) string {
	if strings.HasPrefix(spec, "_") {
		return ""
	}
	for _, alt := range alternatives(spec) {
		if globMatch(name, alt) {
			return alt
		}
	}
	return ""
}

func alternatives(spec string) []string {
	if strings.Contains(spec, "{") {
		return braceExpand(spec)
	}
	return strings.Split(spec, ",")
}

// braceExpand expands a single {a,b,c} pattern (not nested) the way
// braceexpand.braceexpand does for the patterns this DSL actually uses:
// one brace group, comma-separated alternatives, fixed prefix and suffix.
func braceExpand(spec string) []string {
	start := strings.IndexByte(spec, '{')
	end := strings.IndexByte(spec, '}')
	if start < 0 || end < 0 || end < start {
		return []string{spec}
	}
	prefix := spec[:start]
	suffix := spec[end+1:]
	inner := spec[start+1 : end]
	var out []string
	for _, part := range strings.Split(inner, ",") {
		out = append(out, prefix+part+suffix)
	}
	return out
}

// globMatch is a case-sensitive shell-glob match equivalent to Python's
// fnmatch.fnmatchcase: "*" matches any run of characters, "?" matches
// exactly one, and "[...]"/"[!...]" is a character class.
func globMatch(name, pattern string) bool {
	re, err := regexp.Compile("^" + translateGlob(pattern, false) + "$")
	if err != nil {
		return false
	}
	return re.MatchString(name)
}

// translateGlob converts a shell glob into a regexp body. When lazy is true,
// "*" becomes a non-greedy ".*?" instead of a greedy ".*" — used by
// CreateRegexFromPattern, where the match is a prefix/suffix substring
// rather than a full-string match and greediness would change the result.
func translateGlob(pattern string, lazy bool) string {
	var sb strings.Builder
	star := ".*"
	if lazy {
		star = ".*?"
	}
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			sb.WriteString(star)
		case '?':
			sb.WriteString(".")
		case '[':
			j := i + 1
			if j < len(pattern) && (pattern[j] == '!' || pattern[j] == '^') {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				sb.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : j]
			class = strings.Replace(class, "!", "^", 1)
			sb.WriteString("[" + class + "]")
			i = j
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return sb.String()
}

// CreateRegexFromPattern builds the regex used by strip operations to
// remove a literal or glob-shaped substring from the start (stripEnd=false)
// or end (stripEnd=true) of a name. Wildcards are translated lazily, so a
// "*" only ever consumes the minimum text needed to let the rest of the
// pattern match — mirroring create_regex_from_pattern's post-translate
// `*` -> `*?` substitution in the original.
func CreateRegexFromPattern(substr string, stripEnd bool) *regexp.Regexp {
	body := translateGlob(substr, true)
	if stripEnd {
		return regexp.MustCompile(body + "$")
	}
	return regexp.MustCompile("^" + body)
}

// SpecIndex finds the left and right indices of the enumeration token (the
// first wildcard construct) inside spec, used to carve the "variable part"
// of a name out when collecting registers into an array or cluster.
//
// The search order on each side is asymmetric and deliberately mirrors
// spec_ind in the original: on the left, "*" is checked before "?" before
// "[", and whichever is found first (leftmost, by priority not by position)
// wins; the right side mirrors this scanning from the end, checking "*"
// before "?" before "]". This is not simply "the first bracket of any kind"
// — a spec like "RE[G]*" reports the "*" as both boundaries because "*" is
// found on both scans before the bracket forms are even tried. Faithfully
// reproduced because spec.md does not flag this as a bug to fix.
func SpecIndex(spec string) (left, right int) {
	li1 := strings.IndexByte(spec, '*')
	li2 := strings.IndexByte(spec, '?')
	li3 := strings.IndexByte(spec, '[')
	left = pick(li1, li2, li3)

	rev := reverse(spec)
	ri1 := strings.IndexByte(rev, '*')
	ri2 := strings.IndexByte(rev, '?')
	ri3 := strings.IndexByte(rev, ']')
	right = pick(ri1, ri2, ri3)
	return left, right
}

func pick(a, b, c int) int {
	if a > -1 {
		return a
	}
	if b > -1 {
		return b
	}
	return c
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
