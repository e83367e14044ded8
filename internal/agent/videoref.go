package agent

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	videoURLPattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:[^\s#]*&)?v=|embed/|shorts/|live/)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	videoIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ValidVideoID reports whether s has the shape of a YouTube video id.
func ValidVideoID(s string) bool {
	return videoIDPattern.MatchString(s)
}

// ParseVideoRef accepts either a video URL or a bare video id, as passed in
// an operation argument.
func ParseVideoRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ValidVideoID(ref) {
		return ref, true
	}
	if m := videoURLPattern.FindStringSubmatch(ref); m != nil {
		return m[1], true
	}
	return "", false
}

// ExtractVideoID finds a video reference inside free text. URLs are
// preferred; a bare 11-character token only counts when it does not look
// like an ordinary word.
func ExtractVideoID(text string) (string, bool) {
	if m := videoURLPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !isIDRune(r)
	})
	for _, tok := range tokens {
		if len(tok) == 11 && looksLikeID(tok) {
			return tok, true
		}
	}
	return "", false
}

func isIDRune(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_')
}

// looksLikeID rejects plain words. A bare token needs a digit or an
// uppercase letter after the first position; hyphens alone appear in
// ordinary words like "first-class".
func looksLikeID(tok string) bool {
	for i, r := range tok {
		switch {
		case unicode.IsDigit(r):
			return true
		case i > 0 && unicode.IsUpper(r):
			return true
		}
	}
	return false
}
