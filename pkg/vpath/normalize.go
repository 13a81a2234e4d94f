// Package vpath implements path normalization and virtual/zip path
// classification for the PnP resolver, grounded on
// original_source/src/util.rs's normalize_path and src/fs.rs's vpath.
package vpath

import (
	"regexp"
	"strings"
)

var (
	driveLetterRoot = regexp.MustCompile(`^([A-Za-z]):[\\/]`)
	uncRoot         = regexp.MustCompile(`^\\\\([^\\/]+)[\\/]`)
)

// Normalize canonicalizes a path string to a portable, forward-slash
// form: "." and ".." components are resolved, duplicate separators are
// collapsed, and a trailing separator is preserved iff present in the
// input. An empty string normalizes to ".".
//
// Windows drive letters ("C:\foo") and UNC roots ("\\server\share")
// are translated to the portable root forms "/C:/foo" and
// "/unc/server/share" respectively.
func Normalize(input string) string {
	if input == "" {
		return "."
	}

	trailingSlash := strings.HasSuffix(input, "/") || strings.HasSuffix(input, "\\")

	rooted := false
	rest := input
	var rootPrefix string

	switch {
	case driveLetterRoot.MatchString(input):
		m := driveLetterRoot.FindStringSubmatch(input)
		rootPrefix = "/" + m[1] + ":"
		rest = input[len(m[0]):]
		rooted = true
	case uncRoot.MatchString(input):
		m := uncRoot.FindStringSubmatch(input)
		rootPrefix = "/unc/" + m[1]
		rest = input[len(m[0]):]
		rooted = true
	case strings.HasPrefix(input, "/") || strings.HasPrefix(input, "\\"):
		rest = input[1:]
		rooted = true
	}

	segments := strings.FieldsFunc(rest, func(r rune) bool { return r == '/' || r == '\\' })

	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			switch {
			case len(out) > 0 && out[len(out)-1] != "..":
				out = out[:len(out)-1]
			case rooted:
				// dropped: parent beyond root is clamped
			default:
				out = append(out, "..")
			}
		default:
			out = append(out, seg)
		}
	}

	var b strings.Builder
	switch {
	case len(out) == 0 && rooted:
		if rootPrefix != "" {
			b.WriteString(rootPrefix)
			b.WriteString("/")
		} else {
			b.WriteString("/")
		}
	case len(out) == 0:
		b.WriteString(".")
	default:
		if rooted {
			if rootPrefix != "" {
				b.WriteString(rootPrefix)
			}
			b.WriteString("/")
		}
		b.WriteString(strings.Join(out, "/"))
	}

	result := b.String()
	if trailingSlash && !strings.HasSuffix(result, "/") {
		result += "/"
	}
	return result
}
