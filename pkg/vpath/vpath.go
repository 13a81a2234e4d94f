package vpath

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Kind discriminates the three shapes a VPath can take.
type Kind int

const (
	KindNative Kind = iota
	KindVirtual
	KindZip
)

// VirtualSegments carries both the literal marker-and-suffix as it
// appeared in the input (FullTail) and what remains once the marker
// and its depth-consumed parent segments are stripped (ResolvedTail).
type VirtualSegments struct {
	FullTail     string
	ResolvedTail string
}

// VPath is the classified form of a path: exactly one of Native,
// Virtual, or Zip, discriminated by Kind.
type VPath struct {
	Kind Kind

	// Path is set for KindNative.
	Path string

	// BasePath is set for KindVirtual and KindZip.
	BasePath string

	// VirtualSegments is always set for KindVirtual, and optionally
	// set for KindZip (a zip path may also cross a virtual marker).
	VirtualSegments *VirtualSegments

	// ZipPath is set for KindZip: the in-archive sub-path.
	ZipPath string
}

// Native constructs a plain on-disk VPath.
func Native(p string) VPath { return VPath{Kind: KindNative, Path: p} }

// PhysicalBasePath returns the on-disk directory a Virtual or Zip path
// ultimately resolves to, joining BasePath with the resolved tail.
// For Native, it returns Path unchanged.
func (v VPath) PhysicalBasePath() string {
	switch v.Kind {
	case KindZip:
		if v.VirtualSegments == nil {
			return v.BasePath
		}
		return path.Join(v.BasePath, v.VirtualSegments.ResolvedTail)
	case KindVirtual:
		return path.Join(v.BasePath, v.VirtualSegments.ResolvedTail)
	default:
		return v.Path
	}
}

func isVirtualMarker(segment string) bool {
	return segment == "__virtual__" || segment == "$$virtual"
}

var (
	virtualHash  = regexp.MustCompile(`^[^/]+-[a-f0-9]+$`)
	virtualDepth = regexp.MustCompile(`^[0-9]+$`)
)

// Classify splits a normalized path into its Native, Virtual, or Zip
// shape. It is total: every input produces a result, with malformed
// virtual markers or zip boundaries simply degrading to Native.
func Classify(p string) VPath {
	normalized := Normalize(p)

	// Strip a leading slash so a __virtual__ marker can't accidentally
	// consume it; re-add it to base_path at the end if present.
	hadLeadingSlash := strings.HasPrefix(normalized, "/")
	relative := normalized
	if hadLeadingSlash {
		relative = normalized[1:]
	}

	var segments []string
	if relative != "" {
		segments = strings.Split(relative, "/")
	}

	baseItems := make([]string, 0, 10)
	var virtualItems, internalItems, zipItems *[]string

	i := 0
	for i < len(segments) {
		segment := segments[i]
		i++

		if zipItems != nil {
			*zipItems = append(*zipItems, segment)
			continue
		}

		if isVirtualMarker(segment) && virtualItems == nil &&
			i+1 < len(segments) && virtualHash.MatchString(segments[i]) && virtualDepth.MatchString(segments[i+1]) {
			acc := []string{segment}

			if i < len(segments) {
				acc = append(acc, segments[i]) // hash segment, validated above
				i++
			}

			if i < len(segments) {
				depthSegment := segments[i]
				i++
				acc = append(acc, depthSegment)

				if depth, err := strconv.Atoi(depthSegment); err == nil && depth >= 0 {
					take := depth
					if take > len(baseItems) {
						take = len(baseItems)
					}
					parent := append([]string(nil), baseItems[len(baseItems)-take:]...)
					baseItems = baseItems[:len(baseItems)-take]
					acc = append(parent, acc...)
				}
			}

			vi := acc
			virtualItems = &vi
			ii := make([]string, 0, 10)
			internalItems = &ii
			continue
		}

		if len(segment) > 4 && strings.HasSuffix(segment, ".zip") {
			zi := make([]string, 0, 4)
			zipItems = &zi
		}

		if virtualItems != nil {
			*virtualItems = append(*virtualItems, segment)
		}
		if internalItems != nil {
			*internalItems = append(*internalItems, segment)
		} else {
			baseItems = append(baseItems, segment)
		}
	}

	var virtualSegments *VirtualSegments
	if virtualItems != nil && internalItems != nil {
		virtualSegments = &VirtualSegments{
			FullTail:     strings.Join(*virtualItems, "/"),
			ResolvedTail: strings.Join(*internalItems, "/"),
		}
	}

	basePathOf := func() string {
		bp := strings.Join(baseItems, "/")
		if hadLeadingSlash {
			bp = "/" + bp
		}
		return bp
	}

	if zipItems != nil {
		if len(*zipItems) != 0 {
			return VPath{
				Kind:            KindZip,
				BasePath:        basePathOf(),
				VirtualSegments: virtualSegments,
				ZipPath:         strings.Join(*zipItems, "/"),
			}
		}
	}

	if virtualSegments != nil {
		return VPath{
			Kind:            KindVirtual,
			BasePath:        basePathOf(),
			VirtualSegments: virtualSegments,
		}
	}

	return Native(normalized)
}
