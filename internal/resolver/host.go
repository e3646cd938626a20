package resolver

import (
	"strings"

	"subgrab/pkg/urls"
)

// Host identifies which set of URL rules applies to a link.
type Host int

const (
	// HostOther is any link no rule recognises; it is returned unchanged.
	HostOther Host = iota
	// HostClip is the short clip family whose pages embed <source> tags.
	HostClip
	// HostImgurSingle is an imgur page for one image.
	HostImgurSingle
	// HostImgurAlbum is an imgur album or gallery page.
	HostImgurAlbum
	// HostMedia is a link that already ends in a media extension.
	HostMedia
)

var (
	clipHosts  = []string{"gfycat", "gifdeliverynetwork", "redgifs"}
	albumMarks = []string{"/a/", "/gallery/"}
	mediaExts  = []string{".gif", ".mp4", ".webm", ".jpg", ".jpeg", ".png"}
)

func (h Host) String() string {
	switch h {
	case HostClip:
		return "clip"
	case HostImgurSingle:
		return "imgur_single"
	case HostImgurAlbum:
		return "imgur_album"
	case HostMedia:
		return "media"
	default:
		return "other"
	}
}

// classify picks the first matching rule for an already normalised link.
func classify(link string) Host {
	switch {
	case containsAny(link, clipHosts...):
		return HostClip
	case isImgur(link) && !containsAny(link, albumMarks...):
		return HostImgurSingle
	case isImgur(link):
		return HostImgurAlbum
	case urls.HasExt(link, mediaExts...):
		return HostMedia
	default:
		return HostOther
	}
}

func isImgur(link string) bool {
	return strings.Contains(link, "/imgur.com") || urls.Host(link) == "imgur.com"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// albumKey returns the album identifier following "a/" or "gallery/".
// Example: https://imgur.com/gallery/AbC12/ => AbC12
func albumKey(link string) string {
	key := link
	if strings.Contains(link, "/a/") {
		key = key[strings.LastIndex(key, "a/")+len("a/"):]
	} else if idx := strings.LastIndex(key, "gallery/"); idx >= 0 {
		key = key[idx+len("gallery/"):]
	}

	key, _, _ = strings.Cut(key, "/")
	key, _, _ = strings.Cut(key, "#")

	return key
}
