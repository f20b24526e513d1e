package bluesky

import "github.com/rivo/uniseg"

// maxPostGraphemes is the Bluesky post length limit, counted in grapheme
// clusters rather than bytes or runes.
const maxPostGraphemes = 300

// TruncatePost shortens text to the post length limit. Text at or under the
// limit passes through unchanged; longer text keeps the first 299 grapheme
// clusters and appends an ellipsis so the result still fits.
func TruncatePost(text string) string {
	if uniseg.GraphemeClusterCount(text) <= maxPostGraphemes {
		return text
	}

	var kept []byte
	state := -1
	remainder := []byte(text)
	for i := 0; i < maxPostGraphemes-1 && len(remainder) > 0; i++ {
		var cluster []byte
		cluster, remainder, _, state = uniseg.FirstGraphemeCluster(remainder, state)
		kept = append(kept, cluster...)
	}
	return string(kept) + "…"
}
