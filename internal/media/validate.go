package media

import "regexp"

// videoURLPattern is a deliberately permissive shape-check for the video
// host URLs we accept: optional scheme and www, the known domain variants,
// one of the recognised path forms (or any query carrying a 'v' parameter)
// and an 11 character video identifier. Anchored at the start only; any
// trailing content (extra query params, fragments) is allowed.
var videoURLPattern = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/` +
		`(watch\?v=|embed/|v/|.+\?v=)?([^&=%?]{11})`)

// IsValidVideoURL reports whether the given string looks like a video URL
// we are willing to hand to the extraction tool. Rejecting here is the
// cheap path: no external process is ever spawned for input that fails
// this check.
func IsValidVideoURL(url string) bool {
	return videoURLPattern.MatchString(url)
}
