package extractor

// RawInfo mirrors the subset of the extraction tool's JSON metadata dump
// that we consume. Everything else the tool emits is ignored.
type RawInfo struct {
	Title     string      `json:"title"`
	Duration  *float64    `json:"duration"`
	Thumbnail *string     `json:"thumbnail"`
	Uploader  *string     `json:"uploader"`
	ViewCount *int64      `json:"view_count"`
	Formats   []RawFormat `json:"formats"`
}

// RawFormat is a single entry of the tool's format list. The tool reports
// "none" (rather than an empty string) for the missing codec of a
// video-only or audio-only stream.
type RawFormat struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Height     int    `json:"height"`
	VCodec     string `json:"vcodec"`
	ACodec     string `json:"acodec"`
	FormatNote string `json:"format_note"`
	Filesize   *int64 `json:"filesize"`
}

// IsCombinedStream reports whether this format carries both video and
// audio data. Formats which are video-only or audio-only are not offered
// to callers, as downloading them would produce an unplayable file.
func (f *RawFormat) IsCombinedStream() bool {
	return f.VCodec != "" && f.VCodec != "none" && f.ACodec != "" && f.ACodec != "none"
}
