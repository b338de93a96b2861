package media

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type (
	// VideoFormat describes one encoded stream/container combination offered
	// for a video. The FormatID is an opaque token minted by the extraction
	// tool; it is the only thing a caller needs to hand back to download
	// that exact stream.
	VideoFormat struct {
		FormatID   string  `json:"format_id"`
		Ext        string  `json:"ext"`
		Quality    string  `json:"quality"`
		Filesize   *int64  `json:"filesize,omitempty"`
		FormatNote *string `json:"format_note,omitempty"`
	}

	// VideoInfo is the reshaped metadata for a single video. It is
	// recomputed on every lookup and never persisted.
	VideoInfo struct {
		Title     string        `json:"title"`
		Duration  *int          `json:"duration,omitempty"`
		Thumbnail *string       `json:"thumbnail,omitempty"`
		Uploader  *string       `json:"uploader,omitempty"`
		ViewCount *int64        `json:"view_count,omitempty"`
		Formats   []VideoFormat `json:"formats"`
		URL       string        `json:"url"`
	}
)

const UnknownQuality = "Unknown"

// QualityLabel derives the display quality for a format: the pixel height
// rendered as "<height>p" when known, otherwise the tool's free-text note,
// otherwise "Unknown".
func QualityLabel(height int, note string) string {
	if height > 0 {
		return fmt.Sprintf("%dp", height)
	}
	if note != "" {
		return note
	}

	return UnknownQuality
}

// SortFormatsByQuality orders formats by descending numeric quality.
// Labels with no numeric portion rank as zero and therefore sort after
// every numeric label; ties keep their relative order.
func SortFormatsByQuality(formats []VideoFormat) {
	sort.SliceStable(formats, func(i, j int) bool {
		return numericQuality(formats[i].Quality) > numericQuality(formats[j].Quality)
	})
}

func numericQuality(label string) int {
	stripped := strings.ReplaceAll(label, "p", "")
	if v, err := strconv.Atoi(stripped); err == nil {
		return v
	}

	return 0
}
