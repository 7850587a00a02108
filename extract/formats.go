package extract

import "sort"

// Keep only the best handful of variants in the probe response.
const maxFormats = 10

// Format is one downloadable quality variant offered to the client. Its
// FormatID round-trips verbatim as the quality selector of a later download.
type Format struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	Height   int    `json:"height"`
	Filesize int64  `json:"filesize"`
}

// MediaInfo is the probe result shown in the picker UI.
type MediaInfo struct {
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Duration  float64  `json:"duration"`
	Uploader  string   `json:"uploader"`
	ViewCount int64    `json:"view_count"`
	Formats   []Format `json:"formats"`
}

// DirectLink is a resolved upstream URL for the proxy-download flow.
type DirectLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Ext   string `json:"ext"`
}

// rawFormat mirrors the tool's per-format record before filtering.
type rawFormat struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	Height   int    `json:"height"`
	Filesize int64  `json:"filesize"`
	VCodec   string `json:"vcodec"`
}

// normalizeFormats filters out audio-only entries and anything without a
// known vertical resolution, sorts descending by height, and truncates.
func normalizeFormats(raw []rawFormat) []Format {
	formats := make([]Format, 0, len(raw))
	for _, f := range raw {
		if f.VCodec == "none" || f.Height <= 0 {
			continue
		}
		formats = append(formats, Format{
			FormatID: f.FormatID,
			Ext:      f.Ext,
			Height:   f.Height,
			Filesize: f.Filesize,
		})
	}

	sort.SliceStable(formats, func(i, j int) bool {
		return formats[i].Height > formats[j].Height
	})

	if len(formats) > maxFormats {
		formats = formats[:maxFormats]
	}
	return formats
}
