package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFormats(t *testing.T) {
	t.Run("filters audio-only and unknown heights, sorts descending", func(t *testing.T) {
		raw := []rawFormat{
			{FormatID: "18", Ext: "mp4", Height: 360, VCodec: "avc1"},
			{FormatID: "140", Ext: "m4a", Height: 0, VCodec: "none"},
			{FormatID: "22", Ext: "mp4", Height: 720, VCodec: "avc1", Filesize: 1024},
			{FormatID: "251", Ext: "webm", Height: 0, VCodec: "none"},
			{FormatID: "135", Ext: "mp4", Height: 480, VCodec: "avc1"},
		}

		got := normalizeFormats(raw)

		assert.Len(t, got, 3)
		assert.Equal(t, []int{720, 480, 360}, []int{got[0].Height, got[1].Height, got[2].Height})
		assert.Equal(t, "22", got[0].FormatID)
		assert.Equal(t, int64(1024), got[0].Filesize)
	})

	t.Run("drops video codecs without a known height", func(t *testing.T) {
		raw := []rawFormat{
			{FormatID: "sb0", Ext: "mhtml", Height: 0, VCodec: "mhtml"},
		}
		assert.Empty(t, normalizeFormats(raw))
	})

	t.Run("truncates to ten entries", func(t *testing.T) {
		var raw []rawFormat
		for h := 144; h <= 4320; h += 144 {
			raw = append(raw, rawFormat{FormatID: "f", Ext: "mp4", Height: h, VCodec: "vp9"})
		}

		got := normalizeFormats(raw)

		assert.Len(t, got, 10)
		assert.Equal(t, 4320, got[0].Height, "highest resolution first")
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].Height, got[i].Height)
		}
	})

	t.Run("empty input yields empty, non-nil slice", func(t *testing.T) {
		got := normalizeFormats(nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
