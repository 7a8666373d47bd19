package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ytdesk/internal/domain"
)

const sampleInfoJSON = `{"title":"T","thumbnail":"http://x/y.jpg","duration":125,"channel":"C","formats":[` +
	`{"format_id":"140","ext":"m4a","vcodec":"none","acodec":"mp4a.40.2","abr":128},` +
	`{"format_id":"137","ext":"mp4","vcodec":"avc1.640028","acodec":"none","height":1080,"fps":30}]}`

func TestParseMetadata_SampleDocument(t *testing.T) {
	meta, err := parseMetadata([]byte(sampleInfoJSON))
	require.NoError(t, err)

	assert.Equal(t, "T", meta.Title)
	assert.Equal(t, "http://x/y.jpg", meta.Thumbnail)
	assert.Equal(t, "C", meta.Uploader)
	assert.Equal(t, float64(125), meta.Duration)

	require.Len(t, meta.VideoFormats, 1)
	assert.Equal(t, "137", meta.VideoFormats[0].FormatID)
	assert.Equal(t, "1080p30fps [avc1]", meta.VideoFormats[0].QualityLabel)
	assert.Equal(t, "mp4", meta.VideoFormats[0].Container)
	assert.Equal(t, domain.KindVideo, meta.VideoFormats[0].Kind)
	assert.Nil(t, meta.VideoFormats[0].SizeBytes)

	require.Len(t, meta.AudioFormats, 1)
	assert.Equal(t, "140", meta.AudioFormats[0].FormatID)
	assert.Equal(t, "128kbps [mp4a]", meta.AudioFormats[0].QualityLabel)
	assert.Equal(t, domain.KindAudio, meta.AudioFormats[0].Kind)
}

func TestParseMetadata_Classification(t *testing.T) {
	doc := `{"title":"x","formats":[
		{"format_id":"18","vcodec":"avc1.42001E","acodec":"mp4a.40.2","height":360},
		{"format_id":"sb0","vcodec":"none","acodec":"none"},
		{"format_id":"251","vcodec":"none","acodec":"opus","abr":129.478},
		{"format_id":"nocodec","acodec":"opus"},
		{"format_id":"empty","vcodec":"","acodec":"mp4a.40.2"}
	]}`

	meta, err := parseMetadata([]byte(doc))
	require.NoError(t, err)

	require.Len(t, meta.VideoFormats, 1)
	assert.Equal(t, "18", meta.VideoFormats[0].FormatID)
	assert.True(t, meta.VideoFormats[0].HasAudio())

	require.Len(t, meta.AudioFormats, 1)
	assert.Equal(t, "251", meta.AudioFormats[0].FormatID)
	assert.Equal(t, "129.478kbps [opus]", meta.AudioFormats[0].QualityLabel)
}

func TestParseMetadata_Labels(t *testing.T) {
	tests := []struct {
		name     string
		format   ytdlpFormat
		expected string
	}{
		{"height and fps", ytdlpFormat{VCodec: "vp9", Height: ptr(2160), FPS: ptr(60)}, "2160p60fps [vp9]"},
		{"fractional fps", ytdlpFormat{VCodec: "avc1.4d401f", Height: ptr(720), FPS: ptr(29.97)}, "720p29.97fps [avc1]"},
		{"height only", ytdlpFormat{VCodec: "av01.0.08M.08", Height: ptr(1080)}, "1080p [av01]"},
		{"fps without height", ytdlpFormat{VCodec: "vp9", FPS: ptr(30)}, "[vp9]"},
		{"nothing but codec", ytdlpFormat{VCodec: "h264"}, "[h264]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, videoLabel(tt.format))
		})
	}

	assert.Equal(t, "[mp4a]", audioLabel(ytdlpFormat{ACodec: "mp4a.40.5"}))
	assert.Equal(t, "48kbps [opus]", audioLabel(ytdlpFormat{ACodec: "opus", ABR: ptr(48)}))
}

func TestParseMetadata_FileSize(t *testing.T) {
	doc := `{"formats":[{"format_id":"22","vcodec":"avc1","acodec":"none","filesize":1048576}]}`

	meta, err := parseMetadata([]byte(doc))
	require.NoError(t, err)

	require.Len(t, meta.VideoFormats, 1)
	require.NotNil(t, meta.VideoFormats[0].SizeBytes)
	assert.Equal(t, int64(1048576), *meta.VideoFormats[0].SizeBytes)
}

func TestParseMetadata_SortOrder(t *testing.T) {
	doc := `{"formats":[
		{"format_id":"hls-a","vcodec":"avc1","acodec":"none"},
		{"format_id":"136","vcodec":"avc1","acodec":"none"},
		{"format_id":"dash-b","vcodec":"avc1","acodec":"none"},
		{"format_id":"401","vcodec":"av01","acodec":"none"},
		{"format_id":"137","vcodec":"avc1","acodec":"none"},
		{"format_id":"251-drc","vcodec":"none","acodec":"opus"},
		{"format_id":"140","vcodec":"none","acodec":"mp4a"},
		{"format_id":"251","vcodec":"none","acodec":"opus"}
	]}`

	meta, err := parseMetadata([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"401", "137", "136", "hls-a", "dash-b"}, ids(meta.VideoFormats))
	assert.Equal(t, []string{"251-drc", "251", "140"}, ids(meta.AudioFormats))
}

func TestParseMetadata_Uploader(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected string
	}{
		{"uploader wins", `{"uploader":"U","channel":"C"}`, "U"},
		{"channel fallback", `{"channel":"C"}`, "C"},
		{"empty uploader", `{"uploader":"","channel":"C"}`, "C"},
		{"unknown", `{}`, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := parseMetadata([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, meta.Uploader)
		})
	}
}

func TestParseMetadata_EmptyFormats(t *testing.T) {
	meta, err := parseMetadata([]byte(`{"title":"x","duration":null}`))
	require.NoError(t, err)

	assert.NotNil(t, meta.VideoFormats)
	assert.NotNil(t, meta.AudioFormats)
	assert.Empty(t, meta.VideoFormats)
	assert.Zero(t, meta.Duration)
}

func TestParseMetadata_Malformed(t *testing.T) {
	for _, doc := range []string{"", "not json", `{"title":`, `WARNING: something` + "\n" + `{}`} {
		_, err := parseMetadata([]byte(doc))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrMalformedResponse), "input %q", doc)
	}
}

func TestFormatIDValue(t *testing.T) {
	tests := []struct {
		id    string
		value int64
		ok    bool
	}{
		{"137", 137, true},
		{"251-drc", 251, true},
		{"0", 0, true},
		{"hls-720", 0, false},
		{"", 0, false},
		{"99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			v, ok := formatIDValue(tt.id)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.value, v)
		})
	}
}

func ptr(v float64) *float64 {
	return &v
}

func ids(formats []domain.StreamFormat) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, f.FormatID)
	}
	return out
}
