package infrastructure

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yourusername/ytdesk/internal/domain"
)

// ytdlpInfo is the subset of the --dump-json document we read
type ytdlpInfo struct {
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  *float64      `json:"duration"`
	Uploader  string        `json:"uploader"`
	Channel   string        `json:"channel"`
	Formats   []ytdlpFormat `json:"formats"`
}

// ytdlpFormat is one entry of the formats array.
// Numeric fields are pointers because yt-dlp omits or nulls them freely.
type ytdlpFormat struct {
	FormatID string   `json:"format_id"`
	Ext      string   `json:"ext"`
	VCodec   string   `json:"vcodec"`
	ACodec   string   `json:"acodec"`
	Height   *float64 `json:"height"`
	FPS      *float64 `json:"fps"`
	ABR      *float64 `json:"abr"`
	Filesize *float64 `json:"filesize"`
}

// parseMetadata turns yt-dlp's JSON document into a format catalog
func parseMetadata(data []byte) (*domain.VideoMetadata, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	meta := &domain.VideoMetadata{
		Title:        info.Title,
		Thumbnail:    info.Thumbnail,
		Uploader:     pickUploader(info.Uploader, info.Channel),
		VideoFormats: []domain.StreamFormat{},
		AudioFormats: []domain.StreamFormat{},
	}
	if info.Duration != nil {
		meta.Duration = *info.Duration
	}

	for _, f := range info.Formats {
		kind, ok := domain.ClassifyStream(f.VCodec, f.ACodec)
		if !ok {
			continue
		}

		sf := domain.StreamFormat{
			FormatID:   f.FormatID,
			Container:  f.Ext,
			VideoCodec: f.VCodec,
			AudioCodec: f.ACodec,
			Kind:       kind,
		}
		if f.Filesize != nil {
			size := int64(*f.Filesize)
			sf.SizeBytes = &size
		}

		if kind == domain.KindVideo {
			sf.QualityLabel = videoLabel(f)
			meta.VideoFormats = append(meta.VideoFormats, sf)
		} else {
			sf.QualityLabel = audioLabel(f)
			meta.AudioFormats = append(meta.AudioFormats, sf)
		}
	}

	sortFormats(meta.VideoFormats)
	sortFormats(meta.AudioFormats)

	return meta, nil
}

func pickUploader(uploader, channel string) string {
	if uploader != "" {
		return uploader
	}
	if channel != "" {
		return channel
	}
	return domain.UnknownUploader
}

// videoLabel renders "<height>p<fps>fps [family]"
func videoLabel(f ytdlpFormat) string {
	var b strings.Builder
	if f.Height != nil {
		b.WriteString(formatNumber(*f.Height) + "p")
		if f.FPS != nil {
			b.WriteString(formatNumber(*f.FPS) + "fps")
		}
	}
	b.WriteString(" [" + codecFamily(f.VCodec) + "]")
	return strings.TrimSpace(b.String())
}

// audioLabel renders "<abr>kbps [family]"
func audioLabel(f ytdlpFormat) string {
	var b strings.Builder
	if f.ABR != nil {
		b.WriteString(formatNumber(*f.ABR) + "kbps")
	}
	b.WriteString(" [" + codecFamily(f.ACodec) + "]")
	return strings.TrimSpace(b.String())
}

// codecFamily returns the codec text before its first dot: "avc1.640028" -> "avc1"
func codecFamily(codec string) string {
	family, _, _ := strings.Cut(codec, ".")
	return family
}

// formatNumber prints the shortest form: 30, 29.97, 129.478
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatIDValue reads the leading decimal digits of a format id.
// "251-drc" -> 251; ok is false when the id does not start with a digit.
func formatIDValue(id string) (int64, bool) {
	end := 0
	for end < len(id) && id[end] >= '0' && id[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(id[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sortFormats orders formats by numeric id, highest first.
// Ids without a leading number go last in their original order.
func sortFormats(formats []domain.StreamFormat) {
	sort.SliceStable(formats, func(i, j int) bool {
		a, aok := formatIDValue(formats[i].FormatID)
		b, bok := formatIDValue(formats[j].FormatID)
		switch {
		case aok && bok:
			return a > b
		case aok:
			return true
		default:
			return false
		}
	})
}
