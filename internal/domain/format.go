package domain

// NoneCodec is the codec value yt-dlp reports for a missing stream
const NoneCodec = "none"

// UnknownUploader is used when neither uploader nor channel is reported
const UnknownUploader = "unknown"

// StreamKind tags a format as video or audio
type StreamKind string

const (
	KindVideo StreamKind = "video"
	KindAudio StreamKind = "audio"
)

// StreamFormat is one selectable entry of a format catalog
type StreamFormat struct {
	FormatID     string     `json:"format_id"`
	Container    string     `json:"ext"`
	QualityLabel string     `json:"quality"`
	SizeBytes    *int64     `json:"filesize,omitempty"`
	VideoCodec   string     `json:"vcodec"`
	AudioCodec   string     `json:"acodec"`
	Kind         StreamKind `json:"type"`
}

// HasVideo reports whether the entry carries a video stream
func (f StreamFormat) HasVideo() bool {
	return codecPresent(f.VideoCodec)
}

// HasAudio reports whether the entry carries an audio stream
func (f StreamFormat) HasAudio() bool {
	return codecPresent(f.AudioCodec)
}

// ClassifyStream returns the kind of a format given its codecs.
// ok is false when the entry is neither video nor audio and must be dropped.
func ClassifyStream(vcodec, acodec string) (kind StreamKind, ok bool) {
	if codecPresent(vcodec) {
		return KindVideo, true
	}
	if vcodec == NoneCodec && codecPresent(acodec) {
		return KindAudio, true
	}
	return "", false
}

func codecPresent(codec string) bool {
	return codec != "" && codec != NoneCodec
}

// VideoMetadata is the result of a metadata fetch
type VideoMetadata struct {
	Title        string         `json:"title"`
	Thumbnail    string         `json:"thumbnail"`
	Duration     float64        `json:"duration"`
	Uploader     string         `json:"uploader"`
	VideoFormats []StreamFormat `json:"formats"`
	AudioFormats []StreamFormat `json:"audioFormats"`
}

// FindFormat looks a format up by id in both catalogs
func (m *VideoMetadata) FindFormat(id string) (StreamFormat, bool) {
	for _, f := range m.VideoFormats {
		if f.FormatID == id {
			return f, true
		}
	}
	for _, f := range m.AudioFormats {
		if f.FormatID == id {
			return f, true
		}
	}
	return StreamFormat{}, false
}
