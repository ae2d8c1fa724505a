// AngelaMos | 2026
// entity.go

package media

import (
	"time"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

type Media struct {
	ID         string    `db:"id"          json:"id"`
	UploaderID string    `db:"uploader_id" json:"uploader_id"`
	FileHash   string    `db:"file_hash"   json:"file_hash"`
	FileName   string    `db:"file_name"   json:"file_name"`
	FileSize   int64     `db:"file_size"   json:"file_size"`
	MimeType   string    `db:"mime_type"   json:"mime_type"`
	CDNURL     string    `db:"cdn_url"     json:"url"`
	LocalPath  string    `db:"local_path"  json:"-"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

func (m *Media) Kind() Kind {
	if f, ok := formats[m.MimeType]; ok {
		return f.kind
	}
	return KindImage
}

type format struct {
	kind Kind
	ext  string
}

// formats is keyed on the sniffed content type, never the client's header.
var formats = map[string]format{
	"image/jpeg": {KindImage, ".jpg"},
	"image/png":  {KindImage, ".png"},
	"image/gif":  {KindImage, ".gif"},
	"image/webp": {KindImage, ".webp"},
	"video/mp4":  {KindVideo, ".mp4"},
	"video/webm": {KindVideo, ".webm"},
}

func lookupFormat(mime string) (format, bool) {
	f, ok := formats[mime]
	return f, ok
}

type Stats struct {
	Files int64 `db:"files" json:"files"`
	Bytes int64 `db:"bytes" json:"bytes"`
}
