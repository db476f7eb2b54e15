package constants

import "strings"

// Content types accepted by the OCR providers.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// MaxDocumentBytes is the default upper bound on an uploaded pay stub.
const MaxDocumentBytes = 10 << 20

// AllowedContentTypes holds the document formats the pipeline accepts.
var AllowedContentTypes = map[string]struct{}{
	ContentTypePDF:  {},
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
}

var contentTypeAliases = map[string]string{
	"pdf":         ContentTypePDF,
	"jpg":         ContentTypeJPEG,
	"jpeg":        ContentTypeJPEG,
	"png":         ContentTypePNG,
	"image/jpg":   ContentTypeJPEG,
	"image/pjpeg": ContentTypeJPEG,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeContentType maps a MIME type or file extension onto one of the
// allowed content types. Parameters such as "; charset=" are dropped.
// The second result is false when the type is not allowed.
func NormalizeContentType(ct string) (string, bool) {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ct = strings.TrimPrefix(ct, ".")
	if alias, ok := contentTypeAliases[ct]; ok {
		ct = alias
	}
	_, ok := AllowedContentTypes[ct]
	return ct, ok
}

// IsImage reports whether ct is one of the allowed raster formats.
func IsImage(ct string) bool {
	return ct == ContentTypeJPEG || ct == ContentTypePNG
}
