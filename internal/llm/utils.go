package llm

import (
	"encoding/base64"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

// DataURL encodes an image as a data URL for multimodal chat requests.
// Only image content types are accepted.
func DataURL(doc []byte, contentType string) (string, bool) {
	if !constants.IsImage(contentType) || len(doc) == 0 {
		return "", false
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(doc), true
}
