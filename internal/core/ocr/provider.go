package ocr

import (
	"context"
	"fmt"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
)

// Provider is a uniform adapter over one text-extraction service.
//
// Extract reports ordinary extraction failures (unreadable document, no
// text, unsupported format for this engine) as RawOCRResult{Success: false}
// with a nil error. A non-nil error means the call itself failed: network,
// authentication, rate limiting that outlived retries, or ctx expiry.
type Provider interface {
	Name() string
	Extract(ctx context.Context, doc []byte, contentType string) (entity.RawOCRResult, error)
}

// ContentTyper is implemented by providers that only handle a subset of
// the allowed content types.
type ContentTyper interface {
	SupportedContentTypes() []string
}

// ValidateDocument rejects input before any provider is called. It returns
// the canonical content type.
func ValidateDocument(doc []byte, contentType string, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = constants.MaxDocumentBytes
	}
	ct, ok := constants.NormalizeContentType(contentType)
	if !ok {
		return "", common.InvalidInput("unsupported file type %q: upload a PDF, JPEG or PNG", contentType)
	}
	if len(doc) == 0 {
		return "", common.InvalidInput("the uploaded file is empty")
	}
	if int64(len(doc)) > maxBytes {
		return "", common.InvalidInput("file is %s; the maximum size is %s", humanBytes(int64(len(doc))), humanBytes(maxBytes))
	}
	if sniffed := sniff(doc); sniffed != "" && sniffed != ct {
		return "", common.InvalidInput("file content looks like %s but was declared as %s", sniffed, ct)
	}
	return ct, nil
}

func sniff(doc []byte) string {
	switch {
	case len(doc) >= 5 && string(doc[:5]) == "%PDF-":
		return constants.ContentTypePDF
	case len(doc) >= 3 && doc[0] == 0xFF && doc[1] == 0xD8 && doc[2] == 0xFF:
		return constants.ContentTypeJPEG
	case len(doc) >= 8 && string(doc[:8]) == "\x89PNG\r\n\x1a\n":
		return constants.ContentTypePNG
	}
	return ""
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d KB", (n+1023)/1024)
}

func supports(p Provider, contentType string) bool {
	ct, ok := p.(ContentTyper)
	if !ok {
		return true
	}
	for _, s := range ct.SupportedContentTypes() {
		if s == contentType {
			return true
		}
	}
	return false
}

func failedResult(provider, format string, args ...any) entity.RawOCRResult {
	return entity.RawOCRResult{
		Provider: provider,
		Success:  false,
		Error:    fmt.Sprintf(format, args...),
	}
}

// ServiceInfo describes one configured provider for the services listing.
type ServiceInfo struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"` // primary | fallback
	Priority     int      `json:"priority"`
	ContentTypes []string `json:"contentTypes"`
}

// Services lists the providers a policy will use, in priority order.
func Services(policy Policy, providers map[string]Provider) []ServiceInfo {
	order := policy.priorityOrder()
	var out []ServiceInfo
	for i, name := range order {
		p, ok := providers[name]
		if !ok {
			continue
		}
		role := "fallback"
		if name == policy.Primary {
			role = "primary"
		}
		types := []string{constants.ContentTypePDF, constants.ContentTypeJPEG, constants.ContentTypePNG}
		if ct, ok := p.(ContentTyper); ok {
			types = ct.SupportedContentTypes()
		}
		out = append(out, ServiceInfo{Name: name, Role: role, Priority: i + 1, ContentTypes: types})
	}
	return out
}
