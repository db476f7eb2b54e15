package tesseract

import (
	"context"
	"testing"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
)

func TestNewDefaults(t *testing.T) {
	p := New(Config{}, nil)
	if len(p.cfg.Languages) != 1 || p.cfg.Languages[0] != "eng" {
		t.Errorf("Languages = %v, want [eng]", p.cfg.Languages)
	}
	if p.Name() != constants.ProviderTesseract {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestExtractRejectsPDF(t *testing.T) {
	res, err := New(Config{}, nil).Extract(context.Background(), []byte("%PDF-1.4"), constants.ContentTypePDF)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Errorf("result = %+v, want unsupported failure", res)
	}
}
