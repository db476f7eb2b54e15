package ocr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
)

func TestValidateDocument(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nrest")
	tests := []struct {
		name    string
		doc     []byte
		ct      string
		max     int64
		want    string
		wantErr string
	}{
		{"pdf", []byte("%PDF-1.4 ..."), "application/pdf", 0, constants.ContentTypePDF, ""},
		{"extension form", png, "png", 0, constants.ContentTypePNG, ""},
		{"jpg alias", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpg", 0, constants.ContentTypeJPEG, ""},
		{"unsupported", []byte("GIF89a"), "image/gif", 0, "", "unsupported file type"},
		{"empty", nil, "application/pdf", 0, "", "empty"},
		{"too large", bytes.Repeat([]byte("a"), 2048), "application/pdf", 1024, "", "maximum size"},
		{"mismatch", png, "application/pdf", 0, "", "looks like image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateDocument(tt.doc, tt.ct, tt.max)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				if !errors.Is(err, common.ErrInvalidInput) {
					t.Errorf("err should wrap ErrInvalidInput")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("content type = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServices(t *testing.T) {
	providers := map[string]Provider{
		constants.ProviderPDFText:  NewPDFTextProvider(PDFTextConfig{}, nil, nil),
		constants.ProviderDocIntel: NewDocIntelProvider(DocIntelConfig{}, nil, nil),
	}
	policy := Policy{Primary: constants.ProviderDocIntel, Fallbacks: []string{constants.ProviderPDFText, constants.ProviderTesseract}}.withDefaults()
	got := Services(policy, providers)
	if len(got) != 2 {
		t.Fatalf("len(Services) = %d, want 2 (unregistered tesseract skipped)", len(got))
	}
	if got[0].Name != constants.ProviderDocIntel || got[0].Role != "primary" || got[0].Priority != 1 {
		t.Errorf("Services[0] = %+v", got[0])
	}
	if got[1].Role != "fallback" || len(got[1].ContentTypes) != 1 {
		t.Errorf("Services[1] = %+v, want pdf-only fallback", got[1])
	}
}

func TestCleanText(t *testing.T) {
	in := "Gross\tPay    $1,200.00\r\n-----------\r\n\r\n\r\n\r\n| Regular | 40.00 | 30.00 |\n**Net Pay** 980.00\n"
	want := "Gross  Pay  $1,200.00\n\nRegular  40.00  30.00\nNet Pay 980.00"
	if got := CleanText(in); got != want {
		t.Errorf("CleanText =\n%q\nwant\n%q", got, want)
	}
	if CleanText("") != "" {
		t.Error("empty input should stay empty")
	}
}

func TestHeuristicConfidence(t *testing.T) {
	stub := `ACME Corp   Employee: Jane Doe
Pay Period 01/01/2024 - 01/15/2024
Regular Hours 80.00  Rate 20.00  Earnings 1,600.00
Gross Pay 1,600.00  Deductions 320.00  Net Pay 1,280.00 YTD 3,200.00`
	high := HeuristicConfidence(stub)
	if high < 70 || high > heuristicCap {
		t.Errorf("pay stub confidence = %v, want in [70, %v]", high, heuristicCap)
	}
	if got := HeuristicConfidence("hello"); got >= high {
		t.Errorf("plain text confidence %v should be below pay stub %v", got, high)
	}
	garbled := strings.Repeat("a b c d e f g h i j ", 5)
	if got := HeuristicConfidence(garbled); got != 0 {
		t.Errorf("garbled confidence = %v, want 0", got)
	}
	if HeuristicConfidence("   ") != 0 {
		t.Error("blank text should score 0")
	}
}

type fakeRunner struct {
	out  []byte
	errb []byte
	err  error
	args []string
}

func (r *fakeRunner) Run(_ context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	_, _ = io.ReadAll(stdin)
	r.args = append([]string{name}, args...)
	return r.out, r.errb, r.err
}

func TestPDFTextProvider(t *testing.T) {
	doc := []byte("%PDF-1.4 not really a pdf")

	t.Run("text layer", func(t *testing.T) {
		r := &fakeRunner{out: []byte("Employee: Jane Doe\nPay Period 01/01/2024 - 01/15/2024\nGross Pay 1,600.00\nNet Pay 1,280.00\nRegular Hours 80.00\n")}
		p := NewPDFTextProvider(PDFTextConfig{MaxPages: 2}, r, nil)
		res, err := p.Extract(context.Background(), doc, constants.ContentTypePDF)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if !res.Success || !strings.Contains(res.ExtractedText, "Gross Pay") {
			t.Errorf("result = %+v", res)
		}
		if res.Confidence <= HeuristicConfidence(res.ExtractedText) {
			t.Errorf("confidence %v should include text-layer bonus", res.Confidence)
		}
		if got := strings.Join(r.args, " "); got != "pdftotext -layout -enc UTF-8 -l 2 - -" {
			t.Errorf("args = %q", got)
		}
	})

	t.Run("scanned", func(t *testing.T) {
		p := NewPDFTextProvider(PDFTextConfig{}, &fakeRunner{out: []byte("\n\f\n")}, nil)
		res, err := p.Extract(context.Background(), doc, constants.ContentTypePDF)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if res.Success || !strings.Contains(res.Error, "no text layer") {
			t.Errorf("result = %+v, want no text layer failure", res)
		}
	})

	t.Run("binary missing", func(t *testing.T) {
		p := NewPDFTextProvider(PDFTextConfig{}, &fakeRunner{err: exec.ErrNotFound}, nil)
		if _, err := p.Extract(context.Background(), doc, constants.ContentTypePDF); err == nil {
			t.Error("expected error when pdftotext is not installed")
		}
	})

	t.Run("image input", func(t *testing.T) {
		p := NewPDFTextProvider(PDFTextConfig{}, &fakeRunner{}, nil)
		res, _ := p.Extract(context.Background(), []byte{0xFF, 0xD8, 0xFF}, constants.ContentTypeJPEG)
		if res.Success {
			t.Error("JPEG should not succeed")
		}
	})
}

func TestPageCountImage(t *testing.T) {
	if got := PageCount([]byte{0xFF, 0xD8, 0xFF}, constants.ContentTypeJPEG); got != 1 {
		t.Errorf("PageCount(jpeg) = %d, want 1", got)
	}
	if got := PageCount([]byte("%PDF-garbage"), constants.ContentTypePDF); got != 0 {
		t.Errorf("PageCount(bad pdf) = %d, want 0", got)
	}
}
