package constants

// OCR provider identifiers used in policies and results.
const (
	ProviderDocIntel  = "azure-document-intelligence"
	ProviderVision    = "openai-vision"
	ProviderTesseract = "tesseract"
	ProviderPDFText   = "pdftotext"
)

// DefaultProviderPriority breaks confidence ties between providers;
// earlier entries win.
var DefaultProviderPriority = []string{
	ProviderDocIntel,
	ProviderVision,
	ProviderPDFText,
	ProviderTesseract,
}
