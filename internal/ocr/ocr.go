// Package ocr recognizes text in page images using Tesseract.
//
// By default the tesseract command-line program is used. Building with the
// "ocr" tag links Tesseract directly through gosseract instead:
//
//	go build -tags ocr ./...
//
// Either way Tesseract must be installed. On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
package ocr

import "errors"

// PageSegMode is a Tesseract page segmentation mode.
type PageSegMode int

const (
	PSMOSDOnly     PageSegMode = 0
	PSMAutoOSD     PageSegMode = 1
	PSMAutoOnly    PageSegMode = 2
	PSMAuto        PageSegMode = 3 // Fully automatic page segmentation (default)
	PSMSingleBlock PageSegMode = 6
	PSMSingleLine  PageSegMode = 7
	PSMSparseText  PageSegMode = 11
)

// DefaultLanguage is the Tesseract language used for English books.
const DefaultLanguage = "eng"

// ErrEmptyImage is returned when no image data is given.
var ErrEmptyImage = errors.New("ocr: empty image")

func normalize(lang string, psm int) (string, PageSegMode) {
	if lang == "" {
		lang = DefaultLanguage
	}
	if psm < 0 || psm > 13 {
		psm = int(PSMAuto)
	}
	return lang, PageSegMode(psm)
}
