package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries everything the PDF needs.
type CertificateData struct {
	LearnerName       string
	CourseTitle       string
	CourseCategory    string
	CertificateNumber string
	IssuerName        string
	IssuedAt          time.Time
}

// RenderCertificatePDF renders the certificate artifact. This is the
// single renderer in the codebase; everything goes through the issuer,
// which is the only caller.
func RenderCertificatePDF(data CertificateData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate of Completion", false)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()

	// 装饰性双线边框
	pdf.SetDrawColor(184, 134, 11)
	pdf.SetLineWidth(1.2)
	pdf.Rect(8, 8, pageW-16, pageH-16, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(12, 12, pageW-24, pageH-24, "D")

	pdf.SetTextColor(40, 40, 40)

	pdf.SetFont("Times", "B", 34)
	pdf.SetY(36)
	pdf.CellFormat(0, 14, "Certificate of Completion", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetY(62)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")

	pdf.SetFont("Times", "BI", 28)
	pdf.SetY(74)
	pdf.CellFormat(0, 12, data.LearnerName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetY(92)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")

	pdf.SetFont("Times", "B", 22)
	pdf.SetY(104)
	pdf.CellFormat(0, 10, data.CourseTitle, "", 1, "C", false, 0, "")

	if data.CourseCategory != "" {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.SetY(116)
		pdf.CellFormat(0, 7, fmt.Sprintf("Category: %s", data.CourseCategory), "", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetY(pageH - 48)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", data.IssuedAt.Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, data.IssuerName, "", 1, "C", false, 0, "")

	pdf.SetFont("Courier", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetY(pageH - 26)
	pdf.CellFormat(0, 5, data.CertificateNumber, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
