package service

import (
	"context"
	"io"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueCreatesNumberedCertificate(t *testing.T) {
	e := newTestEngine()

	cert, err := e.certSvc.Issue(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	assert.Regexp(t, `^CERT-[0-9A-Z]{26}$`, cert.CertificateNumber)
	assert.False(t, cert.IssuedAt.IsZero())

	require.NotNil(t, cert.PDFRenderedAt)
	data, ok := e.blobs.objects["certificates/"+cert.CertificateNumber+".pdf"]
	require.True(t, ok, "PDF stored under the certificate number")
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestIssueIsIdempotent(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	first, err := e.certSvc.Issue(ctx, 1, 10, nil)
	require.NoError(t, err)

	second, err := e.certSvc.Issue(ctx, 1, 10, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CertificateNumber, second.CertificateNumber)
	assert.Len(t, e.certs.certs, 1)
}

func TestIssueLosingRaceReadsWinnerRow(t *testing.T) {
	e := newTestEngine()
	// Create 返回唯一键冲突并留下赢家记录，模拟两个并发触发中的败者
	e.certs.duplicateOnCreate = true

	cert, err := e.certSvc.Issue(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, "CERT-WINNER", cert.CertificateNumber)
	assert.Len(t, e.certs.certs, 1)
}

func TestIssueSurvivesRenderFailure(t *testing.T) {
	e := newTestEngine()
	e.blobs.failUploads = true
	ctx := context.Background()

	cert, err := e.certSvc.Issue(ctx, 1, 10, nil)
	require.NoError(t, err, "render failure must not unwind issuance")
	assert.Nil(t, cert.PDFRenderedAt)

	pending, err := e.certs.ListPendingRender(20)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// 存储恢复后，后台重试补齐PDF
	e.blobs.failUploads = false
	e.certSvc.RetryPendingRenders(ctx)

	stored, err := e.certs.FindByID(cert.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.PDFRenderedAt)
	assert.NotEmpty(t, stored.PDFURL)
}

func TestGetForUserOwnership(t *testing.T) {
	e := newTestEngine()
	cert, err := e.certSvc.Issue(context.Background(), 1, 10, nil)
	require.NoError(t, err)

	_, err = e.certSvc.GetForUser(cert.ID, 1, model.Student)
	assert.NoError(t, err)

	_, err = e.certSvc.GetForUser(cert.ID, 2, model.Student)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = e.certSvc.GetForUser(cert.ID, 2, model.Teacher)
	assert.NoError(t, err)
}

func TestOpenPDFRendersPendingOnDemand(t *testing.T) {
	e := newTestEngine()
	e.blobs.failUploads = true
	ctx := context.Background()

	cert, err := e.certSvc.Issue(ctx, 1, 10, nil)
	require.NoError(t, err)
	require.Nil(t, cert.PDFRenderedAt)

	e.blobs.failUploads = false
	reader, err := e.certSvc.OpenPDF(ctx, cert)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestVerifyByNumber(t *testing.T) {
	e := newTestEngine()
	cert, err := e.certSvc.Issue(context.Background(), 1, 10, nil)
	require.NoError(t, err)

	found, err := e.certSvc.VerifyByNumber(cert.CertificateNumber)
	require.NoError(t, err)
	assert.Equal(t, cert.ID, found.ID)

	_, err = e.certSvc.VerifyByNumber("CERT-FORGED")
	assert.Error(t, err)
}

func TestNewCertificateNumberFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := util.NewCertificateNumber()
		assert.Regexp(t, `^CERT-[0-9A-HJKMNP-TV-Z]{26}$`, n)
		assert.False(t, seen[n], "certificate numbers must be unique")
		seen[n] = true
	}
}
