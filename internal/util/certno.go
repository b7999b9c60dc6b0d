package util

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

const certNumberPrefix = "CERT-"

// NewCertificateNumber returns a globally unique certificate number.
// ULIDs are sortable by issue time and need no central counter.
func NewCertificateNumber() string {
	return certNumberPrefix + ulid.MustNew(ulid.Now(), rand.Reader).String()
}
