package smtptest

import (
	"crypto/tls"
	"path/filepath"
	"testing"
	"time"

	"github.com/flashmob/go-guerrilla/tests/testcert"
)

// GenerateCertificate writes a self-signed root certificate for 127.0.0.1
// to a temporary test directory and loads it.
func GenerateCertificate(t *testing.T) (tls.Certificate, error) {
	host := "127.0.0.1"
	d := t.TempDir() + string(filepath.Separator)
	err := testcert.GenerateCert(
		host,
		"",                         // defaults to now
		time.Duration(1)*time.Hour, // the test suite won't run for this long
		true,                       // is a CA cert
		2048,                       // usually seen in online tutorials
		"",                         // using the default ecdsa curve,
		d,
	)
	if err != nil {
		return tls.Certificate{}, err
	}

	// These path names are hardcoded into testcert.GenerateCert
	return tls.LoadX509KeyPair(d+host+".cert.pem", d+host+".key.pem")
}
