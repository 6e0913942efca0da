package creds

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/otaclient/iot-logging-proxy/internal/identity"
)

func TestCredentialExpired(t *testing.T) {
	g := NewWithT(t)
	now := time.Now()

	c := Credential{ExpiresAt: now.Add(10 * time.Minute)}
	g.Expect(c.Expired(now, 5*time.Minute)).To(BeFalse())
	g.Expect(c.Expired(now, 15*time.Minute)).To(BeTrue())

	expired := Credential{ExpiresAt: now.Add(-1 * time.Minute)}
	g.Expect(expired.Expired(now, 5*time.Minute)).To(BeTrue())
}

func TestIsRetriable(t *testing.T) {
	g := NewWithT(t)

	g.Expect(IsRetriable(&CredentialFetchFailedError{Status: 500})).To(BeTrue())
	g.Expect(IsRetriable(&CredentialFetchFailedError{Status: 403})).To(BeFalse())
	g.Expect(IsRetriable(&TlsSetupFailedError{})).To(BeTrue())
}

// genCertPair creates a CA and a leaf certificate signed by it, both as
// PEM, plus the leaf's PEM-encoded private key.
func genCertPair(t *testing.T, commonName string) (caPEM, leafCertPEM, leafKeyPEM []byte) {
	t.Helper()

	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	caTemplate := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, &caTemplate, &caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	caPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	leafTemplate := x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, &leafTemplate, &caTemplate, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	leafCertPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leafDER})
	leafKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(leafKey)})

	return caPEM, leafCertPEM, leafKeyPEM
}

func TestProviderFetchesAndCachesCredentials(t *testing.T) {
	g := NewWithT(t)

	caPEM, clientCertPEM, clientKeyPEM := genCertPair(t, "device-under-test")
	serverCAPEM, serverCertPEM, serverKeyPEM := genCertPair(t, "127.0.0.1")

	serverCert, err := tls.X509KeyPair(serverCertPEM, serverKeyPEM)
	g.Expect(err).NotTo(HaveOccurred())

	clientPool := x509.NewCertPool()
	g.Expect(clientPool.AppendCertsFromPEM(caPEM)).To(BeTrue())

	calls := 0
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		g.Expect(r.Header.Get("x-amzn-iot-thingname")).To(Equal("fleetA-edge-car01-unit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"credentials":{"accessKeyId":"AKIA","secretAccessKey":"secret","sessionToken":"token","expiration":"` +
			time.Now().Add(time.Hour).Format(time.RFC3339) + `"}}`))
	}))
	ts.TLS = &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    clientPool,
	}
	ts.StartTLS()
	defer ts.Close()

	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	caPath := filepath.Join(dir, "serverca.pem")
	g.Expect(os.WriteFile(certPath, clientCertPEM, 0o600)).To(Succeed())
	g.Expect(os.WriteFile(keyPath, clientKeyPEM, 0o600)).To(Succeed())
	g.Expect(os.WriteFile(caPath, serverCAPEM, 0o600)).To(Succeed())

	id := &identity.DeviceIdentity{
		ThingName:          "fleetA-edge-car01-unit",
		Profile:            "fleetA",
		CredentialEndpoint: ts.Listener.Addr().String(),
		CertificateRef:     certPath,
		PrivateKeyRef:      keyPath,
		CAPath:             caPath,
	}

	p, err := NewProvider(id, zap.NewNop())
	g.Expect(err).NotTo(HaveOccurred())

	refreshes := 0
	p = p.WithMetrics(metricsFunc(func() { refreshes++ }))

	cred, err := p.GetCredentials(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cred.AccessKey).To(Equal("AKIA"))
	g.Expect(calls).To(Equal(1))
	g.Expect(refreshes).To(Equal(1))

	// second call within the margin should hit the cache, not the network
	cred2, err := p.GetCredentials(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cred2).To(Equal(cred))
	g.Expect(calls).To(Equal(1))
	g.Expect(refreshes).To(Equal(1))
}

type metricsFunc func()

func (f metricsFunc) ObserveCredentialRefresh() { f() }
