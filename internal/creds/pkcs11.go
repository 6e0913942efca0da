package creds

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sync"

	"github.com/ThalesIgnite/crypto11"

	"github.com/otaclient/iot-logging-proxy/internal/identity"
)

// pkcs11Mu serializes access to the PKCS#11 session across every caller
// that touches a token, since a single session is not safe for concurrent
// use by more than one goroutine at a time.
var pkcs11Mu sync.Mutex

// loadKeyPairFromToken opens the PKCS#11 module named by cfg and returns a
// tls.Certificate pairing the signer for the private key addressed by
// privateKeyRef (a pkcs11: URI whose object attribute names the key label)
// with the DER-encoded leaf certificate, read either from the file at
// certificateRef (if it is a plain path) or from the same token (if
// certificateRef is also a pkcs11: URI).
func loadKeyPairFromToken(cfg *identity.PKCS11Config, privateKeyRef, certificateRef string) (tls.Certificate, error) {
	pkcs11Mu.Lock()
	defer pkcs11Mu.Unlock()

	slot := cfg.Slot
	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       cfg.Library,
		SlotNumber: &[]int{int(slot)}[0],
		Pin:        cfg.UserPin,
	})
	if err != nil {
		return tls.Certificate{}, &TlsSetupFailedError{baseError{message: "configuring pkcs11 module", cause: err}}
	}
	defer ctx.Close()

	keyAttrs, err := identity.ParsePKCS11URI(privateKeyRef)
	if err != nil {
		return tls.Certificate{}, &TlsSetupFailedError{baseError{message: "parsing private key pkcs11 URI", cause: err}}
	}
	label := []byte(keyAttrs["object"])

	signer, err := ctx.FindKeyPair(nil, label)
	if err != nil {
		return tls.Certificate{}, &TlsSetupFailedError{baseError{message: "finding pkcs11 key pair", cause: err}}
	}
	if signer == nil {
		return tls.Certificate{}, &TlsSetupFailedError{baseError{message: fmt.Sprintf("no pkcs11 key pair found for label %q", label)}}
	}

	certDER, err := certificateBytes(ctx, certificateRef)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  signer,
	}, nil
}

// certificateBytes returns DER-encoded certificate bytes from either a
// file (PEM or DER) or, if certificateRef is itself a pkcs11: URI, the
// token.
func certificateBytes(ctx *crypto11.Context, certificateRef string) ([]byte, error) {
	if identity.IsPKCS11Ref(certificateRef) {
		attrs, err := identity.ParsePKCS11URI(certificateRef)
		if err != nil {
			return nil, &TlsSetupFailedError{baseError{message: "parsing certificate pkcs11 URI", cause: err}}
		}

		cert, err := ctx.FindCertificate(nil, []byte(attrs["object"]), nil)
		if err != nil {
			return nil, &TlsSetupFailedError{baseError{message: "finding pkcs11 certificate", cause: err}}
		}
		if cert == nil {
			return nil, &TlsSetupFailedError{baseError{message: fmt.Sprintf("no pkcs11 certificate found for label %q", attrs["object"])}}
		}
		return cert.Raw, nil
	}

	data, err := os.ReadFile(certificateRef)
	if err != nil {
		return nil, &TlsSetupFailedError{baseError{message: "reading certificate file", cause: err}}
	}
	return derFromPEMOrRaw(data)
}

// derFromPEMOrRaw converts PEM-encoded certificate data to DER. Data that
// does not carry the PEM marker is assumed to already be DER, per the
// format-detection rule: PEM is identified by its leading marker line.
func derFromPEMOrRaw(data []byte) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		// not PEM: validate it parses as DER directly before trusting it
		if _, err := x509.ParseCertificate(data); err != nil {
			return nil, &TlsSetupFailedError{baseError{message: "certificate is neither valid PEM nor DER", cause: err}}
		}
		return data, nil
	}
	return block.Bytes, nil
}
