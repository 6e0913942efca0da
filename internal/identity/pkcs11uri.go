package identity

import "strings"

const pkcs11Scheme = "pkcs11:"

// ParsePKCS11URI parses a URI of the form "pkcs11:k=v;k=v;..." into its
// key/value attributes. The "pkcs11:" prefix is optional on input and
// stripping it is idempotent: calling ParsePKCS11URI on an already-stripped
// body returns the same mapping.
func ParsePKCS11URI(uri string) (map[string]string, error) {
	body := strings.TrimPrefix(uri, pkcs11Scheme)

	attrs := make(map[string]string)
	if body == "" {
		return attrs, nil
	}

	for _, pair := range strings.Split(body, ";") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, &ConfigInvalidError{baseError{message: "malformed pkcs11 URI attribute: " + pair}}
		}
		attrs[kv[0]] = kv[1]
	}

	return attrs, nil
}

// IsPKCS11Ref reports whether ref names a PKCS#11 object rather than a
// filesystem path.
func IsPKCS11Ref(ref string) bool {
	return strings.HasPrefix(ref, pkcs11Scheme)
}

// WithInlinePin returns uri with a pin-value attribute appended, for the
// small set of consumers (library call sites that accept only a single URI
// string) that need the user PIN spliced back into the URI rather than
// passed out-of-band. Internal APIs should prefer the structured pkcs11
// block instead of this form.
func WithInlinePin(uri, pin string) string {
	if pin == "" {
		return uri
	}
	if strings.HasSuffix(uri, ":") {
		return uri + "pin-value=" + pin
	}
	return uri + ";pin-value=" + pin
}
