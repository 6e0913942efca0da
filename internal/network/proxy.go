package network

import (
	"net/http"
	"net/url"
	"os"

	"golang.org/x/net/http/httpproxy"
)

func IsProxyEnabled() bool {
	proxyEnv := httpproxy.FromEnvironment()
	return proxyEnv.HTTPProxy != "" || proxyEnv.HTTPSProxy != "" ||
		os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
		os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
}

// ProxyFunc adapts the environment's proxy configuration to the
// http.Transport.Proxy signature, so an http.Client can be built to honor
// the same proxy rules CheckConnectionToHost uses.
func ProxyFunc() func(*http.Request) (*url.URL, error) {
	fn := httpproxy.FromEnvironment().ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return fn(req.URL)
	}
}
