package poller

import (
	"strings"

	"github.com/hirsh012/varnish-cache/internal/domain"
)

// buildRequest produces the fixed wire bytes sent on every probe for
// spec, as spec.md §4.1 defines: spec.Request verbatim if set,
// otherwise a synthesized GET with an optional Host header.
func buildRequest(spec domain.ProbeSpec, hostHeader string) []byte {
	if spec.Request != "" {
		return []byte(spec.Request)
	}

	url := spec.URL
	if url == "" {
		url = "/"
	}

	var b strings.Builder
	b.WriteString("GET ")
	b.WriteString(url)
	b.WriteString(" HTTP/1.1\r\n")
	if hostHeader != "" {
		b.WriteString("Host: ")
		b.WriteString(hostHeader)
		b.WriteString("\r\n")
	}
	b.WriteString("Connection: close\r\n\r\n")
	return []byte(b.String())
}
