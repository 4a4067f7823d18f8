package webhook

import (
	"net/http"

	"github.com/google/go-github/v57/github"
)

// Descriptor is a read-only snapshot of one inbound call.
type Descriptor struct {
	Header    http.Header
	Body      []byte
	RemoteIP  string
	Path      string
	EventType string
}

// NewDescriptor snapshots header and body. The header is cloned so later
// changes by the caller are not observed.
func NewDescriptor(header http.Header, body []byte, remoteIP, path string) *Descriptor {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	return &Descriptor{
		Header:    h,
		Body:      body,
		RemoteIP:  remoteIP,
		Path:      path,
		EventType: h.Get(github.EventTypeHeader),
	}
}

// Signature returns the X-Hub-Signature header value.
func (d *Descriptor) Signature() string {
	return d.Header.Get(github.SHA1SignatureHeader)
}

func (d *Descriptor) contentType() string {
	return d.Header.Get("Content-Type")
}
