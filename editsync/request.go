package editsync

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/burntcarrot/nvspad/commons"
)

// DefaultBase is the path of the NVS endpoint on the server.
const DefaultBase = "/api/v1/nvs"

// ErrMissingKey is returned when a field has no key to store its value under.
var ErrMissingKey = errors.New("editsync: field has no key")

// Endpoint returns the path that edits in namespace are posted to.
//
//	Endpoint("/api/v1/nvs", "")        -> /api/v1/nvs/
//	Endpoint("/api/v1/nvs", "network") -> /api/v1/nvs/network
func Endpoint(base, namespace string) string {
	base = strings.TrimRight(base, "/")
	if namespace == "" {
		return base + "/"
	}
	return base + "/" + url.PathEscape(namespace)
}

// NewRequest builds the edit request for f.
func NewRequest(f Field) (commons.EditRequest, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, ErrMissingKey
	}
	return commons.EditRequest{f.Name: f.Value}, nil
}

// encodeRequest builds and serializes the edit request for f, along with the path it is posted to.
func encodeRequest(base string, f Field) (string, []byte, error) {
	req, err := NewRequest(f)
	if err != nil {
		return "", nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, err
	}

	return Endpoint(base, f.Namespace), body, nil
}
