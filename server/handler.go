package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/burntcarrot/nvspad/commons"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const nvsRoute = "/api/v1/nvs"

var errBadPath = errors.New("bad path")

// nvsPath is the namespace and key parsed from a request path under nvsRoute.
type nvsPath struct {
	namespace string
	key       string
}

// parsePath splits /api/v1/nvs[/namespace[/key]] into its parts.
func parsePath(path string) (nvsPath, error) {
	var p nvsPath

	rest := strings.TrimPrefix(path, nvsRoute)
	if rest == path {
		return p, errBadPath
	}
	if rest == "" || rest == "/" {
		return p, nil
	}
	if rest[0] != '/' {
		return p, errBadPath
	}

	parts := strings.Split(rest[1:], "/")
	if len(parts) > 2 && !(len(parts) == 3 && parts[2] == "") {
		return p, errBadPath
	}

	p.namespace = parts[0]
	if len(parts) > 1 {
		p.key = parts[1]
	}

	if len(p.namespace) > maxNameLen || len(p.key) > maxNameLen {
		return p, ErrNameTooLong
	}
	if p.namespace == "" && p.key != "" {
		return p, errBadPath
	}
	return p, nil
}

// handler serves the NVS endpoint.
type handler struct {
	store  *store
	hub    *hub
	logger *logrus.Logger
}

// routes returns the server's request multiplexer.
func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(nvsRoute, h.handleNVS)
	mux.HandleFunc(nvsRoute+"/", h.handleNVS)
	mux.HandleFunc("/ws", h.hub.handleConn)
	return mux
}

func (h *handler) handleNVS(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": r.Header.Get(commons.RequestIDHeader),
	})

	p, err := parsePath(r.URL.Path)
	if err != nil {
		log.Warnf("bad path: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, p, log)
	case http.MethodPost:
		h.post(w, r, p, log)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// get writes a single entry when the path names a key, and a listing otherwise.
func (h *handler) get(w http.ResponseWriter, p nvsPath, log logrus.FieldLogger) {
	if p.key != "" {
		e, err := h.store.get(p.namespace, p.key)
		if err != nil {
			log.Warn(err)
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, e, log)
		return
	}

	writeJSON(w, h.store.list(p.namespace), log)
}

// post applies the keys of a JSON object to a namespace and answers with the namespace's listing.
func (h *handler) post(w http.ResponseWriter, r *http.Request, p nvsPath, log logrus.FieldLogger) {
	if p.key != "" {
		http.Error(w, "don't supply key in URI", http.StatusBadRequest)
		return
	}
	if p.namespace == "" {
		http.Error(w, "missing required namespace", http.StatusBadRequest)
		return
	}

	req, err := decodeEdit(r)
	if err != nil {
		log.Warn(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	changed, err := h.store.update(p.namespace, req)
	if err != nil {
		log.Warn(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	origin, _ := uuid.Parse(r.Header.Get(commons.ClientIDHeader))
	for _, e := range changed {
		log.WithField("client", origin).Infof("saved %s/%s = %q", e.Namespace, e.Key, e.Value)
		h.hub.broadcast(commons.Message{Type: commons.ChangeMessage, ID: origin, Entry: e})
	}

	writeJSON(w, h.store.list(p.namespace), log)
}

// decodeEdit reads a JSON object of string values from the request body.
func decodeEdit(r *http.Request) (commons.EditRequest, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %w", err)
	}
	if raw == nil {
		return nil, errors.New("body must be a JSON object")
	}

	req := make(commons.EditRequest, len(raw))
	for key, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("value for key %q must be a string", key)
		}
		req[key] = s
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, v interface{}, log logrus.FieldLogger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("error writing response: %v", err)
	}
}
