package editsync

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/burntcarrot/nvspad/commons"
	"github.com/sirupsen/logrus"
)

// Config holds the collaborators of a Synchronizer.
type Config struct {
	// Base is the path of the NVS endpoint. Defaults to DefaultBase.
	Base string

	// Poster sends edit requests.
	Poster Poster

	// Presenter receives the outcome of edits submitted with SubmitEdit and SubmitCell.
	// It may be nil when only Send and SendCell are used.
	Presenter Presenter

	// Logger defaults to a logger that discards everything.
	Logger logrus.FieldLogger
}

// Synchronizer sends committed edits to the NVS endpoint.
//
// Every commit produces at most one request. Requests are never retried, batched or cancelled,
// and concurrent requests are independent of each other.
type Synchronizer struct {
	base      string
	poster    Poster
	presenter Presenter
	logger    logrus.FieldLogger

	inflight sync.WaitGroup
}

// New creates a Synchronizer.
func New(cfg Config) *Synchronizer {
	s := &Synchronizer{
		base:      cfg.Base,
		poster:    cfg.Poster,
		presenter: cfg.Presenter,
		logger:    cfg.Logger,
	}

	if s.base == "" {
		s.base = DefaultBase
	}

	if s.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = l
	}

	return s
}

// Base returns the path of the NVS endpoint.
func (s *Synchronizer) Base() string {
	return s.base
}

// Send commits f and waits for the server's answer.
func (s *Synchronizer) Send(ctx context.Context, f Field) Outcome {
	log := s.logger.WithFields(logrus.Fields{"namespace": f.Namespace, "key": f.Name})

	path, body, err := encodeRequest(s.base, f)
	if err != nil {
		log.Warnf("skipping edit: %v", err)
		return Outcome{Kind: Skipped, Field: f, Err: err}
	}

	log = log.WithField("path", path)
	log.Debugf("posting %s", body)

	resp, err := s.poster.Post(ctx, path, body)
	if err != nil {
		log.Errorf("connection lost: %v", err)
		return Outcome{Kind: ConnectionLost, Field: f, Path: path, Err: err}
	}

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "request_id": resp.RequestID})

	o := Outcome{Field: f, Path: path, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	if resp.StatusCode != http.StatusOK {
		log.Warnf("edit rejected: %s", bytes.TrimSpace(resp.Body))
		o.Kind = Rejected
		return o
	}

	o.Kind = Saved
	o.Listing = parseListing(resp.Body)
	log.Info("edit saved")

	return o
}

// SendCell commits the cell in column of r and waits for the server's answer.
// Commits outside the value column are skipped without sending anything.
func (s *Synchronizer) SendCell(ctx context.Context, r Row, column int) Outcome {
	f, ok := r.FieldAt(column)
	if !ok {
		return Outcome{Kind: Skipped}
	}
	return s.Send(ctx, f)
}

// SubmitEdit commits f in the background and reflects the outcome on the configured Presenter.
// It returns immediately.
func (s *Synchronizer) SubmitEdit(f Field) {
	s.submit(func(ctx context.Context) Outcome { return s.Send(ctx, f) })
}

// SubmitCell is SubmitEdit for a positional row.
func (s *Synchronizer) SubmitCell(r Row, column int) {
	if _, ok := r.FieldAt(column); !ok {
		return
	}
	s.submit(func(ctx context.Context) Outcome { return s.SendCell(ctx, r, column) })
}

func (s *Synchronizer) submit(send func(context.Context) Outcome) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		o := send(context.Background())
		if s.presenter != nil {
			Apply(o, s.presenter)
		}
	}()
}

// Wait blocks until every edit submitted so far has been answered and presented.
func (s *Synchronizer) Wait() {
	s.inflight.Wait()
}

// parseListing returns the listing carried by a successful response, or nil if the body is not one.
func parseListing(body []byte) *commons.Listing {
	var payload struct {
		Contents *[]commons.Entry `json:"contents"`
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Contents == nil {
		return nil
	}
	return &commons.Listing{Contents: *payload.Contents}
}
