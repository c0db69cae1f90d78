package main

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/burntcarrot/nvspad/client/table"
	"github.com/burntcarrot/nvspad/commons"
	"github.com/burntcarrot/nvspad/config"
	"github.com/burntcarrot/nvspad/editsync"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		arg         string
		expected    editsync.Field
		expectedErr error
	}{
		{arg: "network/wifi_ssid=MyNetwork", expected: editsync.Field{Namespace: "network", Name: "wifi_ssid", Value: "MyNetwork"}},
		{arg: "timeout=30", expected: editsync.Field{Name: "timeout", Value: "30"}},
		{arg: "network/wifi_pass=", expected: editsync.Field{Namespace: "network", Name: "wifi_pass", Value: ""}},
		{arg: "network/url=http://a/b?c=d", expected: editsync.Field{Namespace: "network", Name: "url", Value: "http://a/b?c=d"}},
		{arg: "network/wifi_ssid", expectedErr: errBadAssignment},
		{arg: "network/=x", expectedErr: editsync.ErrMissingKey},
		{arg: "network/ =x", expectedErr: editsync.ErrMissingKey},
		{arg: "  =x", expectedErr: editsync.ErrMissingKey},
	}

	for _, tc := range tests {
		got, err := parseAssignment(tc.arg)
		if tc.expectedErr != nil {
			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("(%s) got err = %v, expected = %v\n", tc.arg, err, tc.expectedErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("(%s) error: %v\n", tc.arg, err)
			continue
		}
		if !cmp.Equal(got, tc.expected) {
			t.Errorf("(%s) got != expected, diff: %v\n", tc.arg, cmp.Diff(got, tc.expected))
		}
	}
}

func TestListingPath(t *testing.T) {
	got := []string{listingPath("/api/v1/nvs", ""), listingPath("/api/v1/nvs", "network")}
	expected := []string{"/api/v1/nvs", "/api/v1/nvs/network"}
	if !cmp.Equal(got, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(got, expected))
	}
}

func TestBaseURL(t *testing.T) {
	got := []string{baseURL(config.Client{Server: "192.168.4.1"}), baseURL(config.Client{Server: "nvs.local:8443", Secure: true})}
	expected := []string{"http://192.168.4.1", "https://nvs.local:8443"}
	if !cmp.Equal(got, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(got, expected))
	}
}

func init() {
	logger.SetOutput(io.Discard)
}

func TestRunSet(t *testing.T) {
	var mu sync.Mutex
	var bodies []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"contents":[]}`))
			return
		}

		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, r.URL.Path+" "+string(b))
		mu.Unlock()

		if r.URL.Path == "/api/v1/nvs/app" {
			http.Error(w, "value out of range", http.StatusBadRequest)
			return
		}
	}))
	defer srv.Close()

	cfg := config.Default().Client
	cfg.Namespace = "network"
	poster := editsync.NewHTTPPoster(srv.URL)
	loader := listingLoader{poster: poster, path: listingPath(cfg.Endpoint, cfg.Namespace)}

	if !runSet(cfg, poster, loader, []string{"wifi_ssid=Home"}) {
		t.Errorf("expected a successful edit\n")
	}
	if runSet(cfg, poster, loader, []string{"app/timeout=300"}) {
		t.Errorf("expected a rejected edit to fail\n")
	}
	if runSet(cfg, poster, loader, []string{"no-assignment"}) {
		t.Errorf("expected a bad argument to fail\n")
	}

	expected := []string{
		`/api/v1/nvs/network {"wifi_ssid":"Home"}`,
		`/api/v1/nvs/app {"timeout":"300"}`,
	}
	if !cmp.Equal(bodies, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(bodies, expected))
	}
}

type fakeSender struct {
	msgs []tea.Msg
}

func (s *fakeSender) Send(msg tea.Msg) {
	s.msgs = append(s.msgs, msg)
}

func TestWatch(t *testing.T) {
	entry := commons.Entry{Namespace: "network", Key: "wifi_ssid", Value: "Cafe"}
	other := commons.Entry{Namespace: "app", Key: "timeout", Value: "10"}

	msgs := make(chan commons.Message, 3)
	msgs <- commons.Message{Type: commons.HelloMessage, ID: uuid.New()}
	msgs <- commons.Message{Type: commons.ChangeMessage, ID: uuid.New(), Entry: entry}
	msgs <- commons.Message{Type: commons.ChangeMessage, ID: uuid.New(), Entry: other}
	close(msgs)

	l := logrus.New()
	l.SetOutput(io.Discard)

	s := &fakeSender{}
	watch(msgs, "network", s, l)

	expected := []tea.Msg{table.ChangeMsg{Entry: entry}}
	if !cmp.Equal(s.msgs, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(s.msgs, expected))
	}
}
