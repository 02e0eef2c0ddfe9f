package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/report"
	"github.com/muurk/btscan/internal/session"
)

type fakeControl struct {
	mu      sync.Mutex
	state   session.State
	devices []discovery.Device
	starts  int
	stops   int
	toggles int
}

func (f *fakeControl) Start() { f.mu.Lock(); f.starts++; f.mu.Unlock() }
func (f *fakeControl) Stop() { f.mu.Lock(); f.stops++; f.mu.Unlock() }
func (f *fakeControl) Toggle() { f.mu.Lock(); f.toggles++; f.mu.Unlock() }

func (f *fakeControl) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeControl) Snapshot() []discovery.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]discovery.Device(nil), f.devices...)
}

func (f *fakeControl) Stats() session.Stats {
	return session.Stats{Received: 3, Accepted: 2, Duplicates: 1, Scans: 1}
}

func (f *fakeControl) calls() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.toggles
}

func newTestServer(t *testing.T, ctrl *fakeControl) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(Config{Listen: "127.0.0.1:0"}, ctrl)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})
	return srv, ts
}

func decodeScan(t *testing.T, resp *http.Response) scanResponse {
	t.Helper()
	defer resp.Body.Close()
	var body scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestGetScan(t *testing.T) {
	ctrl := &fakeControl{
		state:   session.Scanning,
		devices: []discovery.Device{{Address: "AA:11", Name: "Phone", RSSI: -55, Order: 1}},
	}
	_, ts := newTestServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/api/scan")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := decodeScan(t, resp)
	if body.State != "Scanning" || body.Count != 1 || body.Devices[0].Address != "AA:11" {
		t.Errorf("body = %+v", body)
	}
	if body.Stats.Accepted != 2 || body.Stats.Duplicates != 1 {
		t.Errorf("stats = %+v", body.Stats)
	}
}

func TestControlEndpoints(t *testing.T) {
	ctrl := &fakeControl{state: session.Idle}
	_, ts := newTestServer(t, ctrl)

	for _, path := range []string{"/api/scan/start", "/api/scan/stop", "/api/scan/toggle"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Post(ts.URL+path, "application/json", nil)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusAccepted {
				t.Errorf("status = %d, want 202", resp.StatusCode)
			}
			if body := decodeScan(t, resp); body.State != "Idle" {
				t.Errorf("state = %q, want Idle", body.State)
			}
		})
	}

	starts, stops, toggles := ctrl.calls()
	if starts != 1 || stops != 1 || toggles != 1 {
		t.Errorf("calls = %d/%d/%d, want 1/1/1", starts, stops, toggles)
	}
}

func TestRouting(t *testing.T) {
	_, ts := newTestServer(t, &fakeControl{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/scan/start", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/scan", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/healthz", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestWebSocketStream(t *testing.T) {
	ctrl := &fakeControl{
		state:   session.Stopped,
		devices: []discovery.Device{{Address: "AA:11", RSSI: -70, Order: 1}},
	}
	srv, ts := newTestServer(t, ctrl)
	ws := dial(t, ts)

	first := readEnvelope(t, ws)
	if first.Type != report.TypeSnapshot {
		t.Fatalf("first message type = %q, want snapshot", first.Type)
	}
	var snap report.Snapshot
	if err := json.Unmarshal(first.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != "Stopped" || snap.Count != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	hub := srv.Hub()
	hub.StateChanged(session.Scanning)
	hub.DeviceListChanged(nil)
	hub.ScanEnded(session.Result{Status: session.NoDevicesFound, Cause: session.CauseTimeout})
	hub.ScanFailed(&session.Error{Kind: session.KindRadioUnavailable, Message: "no radio"})

	for _, want := range []string{report.TypeState, report.TypeDevices, report.TypeScan, report.TypeFailure} {
		if got := readEnvelope(t, ws); got.Type != want {
			t.Errorf("type = %q, want %q", got.Type, want)
		}
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	srv, ts := newTestServer(t, &fakeControl{})
	ws := dial(t, ts)
	readEnvelope(t, ws)

	if n := srv.Hub().ClientCount(); n != 1 {
		t.Fatalf("ClientCount() = %d, want 1", n)
	}
	srv.Hub().Close()
	if n := srv.Hub().ClientCount(); n != 0 {
		t.Errorf("ClientCount() after Close = %d, want 0", n)
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub close")
	}

	// Broadcasting with no clients is a no-op.
	srv.Hub().StateChanged(session.Idle)
}

func TestStartAndShutdown(t *testing.T) {
	srv, err := New(Config{Listen: "127.0.0.1:0"}, &fakeControl{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStartListenError(t *testing.T) {
	srv, err := New(Config{Listen: "256.0.0.1:bad"}, &fakeControl{})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() with bad address should fail")
	}
}

func writeSelfSigned(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "btscan test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath
}

func TestTLSConfig(t *testing.T) {
	certPath, keyPath := writeSelfSigned(t)

	srv, err := New(Config{Listen: "127.0.0.1:0", CertPath: certPath, KeyPath: keyPath}, &fakeControl{})
	if err != nil {
		t.Fatalf("New() with TLS error = %v", err)
	}
	if srv.tlsConfig == nil || len(srv.tlsConfig.Certificates) != 1 {
		t.Fatal("TLS config not loaded")
	}
	info := GetTLSInfo(srv.tlsConfig)
	if info["min_version"] != "TLS 1.2" {
		t.Errorf("min_version = %v", info["min_version"])
	}

	if _, err := New(Config{CertPath: filepath.Join(t.TempDir(), "missing.pem"), KeyPath: keyPath}, &fakeControl{}); err == nil {
		t.Error("New() with missing certificate should fail")
	}
}

func TestRegisterQueuesSnapshotFirst(t *testing.T) {
	hub := NewHub()
	c := &client{hub: hub, remoteAddr: "test", send: make(chan []byte, sendBuffer)}

	broadcast := make(chan struct{})
	hub.register(c, func() ([]byte, error) {
		// A state change lands while the snapshot is being built.
		go func() {
			hub.StateChanged(session.Scanning)
			close(broadcast)
		}()
		time.Sleep(20 * time.Millisecond)
		return encode(report.TypeSnapshot, report.NewSnapshot(session.Idle, nil))
	})
	<-broadcast

	for _, want := range []string{report.TypeSnapshot, report.TypeState} {
		select {
		case msg := <-c.send:
			var env envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				t.Fatal(err)
			}
			if env.Type != want {
				t.Errorf("type = %q, want %q", env.Type, want)
			}
		default:
			t.Fatalf("no %s message queued", want)
		}
	}
}
