package cluster

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/reef-labs/reefd/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, addr string, store *StateStore) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		Cluster: config.ClusterConfig{Address: addr, DialTimeoutSeconds: 1, ReconnectSeconds: 1},
		Store:   store,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{Store: NewStateStore(), Logger: testLogger()})
	if err == nil {
		t.Error("NewClient() without address: expected error")
	}
	_, err = NewClient(ClientConfig{
		Cluster: config.ClusterConfig{Address: "127.0.0.1:6830"},
		Logger:  testLogger(),
	})
	if err == nil {
		t.Error("NewClient() without store: expected error")
	}
}

func TestClientSendNotConnected(t *testing.T) {
	client := newTestClient(t, "127.0.0.1:1", NewStateStore())

	if err := client.Send(Command{"prefix": "osd set"}, "x:0"); err == nil {
		t.Error("Send() before connecting: expected error")
	}
}

func TestClientProtocol(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	defer listener.Close()

	store := NewStateStore()
	client := newTestClient(t, listener.Addr().String(), store)

	completions := make(chan struct {
		tag string
		ok  bool
	}, 1)
	client.OnCompletion(func(tag string, succeeded bool) {
		completions <- struct {
			tag string
			ok  bool
		}{tag, succeeded}
	})

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		client.Start(ctx)
		close(started)
	}()

	conn, err := listener.Accept()
	if err != nil {
		t.Fatalf("accept error = %v", err)
	}
	defer conn.Close()

	// Push a map update and a completion to the gateway.
	frames := []string{
		`{"type":"map","name":"config","data":{"fsid":"abc"}}` + "\n",
		`{"type":"completion","tag":"req1:0","result":0}` + "\n",
	}
	for _, f := range frames {
		if _, err := conn.Write([]byte(f)); err != nil {
			t.Fatalf("write error = %v", err)
		}
	}

	select {
	case got := <-completions:
		if got.tag != "req1:0" || !got.ok {
			t.Errorf("completion = %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	if v, ok := store.ConfigKey("fsid"); !ok || v != "abc" {
		t.Errorf("map frame not applied: %q, %v", v, ok)
	}

	// Outbound direction: the command arrives as one JSON frame.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := client.Send(Command{"prefix": "osd scrub", "who": "0"}, "req1:0"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Send() never succeeded after connect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var out frame
	if err := json.NewDecoder(conn).Decode(&out); err != nil {
		t.Fatalf("decode outbound frame error = %v", err)
	}
	if out.Type != frameCommand || out.Tag != "req1:0" || out.Command.Prefix() != "osd scrub" {
		t.Errorf("outbound frame = %+v", out)
	}

	cancel()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestClientDroppedConnectionBacksOff(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	defer listener.Close()

	// A manager that accepts and immediately hangs up.
	accepted := make(chan struct{}, 16)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			accepted <- struct{}{}
			_ = conn.Close()
		}
	}()

	client := newTestClient(t, listener.Addr().String(), NewStateStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	select {
	case <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}

	// The first redial waits at least a second, so a short window must not
	// see another connection.
	select {
	case <-accepted:
		t.Error("client redialed immediately after the peer dropped the connection")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestClientNonZeroResultIsFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	defer listener.Close()

	client := newTestClient(t, listener.Addr().String(), NewStateStore())

	completions := make(chan bool, 2)
	client.OnCompletion(func(tag string, succeeded bool) {
		completions <- succeeded
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	conn, err := listener.Accept()
	if err != nil {
		t.Fatalf("accept error = %v", err)
	}
	defer conn.Close()

	// result -22 and a missing result both count as failure
	payload := `{"type":"completion","tag":"a:0","result":-22}` + "\n" +
		`{"type":"completion","tag":"a:1"}` + "\n"
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write error = %v", err)
	}

	for range 2 {
		select {
		case succeeded := <-completions:
			if succeeded {
				t.Error("non-zero or missing result reported as success")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for completion")
		}
	}
}
