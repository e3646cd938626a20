package httpserver

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	return l.Addr().String()
}

func TestServeAndShutdown(t *testing.T) {
	addr := freeAddr(t)

	srv := New(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "up")
	}), Options{Addr: addr})

	var (
		resp *http.Response
		err  error
	)

	for range 50 {
		resp, err = http.Get("http://" + addr)
		if err == nil {
			break
		}

		time.Sleep(20 * time.Millisecond)
	}

	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != "up" {
		t.Fatalf("body = %q", body)
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	if err, open := <-srv.Notify(); open {
		t.Fatalf("Notify() delivered %v after a clean shutdown", err)
	}
}

func TestNotifyListenError(t *testing.T) {
	srv := New(http.NotFoundHandler(), Options{Addr: "256.0.0.1:bad"})

	select {
	case err := <-srv.Notify():
		if err == nil {
			t.Fatal("Notify() closed without an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no listen error reported")
	}
}
