package httpfast

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/park285/fengrid/pkg/griddto"
	"github.com/valyala/fasthttp"
)

func TestClient_RenderAndHealth(t *testing.T) {
	ln := startServer(t, newBoards(t, true))
	c := NewClient("http://fengrid.test/", WithDial(dialer(ln)), WithTimeout(5*time.Second))
	ctx := context.Background()

	h, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !h.Ready || h.Glyphs != 12 || h.Missing != "" {
		t.Fatalf("unexpected health %+v", h)
	}

	data, err := c.Render(ctx, []string{startFEN, "4k3/8/8/8/8/8/8/4K3", "8/8/8/8/8/8/8/8", startFEN})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2*(3*64+2*8) || b.Dy() != 2*(2*64+8) {
		t.Fatalf("png bounds %v", b)
	}

	out, err := c.RenderJSON(ctx, []string{startFEN})
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	if out.Boards != 1 || out.FileName != "chess_boards.png" || out.Width != 128 || out.Height != 128 {
		t.Fatalf("unexpected response %+v", out)
	}
	if !strings.HasPrefix(out.DataURL, "data:image/png;base64,") {
		t.Fatalf("bad data url prefix")
	}
	if out.Message != "Generated 1 board(s) (128x128)." {
		t.Fatalf("message %q", out.Message)
	}
}

func TestClient_NotReadyRetriesThenFails(t *testing.T) {
	ln := startServer(t, newBoards(t, false))
	c := NewClient("http://fengrid.test", WithDial(dialer(ln)), WithRetry(2))
	ctx := context.Background()

	h, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health on a loading server should not fail: %v", err)
	}
	if h.Ready {
		t.Fatalf("server reported ready before preload")
	}

	started := time.Now()
	_, err = c.Render(ctx, []string{startFEN})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != fasthttp.StatusServiceUnavailable || apiErr.Body.Code != griddto.CodeNotReady {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if time.Since(started) < backoffDuration(1) {
		t.Fatalf("503 should have been retried once with backoff")
	}
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	ln := startServer(t, newBoards(t, true))
	c := NewClient("http://fengrid.test", WithDial(dialer(ln)), WithRetry(5))

	started := time.Now()
	_, err := c.Render(context.Background(), []string{"", "  "})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != fasthttp.StatusBadRequest || apiErr.Body.Code != griddto.CodeEmptyInput {
		t.Fatalf("expected empty_input 400, got %v", err)
	}
	if time.Since(started) >= backoffDuration(1) {
		t.Fatalf("400 should not be retried")
	}
}

func TestClient_HeadersAndCancel(t *testing.T) {
	ln := startServer(t, newBoards(t, true))
	c := NewClient("http://fengrid.test",
		WithDial(dialer(ln)),
		WithHeaderProvider(func() map[string]string { return map[string]string{"X-Request-Id": "cli-1", " ": "skip"} }),
	)
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Render(ctx, []string{startFEN}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffDuration(t *testing.T) {
	cases := map[int]time.Duration{
		0: 100 * time.Millisecond,
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		9: 3200 * time.Millisecond,
	}
	for attempt, want := range cases {
		if got := backoffDuration(attempt); got != want {
			t.Fatalf("backoffDuration(%d) = %v want %v", attempt, got, want)
		}
	}
}
