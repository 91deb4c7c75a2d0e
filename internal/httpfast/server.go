package httpfast

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/fengrid/internal/fen"
	"github.com/park285/fengrid/internal/glyph"
	"github.com/park285/fengrid/internal/msgcat"
	"github.com/park285/fengrid/internal/render"
	"github.com/park285/fengrid/internal/service/boards"
	"github.com/park285/fengrid/pkg/griddto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-Id"

//go:embed page.html
var pageHTML string

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

// Generator is the part of the boards service the front end needs.
type Generator interface {
	GeneratePositions(ctx context.Context, positions []string) (*boards.Artifact, error)
	Ready() bool
	Glyphs() *glyph.Set
	UserMessage(err error) string
	DoneMessage(a *boards.Artifact) string
}

type Server struct {
	gen    Generator
	logger *zap.Logger
	page   []byte

	maxBody       int
	renderTimeout time.Duration
	limiter       *rate.Limiter

	srv *fasthttp.Server
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes caps the accepted request body. Larger bodies get 413.
func WithMaxBodyBytes(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

func WithRenderTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

// WithRenderLimit caps renders per second across all clients. rps <= 0
// disables the limit.
func WithRenderLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewServer(gen Generator, msgs *msgcat.Catalog, opts ...Option) (*Server, error) {
	s := &Server{
		gen:           gen,
		logger:        zap.NewNop(),
		maxBody:       64 * 1024,
		renderTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, map[string]string{
		"Locale":      msgs.Locale(),
		"Title":       msgs.Text("page.title", nil),
		"Placeholder": msgs.Text("page.placeholder", nil),
		"Generate":    msgs.Text("page.generate", nil),
		"Download":    msgs.Text("page.download", nil),
		"FileName":    boards.FileName,
	})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	s.page = buf.Bytes()

	s.srv = &fasthttp.Server{
		Handler:      fasthttp.CompressHandler(s.Handler),
		Name:         "fengrid",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.renderTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
		Logger:       zap.NewStdLog(s.logger),
	}
	return s, nil
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http_listen", zap.String("addr", ln.Addr().String()))
	return s.srv.Serve(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	started := time.Now()
	reqID := strings.TrimSpace(string(ctx.Request.Header.Peek(requestIDHeader)))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx.Response.Header.Set(requestIDHeader, reqID)
	logger := s.logger.With(zap.String("request_id", reqID))

	switch string(ctx.Path()) {
	case "/":
		if s.allow(ctx, fasthttp.MethodGet) {
			ctx.SetContentType("text/html; charset=utf-8")
			ctx.SetBody(s.page)
		}
	case "/healthz":
		if s.allow(ctx, fasthttp.MethodGet) {
			s.health(ctx)
		}
	case "/render":
		if s.allow(ctx, fasthttp.MethodPost) {
			s.render(ctx, logger, false)
		}
	case "/render.json":
		if s.allow(ctx, fasthttp.MethodPost) {
			s.render(ctx, logger, true)
		}
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, griddto.Error{Code: griddto.CodeNotFound, Message: "not found"})
	}

	logger.Info("http_request",
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(started)),
	)
}

func (s *Server) allow(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	ctx.Response.Header.Set(fasthttp.HeaderAllow, method)
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, griddto.Error{Code: griddto.CodeMethod, Message: "use " + method})
	return false
}

func (s *Server) health(ctx *fasthttp.RequestCtx) {
	if !s.gen.Ready() {
		writeJSON(ctx, fasthttp.StatusServiceUnavailable, griddto.Health{})
		return
	}
	set := s.gen.Glyphs()
	writeJSON(ctx, fasthttp.StatusOK, griddto.Health{
		Ready:   true,
		Glyphs:  set.Len(),
		Missing: string(set.Missing()),
	})
}

func (s *Server) render(ctx *fasthttp.RequestCtx, logger *zap.Logger, inline bool) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeJSON(ctx, fasthttp.StatusTooManyRequests, griddto.Error{
			Code:      griddto.CodeRateLimited,
			Message:   "too many render requests",
			Retryable: true,
		})
		return
	}

	positions, derr := s.readPositions(ctx)
	if derr != nil {
		writeJSON(ctx, derr.status, derr.body)
		return
	}

	rctx, cancel := context.WithTimeout(context.Background(), s.renderTimeout)
	defer cancel()
	artifact, err := s.gen.GeneratePositions(rctx, positions)
	if err != nil {
		status, code := classify(err)
		if code == griddto.CodeInternal {
			logger.Error("render_failed", zap.Error(err))
		} else {
			logger.Debug("render_rejected", zap.String("code", code), zap.Error(err))
		}
		writeJSON(ctx, status, griddto.Error{
			Code:      code,
			Message:   s.gen.UserMessage(err),
			Retryable: status == fasthttp.StatusServiceUnavailable,
		})
		return
	}

	if inline {
		writeJSON(ctx, fasthttp.StatusOK, griddto.RenderResponse{
			DataURL:  artifact.DataURL(),
			Boards:   artifact.Boards,
			Width:    artifact.Width,
			Height:   artifact.Height,
			FileName: artifact.FileName,
			Message:  s.gen.DoneMessage(artifact),
		})
		return
	}

	if ctx.QueryArgs().GetBool("download") {
		ctx.Response.Header.Set(fasthttp.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(artifact.PNG)
}

type decodeError struct {
	status int
	body   griddto.Error
}

// readPositions accepts either a JSON RenderRequest or raw FEN lines.
func (s *Server) readPositions(ctx *fasthttp.RequestCtx) ([]string, *decodeError) {
	body := ctx.PostBody()
	if len(body) > s.maxBody {
		return nil, &decodeError{
			status: fasthttp.StatusRequestEntityTooLarge,
			body:   griddto.Error{Code: griddto.CodeTooLarge, Message: fmt.Sprintf("body exceeds %d bytes", s.maxBody)},
		}
	}

	ct := strings.ToLower(string(ctx.Request.Header.ContentType()))
	if !strings.HasPrefix(ct, "application/json") {
		return []string{string(body)}, nil
	}
	var req griddto.RenderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &decodeError{
			status: fasthttp.StatusBadRequest,
			body:   griddto.Error{Code: griddto.CodeBadRequest, Message: "invalid JSON body: " + err.Error()},
		}
	}
	return req.Positions, nil
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, render.ErrNoInput):
		return fasthttp.StatusBadRequest, griddto.CodeEmptyInput
	case errors.Is(err, fen.ErrMalformed):
		return fasthttp.StatusBadRequest, griddto.CodeMalformedFEN
	case errors.Is(err, boards.ErrNotReady):
		return fasthttp.StatusServiceUnavailable, griddto.CodeNotReady
	default:
		return fasthttp.StatusInternalServerError, griddto.CodeInternal
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"code":"internal","message":"encode response"}`, fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}
