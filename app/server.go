package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"time"
)

// Types and Constants Definitions

type HTTPMethod string
type StatusCode string
type ContentType string

const (
	MethodGet  HTTPMethod = "GET"
	MethodHead HTTPMethod = "HEAD"

	StatusOK                  StatusCode = "200 OK"
	StatusBadRequest          StatusCode = "400 Bad Request"
	StatusForbidden           StatusCode = "403 Forbidden"
	StatusNotFound            StatusCode = "404 Not Found"
	StatusMethodNotAllowed    StatusCode = "405 Method Not Allowed"
	StatusInternalServerError StatusCode = "500 Internal Server Error"

	ContentTypeHTML            ContentType = "text/html; charset=utf-8"
	ContentTypePlainText       ContentType = "text/plain; charset=utf-8"
	ContentTypeApplicationJSON ContentType = "application/json; charset=utf-8"
	ContentTypeOctetStream     ContentType = "application/octet-stream"

	serverName = "statichttp/1.0"

	// RFC 1123 with the zone spelled GMT, as HTTP wants it.
	httpTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

	maxRequestSize = 8192
	sendChunkSize  = 16 * 1024
)

// Code returns the numeric part of the status, e.g. 404.
func (s StatusCode) Code() int {
	code, _ := strconv.Atoi(string(s[:3]))
	return code
}

var (
	errEmptyRequest     = errors.New("empty request")
	errMalformedRequest = errors.New("malformed request line")
)

type HTTPRequest struct {
	Method  HTTPMethod
	Path    string
	Version string
}

// Server Handler

type Server struct {
	config *Config
	logger *log.Logger
}

func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		logger: log.Default(),
	}
}

// ListenAndServe accepts connections until ctx is done, handing each one to
// its own goroutine.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return fmt.Errorf("can't listen on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()
	s.logger.Printf("Serving root: %s", s.config.CanonicalRoot)
	s.logger.Printf("Listening on %s", listener.Addr())

	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Printf("Shutting down server")
				return nil
			}
			s.logger.Printf("Failed to accept connection: %v", err)
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	s.serveConn(conn, conn.RemoteAddr().String())
}

// serveConn handles exactly one request on rw. Closing rw is up to the caller.
func (s *Server) serveConn(rw io.ReadWriter, remote string) {
	request, err := readRequest(rw)
	if err != nil {
		s.logger.Printf("[%s] Failed to parse request: %v", remote, err)
		return
	}

	status, err := serveRequest(rw, s.config, request)
	s.logger.Printf("[%s] \"%s %s %s\" %d", remote, request.Method, request.Path, request.Version, status.Code())
	if err != nil {
		s.logger.Printf("[%s] %v", remote, err)
	}
}

// Response and Request Handler

// readRequest reads until the end of the header block or until the buffer is
// full, then parses the request line. Header bytes are discarded.
func readRequest(r io.Reader) (*HTTPRequest, error) {
	buf := make([]byte, maxRequestSize)
	used := 0
	for used < len(buf) {
		n, err := r.Read(buf[used:])
		used += n
		if bytes.Contains(buf[max(0, used-n-3):used], []byte("\r\n\r\n")) {
			break
		}
		if err != nil {
			break
		}
	}
	if used == 0 {
		return nil, errEmptyRequest
	}

	return parseRequestLine(buf[:used])
}

// parseRequestLine splits "METHOD SP PATH SP VERSION" off the front of head.
func parseRequestLine(head []byte) (*HTTPRequest, error) {
	line, _, ok := bytes.Cut(head, []byte("\r\n"))
	if !ok {
		return nil, errMalformedRequest
	}
	method, rest, ok := bytes.Cut(line, []byte(" "))
	if !ok {
		return nil, errMalformedRequest
	}
	path, version, ok := bytes.Cut(rest, []byte(" "))
	if !ok {
		return nil, errMalformedRequest
	}

	return &HTTPRequest{
		Method:  HTTPMethod(method),
		Path:    string(path),
		Version: string(version),
	}, nil
}

// writeHeader writes the status line and the fixed header set.
func writeHeader(w io.Writer, status StatusCode, contentType ContentType, contentLength int64) error {
	header := fmt.Sprintf("HTTP/1.0 %s\r\n"+
		"Date: %s\r\n"+
		"Server: %s\r\n"+
		"Content-Type: %s\r\n"+
		"Content-Length: %d\r\n"+
		"Connection: close\r\n\r\n",
		status, time.Now().UTC().Format(httpTimeFormat), serverName, contentType, contentLength)
	_, err := io.WriteString(w, header)
	return err
}

// sendResponse writes a complete response with an in-memory body.
func sendResponse(w io.Writer, status StatusCode, contentType ContentType, body []byte) error {
	if err := writeHeader(w, status, contentType, int64(len(body))); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// sendError writes a self-contained HTML error page.
func sendError(w io.Writer, status StatusCode, detail string) error {
	body := fmt.Sprintf("<!doctype html><html><head><meta charset=\"utf-8\"><title>%s</title></head>"+
		"<body><h1>%s</h1><p>%s</p></body></html>",
		status, status, htmlEscape(detail))
	return sendResponse(w, status, ContentTypeHTML, []byte(body))
}
