package scanner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"
)

var (
	ErrSourceClosed = errors.New("scan source closed")
	ErrBusy         = errors.New("camera already in use")
	ErrBadFrame     = errors.New("unreadable frame")
)

// Camera hands out a frame stream. Only one stream may be open at a time.
type Camera interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream yields decoded frame text. Next returns an error wrapping
// ErrBadFrame for frames that could not be read; the stream stays usable.
type Stream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Scanner runs the capture loop. The camera is held only while Scan runs.
type Scanner struct {
	camera Camera
	logger *slog.Logger
}

func New(camera Camera, logger *slog.Logger) *Scanner {
	return &Scanner{camera: camera, logger: logger}
}

// Scan feeds frames to handle until it reports true. The camera is
// released on that first accepted frame, on ctx cancellation and on any
// stream error.
func (s *Scanner) Scan(ctx context.Context, handle func(text string) bool) error {
	const op = "scanner.Scan"

	stream, err := s.camera.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Warn("camera release failed", "op", op, "error", err)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, err := stream.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrBadFrame):
			s.logger.Debug("frame skipped", "op", op, "error", err)
			continue
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%s: %w", op, ErrSourceClosed)
		default:
			return fmt.Errorf("%s: %w", op, err)
		}

		if handle(text) {
			return nil
		}
	}
}

// LineCamera reads one decoded frame per line, as emitted by keyboard-wedge
// and serial QR readers.
type LineCamera struct {
	mu     sync.Mutex
	lines  *bufio.Scanner
	inUse  bool
	frames chan frame
}

type frame struct {
	text string
	err  error
}

func NewLineCamera(r io.Reader) *LineCamera {
	return &LineCamera{lines: bufio.NewScanner(r)}
}

func (c *LineCamera) Acquire(ctx context.Context) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inUse {
		return nil, ErrBusy
	}
	c.inUse = true

	if c.frames == nil {
		c.frames = make(chan frame)
		go c.read()
	}

	return &lineStream{camera: c}, nil
}

// read pumps lines for the camera's lifetime. A blocked reader cannot be
// interrupted, so it outlives individual streams.
func (c *LineCamera) read() {
	for c.lines.Scan() {
		c.frames <- decodeLine(c.lines.Text())
	}
	err := c.lines.Err()
	if err == nil {
		err = io.EOF
	}
	for {
		c.frames <- frame{err: err}
	}
}

func decodeLine(line string) frame {
	line = strings.TrimSpace(line)
	if line == "" || !utf8.ValidString(line) {
		return frame{err: fmt.Errorf("%w: %q", ErrBadFrame, line)}
	}
	return frame{text: line}
}

func (c *LineCamera) release() {
	c.mu.Lock()
	c.inUse = false
	c.mu.Unlock()
}

type lineStream struct {
	camera *LineCamera
	once   sync.Once
}

func (s *lineStream) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case f := <-s.camera.frames:
		return f.text, f.err
	}
}

func (s *lineStream) Close() error {
	s.once.Do(s.camera.release)
	return nil
}
