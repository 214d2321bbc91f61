package paper

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"meanrev-go/internal/execution"
)

// ErrClosed is returned when recording after Close.
var ErrClosed = errors.New("paper: recorder closed")

// JSONLRecorder buffers trades as JSON lines and appends them to a file. Lines reach disk on
// Flush or Close.
type JSONLRecorder struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	buf     *bufio.Writer
	written int
}

// NewJSONLRecorder opens path for appending, creating parent directories as needed.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trades dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trades file: %w", err)
	}
	return &JSONLRecorder{path: path, file: file, buf: bufio.NewWriter(file)}, nil
}

// Record encodes one trade as a line.
func (r *JSONLRecorder) Record(trade execution.Trade) error {
	line, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("encode %s trade: %w", trade.Stock, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return ErrClosed
	}
	line = append(line, '\n')
	if _, err := r.buf.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	r.written++
	return nil
}

// Written counts trades recorded so far.
func (r *JSONLRecorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Flush pushes buffered lines to the file.
func (r *JSONLRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return ErrClosed
	}
	return r.buf.Flush()
}

// Close flushes and closes the file. Closing twice is a no-op.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	flushErr := r.buf.Flush()
	closeErr := r.file.Close()
	r.file = nil
	return errors.Join(flushErr, closeErr)
}
