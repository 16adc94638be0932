// Package transporters contains log.Transporter implementations.
package transporters

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"socialfeed/pkg/log"
)

// JSON writes one JSON object per line to an io.Writer.
type JSON struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdout returns a JSON transporter writing to os.Stdout.
func NewStdout() *JSON {
	return &JSON{w: os.Stdout}
}

// NewJSON returns a JSON transporter writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

func (j *JSON) Name() string { return "json" }

func (j *JSON) Write(entry log.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.w.Write(data)
	return err
}

func (j *JSON) Close() error { return nil }
