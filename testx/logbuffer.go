package testx

import (
	"bufio"
	"bytes"
	"strings"
	"sync"
)

// LogBuffer collects log output written from several goroutines, such as health
// checks still running after their caller gave up.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func NewLogBuffer() *LogBuffer {
	return &LogBuffer{}
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether any line logged so far contains s.
func (b *LogBuffer) Contains(s string) bool {
	for _, line := range b.Lines() {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

// Lines returns the complete lines logged so far.
func (b *LogBuffer) Lines() []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(b.String()))
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
