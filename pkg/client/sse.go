package client

import (
	"bufio"
	"bytes"
	"io"
)

// maxSSELineSize bounds a single SSE data line; inline binary payloads can
// run well past bufio's default.
const maxSSELineSize = 10 * 1024 * 1024

// streamSSE scans an SSE response body and delivers each data payload on the
// returned channel. The channel closes when the stream ends, for any reason;
// closing the body from the caller's side tears the scan down.
func streamSSE(r io.ReadCloser) <-chan []byte {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxSSELineSize)
	ch := make(chan []byte, 10)
	go func() {
		defer close(ch)
		defer r.Close()
		for scanner.Scan() {
			line := scanner.Bytes()
			if bytes.HasPrefix(line, []byte("data:")) {
				data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
				if len(data) > 0 {
					// Copy: the scanner reuses its buffer on the next line.
					ch <- append([]byte(nil), data...)
				}
			}
		}
	}()
	return ch
}
