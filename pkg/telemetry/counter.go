package telemetry

import "io"

// CountingWriter counts the bytes that reach the underlying writer
type CountingWriter struct {
	W io.Writer
	N int64
}

// Write implements io.Writer
func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += int64(n)
	return n, err
}
