package listener

import (
	"bytes"
	"io"
)

// lineEndings adapts a network stream to the line protocol. Reads turn
// \r\n, \r\x00 and bare \r into \n; writes turn \n into \r\n.
type lineEndings struct {
	rw io.ReadWriter
}

func newCRLFReadWriter(rw io.ReadWriter) io.ReadWriter {
	return &lineEndings{rw: rw}
}

var (
	crlf  = []byte("\r\n")
	crnul = []byte("\r\x00")
	cr    = []byte("\r")
	lf    = []byte("\n")
)

func (l *lineEndings) Read(p []byte) (int, error) {
	n, err := l.rw.Read(p)
	if n > 0 {
		data := bytes.ReplaceAll(p[:n], crlf, lf)
		data = bytes.ReplaceAll(data, crnul, lf)
		data = bytes.ReplaceAll(data, cr, lf)
		n = copy(p, data)
	}
	return n, err
}

// Write reports len(p) on success so callers never see the expanded size.
func (l *lineEndings) Write(p []byte) (int, error) {
	_, err := l.rw.Write(bytes.ReplaceAll(p, lf, crlf))
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
