// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package wire

import (
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// compStream wraps an io.ReadWriteCloser with snappy framing, the same shape
// as kcptun's CompStream, generalised from net.Conn to any ReadWriteCloser so
// it can sit on top of a raw TCP conn or an smux stream alike.
type compStream struct {
	rwc io.ReadWriteCloser
	w   *snappy.Writer
	r   *snappy.Reader
}

func newCompStream(rwc io.ReadWriteCloser) *compStream {
	return &compStream{
		rwc: rwc,
		w:   snappy.NewBufferedWriter(rwc),
		r:   snappy.NewReader(rwc),
	}
}

func (c *compStream) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *compStream) Write(p []byte) (int, error) {
	if _, err := c.w.Write(p); err != nil {
		return 0, errors.WithStack(err)
	}
	if err := c.w.Flush(); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(p), nil
}

func (c *compStream) Close() error {
	return c.rwc.Close()
}
