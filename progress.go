package mirror

import "io"

// ProgressFunc observes a running transfer. It is called with zero bytes
// before the first read and then after every read that moved data.
type ProgressFunc func(label string, transferred, total int64)

type progressReader struct {
	r     io.Reader
	label string
	total int64
	n     int64
	fn    ProgressFunc
}

func newProgressReader(r io.Reader, label string, total int64, fn ProgressFunc) io.Reader {
	if fn == nil {
		return r
	}
	fn(label, 0, total)
	return &progressReader{r: r, label: label, total: total, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.n += int64(n)
		p.fn(p.label, p.n, p.total)
	}
	return n, err
}
