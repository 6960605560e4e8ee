package blob

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Key builds an object key of the form <prefix>/<unixnano>_<filename>.
func Key(prefix, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "upload"
	}
	return fmt.Sprintf("%s/%d_%s", prefix, at.UnixNano(), name)
}

// progressReader reports the running byte count after every read.
type progressReader struct {
	r        io.Reader
	written  int64
	progress func(int64)
}

func withProgress(r io.Reader, progress func(int64)) io.Reader {
	if progress == nil {
		return r
	}
	p := &progressReader{r: r, progress: progress}
	if rs, ok := r.(io.ReadSeeker); ok {
		return &seekingProgressReader{progressReader: p, s: rs}
	}
	return p
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.progress(p.written)
	}
	return n, err
}

// seekingProgressReader keeps the body rewindable so the S3 signer can hash
// it and seek back before sending.
type seekingProgressReader struct {
	*progressReader
	s io.Seeker
}

func (p *seekingProgressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.s.Seek(offset, whence)
	if err == nil {
		p.written = pos
	}
	return pos, err
}
