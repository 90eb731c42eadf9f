package reader

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"strings"
)

// openSeqFile opens path, transparently decompressing gzip/bz2
// inputs identified by their extension, as muscato's intermediate
// files are always explicitly named with their codec's extension.
func openSeqFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &wrapReadCloser{Reader: gz, closer: f}, nil
	case strings.HasSuffix(path, ".bz2"):
		return &wrapReadCloser{Reader: bzip2.NewReader(f), closer: f}, nil
	default:
		return f, nil
	}
}

// wrapReadCloser pairs a decompressing io.Reader with the underlying
// file it must close.
type wrapReadCloser struct {
	io.Reader
	closer io.Closer
}

func (w *wrapReadCloser) Close() error {
	return w.closer.Close()
}
