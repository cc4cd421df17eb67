package ingest

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
)

// SnappySuffix marks inputs stored in the snappy framing format.
const SnappySuffix = ".sz"

type fileReader struct {
	io.Reader
	file *os.File
}

func (f *fileReader) Close() error {
	return f.file.Close()
}

// OpenFile opens a local input, decompressing it when the name ends in .sz.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, SnappySuffix) {
		r = snappy.NewReader(r)
	}
	return &fileReader{Reader: r, file: f}, nil
}
