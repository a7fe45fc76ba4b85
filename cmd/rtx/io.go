package main

import (
	"errors"
	"io"
	"os"

	"github.com/rtxscan/rtx/pkg/atomicfile"
)

var errMissingOutput = errors.New("--output is required for this format (use \"-\" to stream to stdout)")

// atomicWriter adapts atomicfile.File to the io.Writer callers in this
// package want. close() is safe to defer unconditionally because
// atomicfile.File.Close is a no-op after its first call.
type atomicWriter struct {
	w    io.Writer
	file *atomicfile.File
}

func createAtomic(path string) (*atomicWriter, error) {
	f, err := atomicfile.New(path)
	if err != nil {
		return nil, err
	}
	return &atomicWriter{w: f, file: f}, nil
}

func (a *atomicWriter) close() {
	a.file.Close()
}

// writeBytes writes data to output. "-" streams to stdout; anything else
// goes through an atomic rename. requirePath, when true, rejects an empty
// output (json/html/sbom all require an explicit --output per the CLI
// contract; only "-" is allowed to stream).
func writeBytes(data []byte, output string, requirePath bool) error {
	if output == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if output == "" {
		if requirePath {
			return errMissingOutput
		}
		_, err := os.Stdout.Write(data)
		return err
	}
	f, err := createAtomic(output)
	if err != nil {
		return err
	}
	defer f.close()
	_, err = f.w.Write(data)
	return err
}
