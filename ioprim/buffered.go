package ioprim

import (
	"bufio"
	"io"
)

// DefaultBufferSize is the buffer size BufferedReader and BufferedWriter
// use to batch small reads/writes into fewer OS calls. No package in this
// module calls these helpers; txn builds its backups in memory.
const DefaultBufferSize = 4096

// BufferedReader wraps src with a DefaultBufferSize read buffer.
func BufferedReader(src io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(src, DefaultBufferSize)
}

// BufferedWriter wraps dst with a DefaultBufferSize write buffer. Callers
// must call Flush before closing the underlying sink.
func BufferedWriter(dst io.Writer) *bufio.Writer {
	return bufio.NewWriterSize(dst, DefaultBufferSize)
}
