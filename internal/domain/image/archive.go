package image

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"time"
)

// DefaultCompressionLevel is the deflate level used when none is configured.
const DefaultCompressionLevel = flate.DefaultCompression

// archiveModTime is stamped on every entry so equal batches give equal bytes.
var archiveModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// WriteArchive streams the successes of summary to w as a zip, in outcome
// order. flate.NoCompression stores entries as is. It refuses to write an
// archive with no entries.
func WriteArchive(w io.Writer, summary *BatchSummary, level int) ([]ArchiveEntry, error) {
	if summary == nil || summary.SuccessCount == 0 {
		return nil, ErrNoSuccess
	}
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, withCause(ErrArchive, "image.archive", fmt.Errorf("invalid compression level %d", level))
	}

	method := zip.Deflate
	if level == flate.NoCompression {
		method = zip.Store
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	entries := make([]ArchiveEntry, 0, summary.SuccessCount)
	for _, s := range summary.Successes() {
		header := &zip.FileHeader{
			Name:     s.OutputName,
			Method:   method,
			Modified: archiveModTime,
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return nil, withCause(ErrArchive, "image.archive", fmt.Errorf("create %s: %w", s.OutputName, err))
		}
		if _, err := fw.Write(s.Data); err != nil {
			return nil, withCause(ErrArchive, "image.archive", fmt.Errorf("write %s: %w", s.OutputName, err))
		}
		entries = append(entries, ArchiveEntry{Name: s.OutputName, Size: len(s.Data)})
	}

	if err := zw.Close(); err != nil {
		return nil, withCause(ErrArchive, "image.archive", fmt.Errorf("finalize: %w", err))
	}
	return entries, nil
}

// BuildArchive packs the successes of summary into an in-memory zip.
func BuildArchive(summary *BatchSummary, level int) (*Archive, error) {
	var buf bytes.Buffer
	entries, err := WriteArchive(&buf, summary, level)
	if err != nil {
		return nil, err
	}
	return &Archive{Entries: entries, Data: buf.Bytes()}, nil
}
