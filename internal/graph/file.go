package graph

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// FileKind distinguishes plain uploads from video uploads, which go to the
// video host.
type FileKind int

const (
	FileKindPlain FileKind = iota
	FileKindVideo
)

// File is a local file attached to a request. Contents are read on demand;
// no descriptor is held between reads.
type File struct {
	path      string
	kind      FileKind
	maxLength int64
	offset    int64
}

// OpenFile checks that path is readable and returns a plain upload.
func OpenFile(path string) (*File, error) {
	return openFile(path, FileKindPlain, -1, -1)
}

// OpenVideoFile is OpenFile for video uploads.
func OpenVideoFile(path string) (*File, error) {
	return openFile(path, FileKindVideo, -1, -1)
}

func openFile(path string, kind FileKind, maxLength, offset int64) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &UploadError{Path: path, Err: err}
	}
	info, err := f.Stat()
	_ = f.Close()
	if err != nil {
		return nil, &UploadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &UploadError{Path: path, Err: fmt.Errorf("%s is a directory", path)}
	}
	return &File{path: path, kind: kind, maxLength: maxLength, offset: offset}, nil
}

func (f *File) Path() string   { return f.path }
func (f *File) Kind() FileKind { return f.kind }
func (f *File) IsVideo() bool  { return f.kind == FileKindVideo }

// Name returns the base name of the file.
func (f *File) Name() string {
	return filepath.Base(f.path)
}

// Size returns the size of the whole file on disk.
func (f *File) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, &UploadError{Path: f.path, Err: err}
	}
	return info.Size(), nil
}

// MimeType guesses the content type from the extension.
func (f *File) MimeType() string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.path)))
	if t == "" {
		return "text/plain"
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

// Contents reads the file, honoring the window set for partial files.
func (f *File) Contents() ([]byte, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, &UploadError{Path: f.path, Err: err}
	}
	defer fh.Close()

	if f.offset > 0 {
		if _, err := fh.Seek(f.offset, io.SeekStart); err != nil {
			return nil, &UploadError{Path: f.path, Err: err}
		}
	}
	var r io.Reader = fh
	if f.maxLength >= 0 {
		r = io.LimitReader(fh, f.maxLength)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &UploadError{Path: f.path, Err: err}
	}
	return data, nil
}

// Window returns a file limited to length bytes starting at offset.
func (f *File) Window(offset, length int64) *File {
	return &File{path: f.path, kind: f.kind, maxLength: length, offset: offset}
}

// TransferChunk describes the next part of a resumable upload.
type TransferChunk struct {
	File        *File
	SessionID   string
	VideoID     string
	StartOffset int64
	EndOffset   int64
}

// IsLastChunk reports whether Graph has received every byte.
func (c *TransferChunk) IsLastChunk() bool {
	return c.StartOffset == c.EndOffset
}

// PartialFile returns the bytes Graph asked for next.
func (c *TransferChunk) PartialFile() *File {
	return c.File.Window(c.StartOffset, c.EndOffset-c.StartOffset)
}
