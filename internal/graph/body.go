package graph

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Body is an encoded request body.
type Body interface {
	Bytes() ([]byte, error)
	ContentType() string
}

// URLEncodedBody is an application/x-www-form-urlencoded body.
type URLEncodedBody struct {
	Params *Params
}

func (b *URLEncodedBody) Bytes() ([]byte, error) {
	return []byte(EncodeParams(b.Params)), nil
}

func (b *URLEncodedBody) ContentType() string {
	return "application/x-www-form-urlencoded"
}

// String returns the encoded body.
func (b *URLEncodedBody) String() string {
	return EncodeParams(b.Params)
}

// MultipartBody is a multipart/form-data body carrying params and files.
type MultipartBody struct {
	Params   *Params
	Files    *Collection[*File]
	Boundary string
}

// NewMultipartBody returns a body with a random boundary.
func NewMultipartBody(params *Params, files *Collection[*File]) *MultipartBody {
	return &MultipartBody{
		Params:   params,
		Files:    files,
		Boundary: uuid.NewString(),
	}
}

func (b *MultipartBody) ContentType() string {
	return "multipart/form-data; boundary=" + b.Boundary
}

func (b *MultipartBody) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	for _, kv := range flattenParams(b.Params) {
		fmt.Fprintf(&buf, "--%s\r\nContent-Disposition: form-data; name=%q\r\n\r\n%s\r\n", b.Boundary, kv[0], kv[1])
	}
	for name, f := range b.Files.All() {
		contents, err := f.Contents()
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "--%s\r\nContent-Disposition: form-data; name=%q; filename=%q\r\nContent-Type: %s\r\n\r\n",
			b.Boundary, name, f.Name(), f.MimeType())
		buf.Write(contents)
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", b.Boundary)
	return buf.Bytes(), nil
}
