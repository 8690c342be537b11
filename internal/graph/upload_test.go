package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport answers messages with canned bodies in order and
// records what was sent.
type scriptedTransport struct {
	replies  []string
	messages []*Message
}

func (s *scriptedTransport) Send(_ context.Context, msg *Message) (*RawResponse, error) {
	s.messages = append(s.messages, msg)
	if len(s.replies) == 0 {
		return nil, errors.New("unexpected request")
	}
	body := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	status := 200
	if strings.Contains(body, `"error"`) {
		status = 400
	}
	return &RawResponse{Status: status, Body: []byte(body)}, nil
}

const rejectedChunk = `{"error":{"message":"Upload failed","code":6000,"error_subcode":1363030,"type":"OAuthException"}}`

func newTestUploader(replies ...string) (*ResumableUploader, *scriptedTransport) {
	transport := &scriptedTransport{replies: replies}
	return NewResumableUploader(testApp(), NewClient(transport), "foo_token", "v1337"), transport
}

func TestUploadVideo(t *testing.T) {
	path := writeTempFile(t, "foo.mp4", "ghijklmnop")
	uploader, transport := newTestUploader(
		`{"video_id":"1337","upload_session_id":"42","start_offset":"0","end_offset":"6"}`,
		`{"start_offset":"6","end_offset":"10"}`,
		`{"start_offset":"10","end_offset":"10"}`,
		`{"success":true}`,
	)

	result, err := UploadVideo(context.Background(), uploader, "me", path, ParamsOf("title", "Foo"), DefaultUploadAttempts)
	require.NoError(t, err)
	assert.Equal(t, &VideoUploadResult{VideoID: "1337", Success: true}, result)
	require.Len(t, transport.messages, 4)

	for _, msg := range transport.messages {
		assert.True(t, strings.HasPrefix(msg.URL, BaseGraphVideoURL+"/v1337/me/videos") || strings.HasPrefix(msg.URL, BaseGraphURL+"/v1337/me/videos"), msg.URL)
		assert.Equal(t, "POST", msg.Method)
	}

	start := string(transport.messages[0].Body)
	assert.Contains(t, start, "upload_phase=start")
	assert.Contains(t, start, "file_size=10")

	first := string(transport.messages[1].Body)
	assert.True(t, strings.HasPrefix(transport.messages[1].URL, BaseGraphVideoURL))
	assert.Contains(t, first, "ghijkl")
	assert.NotContains(t, first, "mnop")
	assert.Contains(t, first, `name="upload_session_id"`)

	second := string(transport.messages[2].Body)
	assert.Contains(t, second, "mnop")
	assert.NotContains(t, second, "ghijkl")

	finish := string(transport.messages[3].Body)
	assert.Contains(t, finish, "title=Foo")
	assert.Contains(t, finish, "upload_phase=finish")
	assert.Contains(t, finish, "upload_session_id=42")
}

func TestResumableUploader_RetriesRejectedChunk(t *testing.T) {
	path := writeTempFile(t, "foo.mp4", "abcd")
	file, err := OpenVideoFile(path)
	require.NoError(t, err)
	uploader, transport := newTestUploader(rejectedChunk, rejectedChunk, `{"start_offset":"4","end_offset":"4"}`)

	chunk := &TransferChunk{File: file, SessionID: "42", StartOffset: 0, EndOffset: 4}
	last, err := uploader.TransferAll(context.Background(), "/me/videos", chunk, 5)
	require.NoError(t, err)
	assert.True(t, last.IsLastChunk())
	assert.Len(t, transport.messages, 3)
}

func TestResumableUploader_GivesUpAfterMaxAttempts(t *testing.T) {
	path := writeTempFile(t, "foo.mp4", "abcd")
	file, err := OpenVideoFile(path)
	require.NoError(t, err)
	uploader, transport := newTestUploader(rejectedChunk)

	chunk := &TransferChunk{File: file, SessionID: "42", StartOffset: 0, EndOffset: 4}
	_, err = uploader.TransferAll(context.Background(), "/me/videos", chunk, 3)

	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr), "got %v", err)
	assert.Equal(t, KindResumableUpload, respErr.Kind)
	assert.Len(t, transport.messages, 3)
}

func TestResumableUploader_OtherErrorsAreNotRetried(t *testing.T) {
	path := writeTempFile(t, "foo.mp4", "abcd")
	file, err := OpenVideoFile(path)
	require.NoError(t, err)
	uploader, transport := newTestUploader(`{"error":{"message":"nope","code":100}}`)

	chunk := &TransferChunk{File: file, SessionID: "42", StartOffset: 0, EndOffset: 4}
	_, err = uploader.TransferAll(context.Background(), "/me/videos", chunk, 5)
	require.Error(t, err)
	assert.Len(t, transport.messages, 1)
}

func TestUploadVideo_MissingFile(t *testing.T) {
	uploader, transport := newTestUploader()
	_, err := UploadVideo(context.Background(), uploader, "me", "/does/not/exist.mp4", nil, 1)
	assert.True(t, IsUploadError(err))
	assert.Empty(t, transport.messages)
}

func TestFile_Window(t *testing.T) {
	path := writeTempFile(t, "foo.txt", "0123456789")
	file, err := OpenFile(path)
	require.NoError(t, err)

	all, err := file.Contents()
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(all))

	part, err := file.Window(3, 4).Contents()
	require.NoError(t, err)
	assert.Equal(t, "3456", string(part))

	tail, err := file.Window(8, 100).Contents()
	require.NoError(t, err)
	assert.Equal(t, "89", string(tail))

	assert.Equal(t, "foo.txt", file.Name())
	assert.Equal(t, "text/plain", file.MimeType())
	assert.False(t, file.IsVideo())
}

func TestOpenFile_Errors(t *testing.T) {
	_, err := OpenFile("/does/not/exist")
	require.True(t, IsUploadError(err))
	assert.Contains(t, err.Error(), "Failed to create File entity. Unable to read resource: /does/not/exist.")

	_, err = OpenFile(t.TempDir())
	assert.True(t, IsUploadError(err))
}
