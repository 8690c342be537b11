package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultUploadAttempts is how many times a rejected chunk is sent.
const DefaultUploadAttempts = 5

// ResumableUploader drives the start/transfer/finish video upload protocol.
type ResumableUploader struct {
	app          *App
	client       *Client
	accessToken  string
	graphVersion string
}

// NewResumableUploader returns an uploader sending with client.
func NewResumableUploader(app *App, client *Client, accessToken, graphVersion string) *ResumableUploader {
	return &ResumableUploader{app: app, client: client, accessToken: accessToken, graphVersion: graphVersion}
}

// Start opens an upload session for file on endpoint.
func (u *ResumableUploader) Start(ctx context.Context, endpoint string, file *File) (*TransferChunk, error) {
	size, err := file.Size()
	if err != nil {
		return nil, err
	}
	body, err := u.send(ctx, endpoint, ParamsOf(
		"upload_phase", "start",
		"file_size", size,
	))
	if err != nil {
		return nil, err
	}
	start, end := offsets(body)
	return &TransferChunk{
		File:        file,
		SessionID:   fieldString(body, "upload_session_id"),
		VideoID:     fieldString(body, "video_id"),
		StartOffset: start,
		EndOffset:   end,
	}, nil
}

// Transfer sends chunk. When Graph rejects it with a resumable error and
// allowToFail is false, the same chunk is returned so it can be resent.
func (u *ResumableUploader) Transfer(ctx context.Context, endpoint string, chunk *TransferChunk, allowToFail bool) (*TransferChunk, error) {
	body, err := u.send(ctx, endpoint, ParamsOf(
		"upload_phase", "transfer",
		"upload_session_id", chunk.SessionID,
		"start_offset", chunk.StartOffset,
		"video_file_chunk", chunk.PartialFile(),
	))
	if err != nil {
		var respErr *ResponseError
		if allowToFail || !errors.As(err, &respErr) || respErr.Kind != KindResumableUpload {
			return nil, err
		}
		return chunk, nil
	}
	start, end := offsets(body)
	return &TransferChunk{
		File:        chunk.File,
		SessionID:   chunk.SessionID,
		VideoID:     chunk.VideoID,
		StartOffset: start,
		EndOffset:   end,
	}, nil
}

// Finish closes the session; metadata is sent along (title, description...).
func (u *ResumableUploader) Finish(ctx context.Context, endpoint, sessionID string, metadata *Params) (bool, error) {
	params := metadata.Clone()
	params.Set("upload_phase", "finish")
	params.Set("upload_session_id", sessionID)
	body, err := u.send(ctx, endpoint, params)
	if err != nil {
		return false, err
	}
	v, _ := body.Get("success")
	ok, _ := v.(bool)
	return ok, nil
}

// TransferAll sends chunks until Graph reports the last one. A chunk rejected
// with a resumable error is resent until maxAttempts sends have failed.
func (u *ResumableUploader) TransferAll(ctx context.Context, endpoint string, chunk *TransferChunk, maxAttempts int) (*TransferChunk, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	remaining := maxAttempts
	for !chunk.IsLastChunk() {
		remaining--
		next, err := u.Transfer(ctx, endpoint, chunk, remaining < 1)
		if err != nil {
			return nil, err
		}
		if next == chunk {
			slog.Info("retrying rejected chunk", "start_offset", chunk.StartOffset, "attempts_left", remaining)
			continue
		}
		slog.Debug("chunk transferred", "start_offset", chunk.StartOffset, "next_offset", next.StartOffset)
		remaining = maxAttempts
		chunk = next
	}
	return chunk, nil
}

func (u *ResumableUploader) send(ctx context.Context, endpoint string, params *Params) (*Object, error) {
	req, err := NewRequest(u.app, u.accessToken, "POST", endpoint, params, "", u.graphVersion)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.DecodedBody(), nil
}

func offsets(body *Object) (int64, int64) {
	s, _ := body.Get("start_offset")
	e, _ := body.Get("end_offset")
	start, _ := toInt(s)
	end, _ := toInt(e)
	return int64(start), int64(end)
}

func fieldString(body *Object, key string) string {
	v, _ := body.Get(key)
	s, _ := toString(v)
	return s
}

// VideoUploadResult is what UploadVideo reports.
type VideoUploadResult struct {
	VideoID string `json:"video_id"`
	Success bool   `json:"success"`
}

// UploadVideo uploads the file at path to "/{target}/videos" in chunks.
func UploadVideo(ctx context.Context, uploader *ResumableUploader, target, path string, metadata *Params, maxAttempts int) (*VideoUploadResult, error) {
	file, err := OpenVideoFile(path)
	if err != nil {
		return nil, err
	}
	endpoint := "/" + target + "/videos"

	chunk, err := uploader.Start(ctx, endpoint, file)
	if err != nil {
		return nil, fmt.Errorf("failed to start upload: %w", err)
	}
	if _, err := uploader.TransferAll(ctx, endpoint, chunk, maxAttempts); err != nil {
		return nil, fmt.Errorf("failed to transfer upload: %w", err)
	}
	ok, err := uploader.Finish(ctx, endpoint, chunk.SessionID, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to finish upload: %w", err)
	}
	return &VideoUploadResult{VideoID: chunk.VideoID, Success: ok}, nil
}
