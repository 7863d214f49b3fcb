package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// FileUploading concept helpers. Uploads follow a three-step handshake:
// request a presigned upload URL, PUT the raw bytes, confirm the upload.

// UploadTicket is the backend's answer to requestUploadURL.
type UploadTicket struct {
	File      string `json:"file"`
	UploadURL string `json:"uploadURL"`
}

// RequestUploadURL asks the backend for a presigned upload slot.
func (g *Gateway) RequestUploadURL(ctx context.Context, session, filename, contentType string) (*UploadTicket, error) {
	payload := map[string]string{
		"session":  session,
		"filename": filename,
	}
	if contentType != "" {
		payload["contentType"] = contentType
	}

	var ticket UploadTicket
	if err := g.CallConceptAction(ctx, "FileUploading", "requestUploadURL", payload, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Upload PUTs raw file bytes to the presigned URL. The presigned URL embeds
// its own credentials, so the upload deliberately bypasses the bearer
// transport.
func (g *Gateway) Upload(ctx context.Context, uploadURL, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.ResolveURL(uploadURL), body)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := g.upload.Do(req)
	if err != nil {
		g.log.Warn(ctx, "upload failed", "error", err)
		return fmt.Errorf("upload: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ConfirmUpload finalizes the handshake and returns the stored file reference.
func (g *Gateway) ConfirmUpload(ctx context.Context, file string) (string, error) {
	var resp struct {
		File string `json:"file"`
	}
	if err := g.CallConceptAction(ctx, "FileUploading", "confirmUpload", map[string]string{"file": file}, &resp); err != nil {
		return "", err
	}
	return resp.File, nil
}

// GetDownloadURL resolves a stored file reference to a fetchable URL,
// rewriting relative URLs against the configured API base.
func (g *Gateway) GetDownloadURL(ctx context.Context, file string) (string, error) {
	var resp struct {
		DownloadURL string `json:"downloadURL"`
	}
	if err := g.CallConceptAction(ctx, "FileUploading", "getDownloadURL", map[string]string{"file": file}, &resp); err != nil {
		return "", err
	}
	return g.ResolveURL(resp.DownloadURL), nil
}

// ResolveURL rewrites a relative URL against the configured API base;
// absolute URLs pass through unchanged.
func (g *Gateway) ResolveURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return raw
	}
	base, err := url.Parse(g.base)
	if err != nil || base.Host == "" {
		return raw
	}
	return base.Scheme + "://" + base.Host + raw
}
