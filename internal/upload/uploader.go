package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/wandergram/wanderchat/internal/conversation"
	"go.uber.org/zap"
)

// ErrUnsupportedMediaType is returned for files whose top-level declared type
// the asset host does not accept.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// Input describes one attachment to persist. Either Data (a local file) or
// RemoteURL (an animated-image reference that is already hosted) is set.
type Input struct {
	Name        string
	ContentType string
	Data        io.Reader
	RemoteURL   string
}

// Result is a durable media URL plus its classified kind.
type Result struct {
	URL  string
	Kind conversation.MediaKind
}

// Uploader converts a local file or remote animated-image URL into a durable
// media URL via the asset host's multipart upload endpoints.
type Uploader struct {
	assetHost string
	preset    string
	folder    string
	hc        *http.Client
	logger    *zap.Logger
}

// New creates an uploader against the given asset host.
func New(assetHost, preset, folder string, logger *zap.Logger) *Uploader {
	return &Uploader{
		assetHost: strings.TrimRight(assetHost, "/"),
		preset:    preset,
		folder:    folder,
		hc:        &http.Client{Timeout: 60 * time.Second},
		logger:    logger,
	}
}

// Upload persists the input and returns its durable URL and kind. An already
// hosted animated-image URL passes through unchanged with no network call.
// Failures return a nil result; the caller must abort its send rather than
// transmit a broken media reference.
func (u *Uploader) Upload(ctx context.Context, in Input) (*Result, error) {
	if in.RemoteURL != "" {
		if !strings.Contains(strings.ToLower(in.RemoteURL), "gif") {
			return nil, fmt.Errorf("%w: remote reference %q is not an animated image", ErrUnsupportedMediaType, in.RemoteURL)
		}
		return &Result{URL: in.RemoteURL, Kind: conversation.KindImage}, nil
	}

	contentType := in.ContentType
	if contentType == "" {
		// Recorded audio commonly arrives with no declared type.
		contentType = "audio/wav"
	}

	endpoint, err := routeFor(contentType)
	if err != nil {
		return nil, err
	}

	body, formType, err := buildForm(in.Name, contentType, in.Data, u.preset, u.folder)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	url := u.assetHost + "/" + endpoint + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", formType)

	resp, err := u.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", in.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload %s: unexpected status %d", in.Name, resp.StatusCode)
	}

	var parsed struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.SecureURL == "" {
		return nil, fmt.Errorf("upload %s: response carried no secure_url", in.Name)
	}

	u.logger.Info("media uploaded",
		zap.String("endpoint", endpoint),
		zap.String("name", in.Name))
	return &Result{URL: parsed.SecureURL, Kind: Classify(in.Name, contentType)}, nil
}

// routeFor maps the top-level declared type onto the asset host endpoint.
func routeFor(contentType string) (string, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return "image", nil
	case strings.HasPrefix(ct, "video/"):
		return "video", nil
	case strings.HasPrefix(ct, "audio/"):
		return "raw", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
}

// Classify derives the media kind from the declared content type or, failing
// that, the file extension.
func Classify(name, contentType string) conversation.MediaKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return conversation.KindImage
	case strings.HasPrefix(ct, "video/"):
		return conversation.KindVideo
	case strings.HasPrefix(ct, "audio/"):
		return conversation.KindAudio
	}
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".") {
	case "jpg", "jpeg", "png", "webp", "gif":
		return conversation.KindImage
	case "mp4", "avi", "mov", "mkv":
		return conversation.KindVideo
	case "mp3", "wav", "ogg", "flac":
		return conversation.KindAudio
	}
	return conversation.KindDocument
}

func buildForm(name, contentType string, data io.Reader, preset, folder string) (io.Reader, string, error) {
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)

	go func() {
		err := writeForm(w, name, data, preset, folder)
		_ = w.Close()
		pw.CloseWithError(err)
	}()

	return pr, w.FormDataContentType(), nil
}

func writeForm(w *multipart.Writer, name string, data io.Reader, preset, folder string) error {
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, data); err != nil {
		return err
	}
	if err := w.WriteField("upload_preset", preset); err != nil {
		return err
	}
	return w.WriteField("folder", folder)
}
