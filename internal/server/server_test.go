package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zameerb1/medasr/internal/asr"
	"github.com/zameerb1/medasr/internal/audio"
	"github.com/zameerb1/medasr/internal/config"
	"github.com/zameerb1/medasr/internal/transcribe"
)

type fakeService struct {
	result transcribe.Result
	err    error
	ready  bool

	calls        []string
	lastChunk    float64
	lastStride   float64
	receivedPath string
}

func (f *fakeService) Transcribe(_ context.Context, path string) (transcribe.Result, error) {
	f.calls = append(f.calls, "single")
	f.receivedPath = path
	return f.result, f.err
}

func (f *fakeService) TranscribeChunked(_ context.Context, path string, chunkSeconds, strideSeconds float64) (transcribe.Result, error) {
	f.calls = append(f.calls, "chunked")
	f.receivedPath = path
	f.lastChunk = chunkSeconds
	f.lastStride = strideSeconds
	return f.result, f.err
}

func (f *fakeService) Ready() bool        { return f.ready }
func (f *fakeService) Device() asr.Device { return asr.DeviceCPU }

func newTestServer(t *testing.T, svc *fakeService) *Server {
	t.Helper()

	srv := New(config.Default(), svc, nil)
	srv.convertFn = func(_ context.Context, _, outputPath string) error {
		return os.WriteFile(outputPath, []byte("converted"), 0o644)
	}
	return srv
}

func uploadRequest(t *testing.T, target, filename string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("not real audio"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, target, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload
}

func TestHealthReportsModelState(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{ready: true})

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	require.Equal(t, "healthy", payload["status"])
	require.Equal(t, true, payload["model_loaded"])
	require.Equal(t, "cpu", payload["device"])
}

func TestCORSHeadersForBrowserClients(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{ready: true})

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestTranscribeWAVUpload(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: transcribe.Result{Text: "patient presents with fever"}}
	srv := newTestServer(t, svc)

	resp, err := srv.App().Test(uploadRequest(t, "/transcribe", "visit.wav"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	payload := decodeBody(t, resp)
	require.Equal(t, true, payload["success"])
	require.Equal(t, "patient presents with fever", payload["text"])
	require.Equal(t, "visit.wav", payload["filename"])

	require.Equal(t, []string{"single"}, svc.calls)
}

func TestTranscribeLongUsesChunkingConfig(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: transcribe.Result{Text: "long dictation"}}
	srv := newTestServer(t, svc)

	resp, err := srv.App().Test(uploadRequest(t, "/transcribe/long", "dictation.wav"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, []string{"chunked"}, svc.calls)
	require.Equal(t, 20.0, svc.lastChunk)
	require.Equal(t, 2.0, svc.lastStride)
}

func TestTranscribeConvertsNonWAVUpload(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: transcribe.Result{Text: "converted audio"}}
	srv := newTestServer(t, svc)

	resp, err := srv.App().Test(uploadRequest(t, "/transcribe", "memo.m4a"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The service must see the converted wav, not the raw upload.
	require.Equal(t, "audio.wav", filepath.Base(svc.receivedPath))
}

func TestTranscribeConversionFailure(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{})
	srv.convertFn = func(_ context.Context, _, _ string) error {
		return fmt.Errorf("ffmpeg convert failed")
	}

	resp, err := srv.App().Test(uploadRequest(t, "/transcribe", "memo.mp3"))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTranscribeRejectsUnsupportedExtension(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	srv := newTestServer(t, svc)

	resp, err := srv.App().Test(uploadRequest(t, "/transcribe", "notes.txt"))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, svc.calls)

	payload := decodeBody(t, resp)
	require.Equal(t, false, payload["success"])
	require.Contains(t, payload["error"], "unsupported format")
}

func TestTranscribeRequiresFileField(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{})

	req, err := http.NewRequest(http.MethodPost, "/transcribe", nil)
	require.NoError(t, err)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranscribeMapsValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty audio", fmt.Errorf("%w: no samples", audio.ErrEmptyAudio), http.StatusBadRequest},
		{"too short", fmt.Errorf("%w: 0.05s", audio.ErrTooShort), http.StatusBadRequest},
		{"silent", fmt.Errorf("%w: peak 0.0001", audio.ErrSilent), http.StatusBadRequest},
		{"model load", fmt.Errorf("%w: weights missing", transcribe.ErrModelLoad), http.StatusServiceUnavailable},
		{"inference", fmt.Errorf("%w: engine exited", transcribe.ErrInference), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, &fakeService{err: tt.err})
			resp, err := srv.App().Test(uploadRequest(t, "/transcribe", "visit.wav"))
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, resp.StatusCode)

			payload := decodeBody(t, resp)
			require.Equal(t, false, payload["success"])
		})
	}
}
