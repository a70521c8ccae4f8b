// Package server is the HTTP glue around the transcription service: it
// accepts multipart audio uploads, hands non-WAV input to ffmpeg, and maps
// pipeline errors to status codes. No decoding logic lives here.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zameerb1/medasr/internal/asr"
	"github.com/zameerb1/medasr/internal/audio"
	"github.com/zameerb1/medasr/internal/config"
	"github.com/zameerb1/medasr/internal/media"
	"github.com/zameerb1/medasr/internal/transcribe"
)

var supportedExtensions = map[string]bool{
	".wav":  true,
	".m4a":  true,
	".mp3":  true,
	".mp4":  true,
	".aac":  true,
	".ogg":  true,
	".flac": true,
}

// Transcriber is what the HTTP layer needs from the transcription service.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (transcribe.Result, error)
	TranscribeChunked(ctx context.Context, path string, chunkSeconds, strideSeconds float64) (transcribe.Result, error)
	Ready() bool
	Device() asr.Device
}

type Server struct {
	app *fiber.App
	svc Transcriber
	cfg config.Config
	log *zap.Logger

	// convertFn is swapped in tests to avoid requiring ffmpeg.
	convertFn func(ctx context.Context, inputPath, outputPath string) error
}

func New(cfg config.Config, svc Transcriber, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		svc:       svc,
		cfg:       cfg,
		log:       logger,
		convertFn: media.ConvertToWAV,
	}

	app := fiber.New(fiber.Config{
		AppName:               "medasr",
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	// Browser clients upload recordings directly.
	app.Use(cors.New())
	app.Use(s.requestID)
	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	app.Post("/transcribe", s.handleTranscribe(false))
	app.Post("/transcribe/long", s.handleTranscribe(true))

	s.app = app
	return s
}

func (s *Server) Listen() error {
	s.log.Info("http server listening", zap.String("addr", s.cfg.Server.Addr()))
	return s.app.Listen(s.cfg.Server.Addr())
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) requestID(c *fiber.Ctx) error {
	id := uuid.NewString()
	c.Locals("request_id", id)
	c.Set("X-Request-ID", id)
	return c.Next()
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "medasr transcription api"})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "healthy",
		"model_loaded": s.svc.Ready(),
		"device":       string(s.svc.Device()),
	})
}

func (s *Server) handleTranscribe(long bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return badRequest(c, "no audio file provided")
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if !supportedExtensions[ext] {
			return badRequest(c, fmt.Sprintf("unsupported format %q (supported: %s)", ext, supportedList()))
		}

		tempDir, err := os.MkdirTemp("", "medasr-upload-*")
		if err != nil {
			return serverError(c, s.log, "create upload dir", err)
		}
		defer os.RemoveAll(tempDir)

		inputPath := filepath.Join(tempDir, "input"+ext)
		if err := c.SaveFile(fileHeader, inputPath); err != nil {
			return serverError(c, s.log, "save upload", err)
		}

		audioPath := inputPath
		if ext != ".wav" {
			audioPath = filepath.Join(tempDir, "audio.wav")
			if err := s.convertFn(c.UserContext(), inputPath, audioPath); err != nil {
				return serverError(c, s.log, "convert audio", err)
			}
		}

		logger := s.log.With(
			zap.Any("request_id", c.Locals("request_id")),
			zap.String("filename", fileHeader.Filename),
			zap.Bool("chunked", long))
		logger.Info("transcription request")

		var result transcribe.Result
		if long {
			result, err = s.svc.TranscribeChunked(c.UserContext(), audioPath,
				s.cfg.Chunking.ChunkSeconds, s.cfg.Chunking.StrideSeconds)
		} else {
			result, err = s.svc.Transcribe(c.UserContext(), audioPath)
		}
		if err != nil {
			logger.Warn("transcription failed", zap.Error(err))
			return c.Status(statusForError(err)).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}

		logger.Info("transcription succeeded", zap.Int("characters", len(result.Text)))
		return c.JSON(fiber.Map{
			"success":  true,
			"text":     result.Text,
			"filename": fileHeader.Filename,
		})
	}
}

// statusForError maps pipeline errors to HTTP status codes: input validation
// is the client's fault, a failed model load is temporary, everything else is
// an internal failure.
func statusForError(err error) int {
	switch {
	case errors.Is(err, audio.ErrEmptyAudio),
		errors.Is(err, audio.ErrTooShort),
		errors.Is(err, audio.ErrSilent),
		errors.Is(err, audio.ErrInvalidWAV):
		return fiber.StatusBadRequest
	case errors.Is(err, transcribe.ErrModelLoad):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func serverError(c *fiber.Ctx, logger *zap.Logger, action string, err error) error {
	logger.Error(action, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   fmt.Sprintf("%s: %v", action, err),
	})
}

func supportedList() string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
