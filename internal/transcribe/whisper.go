package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/petems/whisper-dictate/internal/config"
)

var _ Engine = (*Whisper)(nil)

// Whisper runs whisper.cpp in-process. The model is loaded once and each
// call gets its own decoding context.
type Whisper struct {
	model   whisper.Model
	threads uint
	mu      sync.Mutex
}

// NewWhisper loads model, downloading it into config.ModelsPath() first if it
// is a known name that is not on disk yet. model may also be a path to a
// ggml .bin file.
func NewWhisper(ctx context.Context, model string, cfg config.WhisperConfig, log zerolog.Logger) (*Whisper, error) {
	modelPath := ModelPath(model)

	// Check if model exists, download if needed
	if _, err := os.Stat(modelPath); errors.Is(err, os.ErrNotExist) {
		if err := downloadModel(ctx, model, modelPath, log); err != nil {
			return nil, fmt.Errorf("failed to download model: %w", err)
		}
	}

	log.Info().Str("model", model).Str("path", modelPath).Msg("Loading model")
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", modelPath, err)
	}

	threads := uint(0)
	if cfg.Threads > 0 {
		threads = uint(cfg.Threads)
	}
	return &Whisper{model: m, threads: threads}, nil
}

// ModelPath resolves a model name to its file.
func ModelPath(model string) string {
	if strings.HasSuffix(model, ".bin") || strings.ContainsRune(model, filepath.Separator) {
		return model
	}
	return filepath.Join(config.ModelsPath(), "ggml-"+model+".bin")
}

func (w *Whisper) Transcribe(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return Result{}, errors.New("whisper: model closed")
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create context: %w", err)
	}

	if w.threads > 0 {
		wctx.SetThreads(w.threads)
	}
	lang := req.Language
	if lang == "" {
		lang = config.LanguageAuto
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return Result{}, fmt.Errorf("set language %q: %w", lang, err)
	}
	wctx.SetTranslate(req.Task == TaskTranslate)

	// Returning false from the encoder callback aborts decoding.
	keepGoing := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(req.Samples, keepGoing, nil, nil); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("whisper process failed: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	res := Result{Text: strings.Join(parts, " "), Language: req.Language}
	if req.Language == "" {
		res.Language = wctx.DetectedLanguage()
	}
	return res, nil
}

func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model != nil {
		err := w.model.Close()
		w.model = nil
		return err
	}
	return nil
}
