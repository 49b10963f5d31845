package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/usecase"
)

// TranslationExecutor runs one translation invocation inside its own audio scope
type TranslationExecutor interface {
	Execute(ctx context.Context, req usecase.TranslationRequest, consume func(entities.OperationResult) error) error
}

// TranslateHandler serves POST /translate
type TranslateHandler struct {
	executor TranslationExecutor
	timeout  time.Duration
	logger   *zap.Logger
}

// NewTranslateHandler creates a handler. A zero timeout leaves the request
// context untouched.
func NewTranslateHandler(executor TranslationExecutor, timeout time.Duration, logger *zap.Logger) *TranslateHandler {
	return &TranslateHandler{
		executor: executor,
		timeout:  timeout,
		logger:   logger,
	}
}

// Translate validates the form, runs the requested pipeline and writes
// either JSON or an mp3 attachment
func (h *TranslateHandler) Translate(c echo.Context) error {
	if _, err := c.FormParams(); err != nil {
		h.logger.Warn("Failed to parse translate form", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidForm})
	}
	// Body fields only, the query string is ignored
	params := c.Request().PostForm

	options, ok := params[fieldOption]
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingOption})
	}
	mode, err := entities.ParseMode(options[0])
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidOption})
	}

	req := usecase.TranslationRequest{
		Mode:           mode,
		SourceLanguage: formValue(params, fieldSourceLanguage, entities.DefaultLanguage),
		TargetLanguage: formValue(params, fieldLanguage, entities.DefaultLanguage),
	}

	if mode.RequiresText() {
		texts, ok := params[fieldText]
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingText})
		}
		req.Text = texts[0]
	}

	if mode.RequiresAudio() {
		header, err := c.FormFile(fieldAudio)
		if err != nil {
			// A file part without a filename is parsed as a plain value
			if _, present := params[fieldAudio]; present {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgNoAudioFile})
			}
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingAudio})
		}
		if header.Filename == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgNoAudioFile})
		}

		file, err := header.Open()
		if err != nil {
			h.logger.Error("Failed to open uploaded audio", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		defer file.Close()

		req.Audio = file
		req.AudioFilename = header.Filename
	}

	ctx := c.Request().Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	err = h.executor.Execute(ctx, req, func(result entities.OperationResult) error {
		return h.respond(c, result)
	})
	if err != nil {
		if c.Response().Committed {
			h.logger.Error("Translation response aborted",
				zap.String("mode", string(mode)),
				zap.Error(err))
			return nil
		}
		h.logger.Error("Translation failed",
			zap.String("mode", string(mode)),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return nil
}

// respond writes the result while its audio is still in scope
func (h *TranslateHandler) respond(c echo.Context, result entities.OperationResult) error {
	if failure := result.Failure(); failure != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: failure.Message})
	}

	if !result.HasAudio() {
		return c.JSON(http.StatusOK, TranslateResponse{TranslatedText: result.Text()})
	}

	audio := result.Audio()
	file, err := audio.Open()
	if err != nil {
		return fmt.Errorf("failed to open generated audio: %w", err)
	}
	defer file.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, `attachment; filename="translation.mp3"`)
	if size, err := audio.Size(); err == nil {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	}

	contentType := audio.ContentType
	if contentType == "" {
		contentType = entities.DefaultAudioContentType
	}
	return c.Stream(http.StatusOK, contentType, file)
}

// Languages lists the language catalogue and the supported modes
func Languages(c echo.Context) error {
	return c.JSON(http.StatusOK, LanguagesResponse{
		Languages: entities.SupportedLanguages,
		Modes:     entities.Modes,
	})
}

func formValue(params url.Values, key, fallback string) string {
	if values, ok := params[key]; ok && len(values) > 0 {
		return values[0]
	}
	return fallback
}
