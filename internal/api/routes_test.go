package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingua/adapters/tempfs"
	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories/mocks"
	"github.com/satriahrh/lingua/internal/pipeline"
	"github.com/satriahrh/lingua/usecase"
)

type gateway struct {
	e           *echo.Echo
	transcriber *mocks.Transcriber
	translator  *mocks.Translator
	synthesizer *mocks.Synthesizer
	store       *tempfs.Store
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := tempfs.NewStore(tempfs.Config{Root: t.TempDir()}, logger)
	require.NoError(t, err)

	g := &gateway{
		e:           echo.New(),
		transcriber: &mocks.Transcriber{},
		translator:  &mocks.Translator{},
		synthesizer: &mocks.Synthesizer{},
		store:       store,
	}
	g.e.HTTPErrorHandler = NewHTTPErrorHandler(logger)
	service := usecase.NewTranslationService(g.transcriber, g.translator, g.synthesizer, store, pipeline.NewRunner(logger), logger)
	InitRoutes(g.e, NewTranslateHandler(service, 5*time.Second, logger), nil, nil, logger)
	return g
}

func (g *gateway) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	g.e.ServeHTTP(rec, req)
	return rec
}

func (g *gateway) assertNoLeafCalls(t *testing.T) {
	g.transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything)
	g.translator.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
	g.synthesizer.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (g *gateway) assertWorkspaceEmpty(t *testing.T) {
	entries, err := os.ReadDir(g.store.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

// multipartRequest builds an upload. A nil audio omits the file part; an
// empty filename sends a file part without one.
func multipartRequest(t *testing.T, values map[string]string, filename string, audio []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range values {
		require.NoError(t, writer.WriteField(key, value))
	}
	if audio != nil {
		part, err := writer.CreateFormFile("audio", filename)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/translate", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	g := newGateway(t)
	rec := g.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeJSON(t, rec)["status"])
}

func TestLanguages(t *testing.T) {
	g := newGateway(t)
	rec := g.do(httptest.NewRequest(http.MethodGet, "/languages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body LanguagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, entities.SupportedLanguages, body.Languages)
	assert.Equal(t, entities.Modes, body.Modes)
}

func TestTranslate_TextToText(t *testing.T) {
	g := newGateway(t)
	g.translator.On("Translate", mock.Anything, "hello", "fr").Return("bonjour", nil).Once()

	rec := g.do(formRequest(url.Values{
		"option":   {"text-to-text"},
		"text":     {"hello"},
		"language": {"fr"},
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"translated_text":"bonjour"}`, rec.Body.String())
	g.translator.AssertExpectations(t)
}

func TestTranslate_SpeechToSpeech(t *testing.T) {
	g := newGateway(t)
	generated := []byte("ID3-generated-speech")

	g.transcriber.On("Transcribe", mock.Anything, mock.AnythingOfType("*entities.AudioResource"), "en").Return("hello", nil).Once()
	g.translator.On("Translate", mock.Anything, "hello", "ja").Return("こんにちは", nil).Once()
	g.synthesizer.On("Synthesize", mock.Anything, "こんにちは", "ja", mock.Anything).
		Run(mocks.WriteAudio(generated)).Return(nil).Once()

	rec := g.do(multipartRequest(t, map[string]string{
		"option":          "speech-to-speech",
		"source_language": "en",
		"language":        "ja",
	}, "question.wav", []byte("RIFF-recorded-audio")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "audio/mp3", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="translation.mp3"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, generated, rec.Body.Bytes())

	g.transcriber.AssertExpectations(t)
	g.translator.AssertExpectations(t)
	g.synthesizer.AssertExpectations(t)
	g.assertWorkspaceEmpty(t)
}

func TestTranslate_TextToSpeech(t *testing.T) {
	g := newGateway(t)
	g.translator.On("Translate", mock.Anything, "thanks", "en").Return("thanks", nil).Once()
	g.synthesizer.On("Synthesize", mock.Anything, "thanks", "en", mock.Anything).
		Run(mocks.WriteAudio([]byte("ID3"))).Return(nil).Once()

	rec := g.do(formRequest(url.Values{"option": {"text-to-speech"}, "text": {"thanks"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ID3", rec.Body.String())
	assert.Equal(t, "3", rec.Header().Get(echo.HeaderContentLength))
	g.assertWorkspaceEmpty(t)
}

func TestTranslate_StageFailure(t *testing.T) {
	g := newGateway(t)
	g.transcriber.On("Transcribe", mock.Anything, mock.Anything, "en").Return("", errors.New("audio too short")).Once()

	rec := g.do(multipartRequest(t, map[string]string{"option": "speech-to-text"}, "clip.wav", []byte{0}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "audio too short", decodeJSON(t, rec)["error"])
	g.translator.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
	g.assertWorkspaceEmpty(t)
}

func TestTranslate_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		request func(t *testing.T) *http.Request
		message string
	}{
		{
			name: "missing text",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"option": {"text-to-text"}})
			},
			message: "Missing text parameter",
		},
		{
			name: "missing option",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"text": {"hello"}})
			},
			message: "Missing option parameter",
		},
		{
			name: "empty option",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"option": {""}, "text": {"hello"}})
			},
			message: "Invalid option",
		},
		{
			name: "unknown option",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"option": {"text-to-braille"}, "text": {"hello"}})
			},
			message: "Invalid option",
		},
		{
			name: "missing audio",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"option": "speech-to-text"}, "", nil)
			},
			message: "Missing audio file",
		},
		{
			name: "audio without filename",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"option": "speech-to-speech"}, "", []byte("RIFF"))
			},
			message: "No selected audio file",
		},
		{
			name: "speech option on urlencoded form",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"option": {"speech-to-text"}})
			},
			message: "Missing audio file",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGateway(t)
			rec := g.do(tc.request(t))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.message, decodeJSON(t, rec)["error"])
			g.assertNoLeafCalls(t)
			g.assertWorkspaceEmpty(t)
		})
	}
}

func TestTranslate_IgnoresQueryParameters(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		body    url.Values
		message string
	}{
		{
			name:    "option only in query",
			target:  "/translate?option=text-to-text&text=hello",
			body:    url.Values{},
			message: "Missing option parameter",
		},
		{
			name:    "text only in query",
			target:  "/translate?text=hello",
			body:    url.Values{"option": {"text-to-text"}},
			message: "Missing text parameter",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGateway(t)
			req := httptest.NewRequest(http.MethodPost, tc.target, strings.NewReader(tc.body.Encode()))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

			rec := g.do(req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.message, decodeJSON(t, rec)["error"])
			g.assertNoLeafCalls(t)
		})
	}
}

func TestTranslate_ResourceError(t *testing.T) {
	g := newGateway(t)
	require.NoError(t, os.RemoveAll(g.store.Root()))

	rec := g.do(formRequest(url.Values{"option": {"text-to-text"}, "text": {"hello"}}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["error"], "failed to create audio workspace")
	g.assertNoLeafCalls(t)
}

func TestTranslate_Timeout(t *testing.T) {
	g := newGateway(t)
	logger := zaptest.NewLogger(t)

	g.translator.On("Translate", mock.Anything, "slow", "en").
		Return("", errors.New("context deadline exceeded")).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).Once()

	service := usecase.NewTranslationService(g.transcriber, g.translator, g.synthesizer, g.store, pipeline.NewRunner(logger), logger)
	handler := NewTranslateHandler(service, 50*time.Millisecond, logger)

	e := echo.New()
	e.POST("/translate", handler.Translate)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, formRequest(url.Values{"option": {"text-to-text"}, "text": {"slow"}}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "context deadline exceeded", decodeJSON(t, rec)["error"])
}

// failingExecutor lets the handler see an error after the response started
type failingExecutor struct{}

func (failingExecutor) Execute(_ context.Context, _ usecase.TranslationRequest, consume func(entities.OperationResult) error) error {
	if err := consume(entities.TextResult("partial")); err != nil {
		return err
	}
	return errors.New("cleanup exploded")
}

func TestTranslate_ErrorAfterCommit(t *testing.T) {
	logger := zaptest.NewLogger(t)
	e := echo.New()
	e.POST("/translate", NewTranslateHandler(failingExecutor{}, 0, logger).Translate)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, formRequest(url.Values{"option": {"text-to-text"}, "text": {"x"}}))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"translated_text":"partial"}`, string(body))
}
