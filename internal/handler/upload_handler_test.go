package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/datasprint/datasprint-api/internal/handler"
	"github.com/datasprint/datasprint-api/internal/service"
)

type mockUploadService struct {
	result service.UploadResult
	err    error
	name   string
	size   int64
	body   []byte
}

func (m *mockUploadService) Forward(_ context.Context, name string, size int64, reader io.Reader) (service.UploadResult, error) {
	m.name = name
	m.size = size
	if reader != nil {
		body, err := io.ReadAll(reader)
		if err != nil {
			return service.UploadResult{}, err
		}
		m.body = body
	}
	if m.err != nil {
		return service.UploadResult{}, m.err
	}
	return m.result, nil
}

type relayResponse struct {
	Success bool   `json:"success"`
	FileID  string `json:"fileId"`
	FileURL string `json:"fileUrl"`
	Error   string `json:"error"`
}

func newUploadApp(svc service.UploadService) *fiber.App {
	app := fiber.New()
	handler.NewUploadHandler(svc, zerolog.New(io.Discard)).Register(app)
	return app
}

func multipartBody(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestUploadRelaySuccessShape(t *testing.T) {
	svc := &mockUploadService{result: service.UploadResult{FileID: "obj-1", FileURL: "https://files.example.com/obj-1"}}
	app := newUploadApp(svc)

	body, contentType := multipartBody(t, "solution.csv", "id,label\n1,1\n")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response relayResponse
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "obj-1", response.FileID)
	require.Equal(t, "https://files.example.com/obj-1", response.FileURL)
	require.Empty(t, response.Error)

	require.Equal(t, "solution.csv", svc.name)
	require.Equal(t, "id,label\n1,1\n", string(svc.body))
}

func TestUploadRelayMissingFile(t *testing.T) {
	app := newUploadApp(&mockUploadService{})

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var response relayResponse
	decodeResponse(t, resp, &response)
	require.False(t, response.Success)
	require.NotEmpty(t, response.Error)
}

func TestUploadRelayMethodNotAllowed(t *testing.T) {
	app := newUploadApp(&mockUploadService{})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/upload", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode, method)
	}
}

func TestUploadRelayServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "too_large", err: service.ErrUploadTooLarge, statusCode: fiber.StatusRequestEntityTooLarge},
		{name: "type", err: service.ErrUploadTypeNotAllowed, statusCode: fiber.StatusBadRequest},
		{name: "generic", err: errors.New("provider down"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newUploadApp(&mockUploadService{err: tc.err})

			body, contentType := multipartBody(t, "solution.csv", "data")
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var response relayResponse
			decodeResponse(t, resp, &response)
			require.False(t, response.Success)
			require.NotEmpty(t, response.Error)
		})
	}
}
