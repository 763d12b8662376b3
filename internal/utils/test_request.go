package utils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBearerToken подставляется в запрос, если тест не передал своих заголовков.
const TestBearerToken = "token"

// TestResponse содержит статус, заголовки и прочитанное тело ответа тестового сервера.
type TestResponse struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// TestRequest выполняет запрос к тестовому серверу и закрывает тело ответа.
// При headers == nil запрос уходит как JSON с токеном TestBearerToken.
func TestRequest(t *testing.T, ts *httptest.Server, method, path string, headers map[string]string, body io.Reader) TestResponse {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)

	if headers == nil {
		headers = map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + TestBearerToken,
		}
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return TestResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: string(respBody)}
}
