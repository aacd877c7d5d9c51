package test

import (
	"encoding/json"
	"instavision/internal/global/response"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Body 与 response.ResponseBody 相同，Data 保留原始 JSON
type Body struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Stack   string          `json:"stack"`
}

func Decode(t *testing.T, w *httptest.ResponseRecorder) Body {
	t.Helper()
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

// DecodeData 解析 data 字段
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, out any) Body {
	t.Helper()
	body := Decode(t, w)
	require.NoError(t, json.Unmarshal(body.Data, out), string(body.Data))
	return body
}

func ErrorEqual(t *testing.T, expected *response.Error, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, expected.Status, w.Code, w.Body.String())
	body := Decode(t, w)
	require.False(t, body.Success)
	require.Equal(t, expected.Message, body.Message)
}

func NoError(t *testing.T, status int, w *httptest.ResponseRecorder) Body {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := Decode(t, w)
	require.True(t, body.Success)
	return body
}
