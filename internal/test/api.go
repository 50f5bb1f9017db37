package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Format of Request helper ExecuteAPITest() handles
type RequestAPITest struct {
	Method       string            // Method of API request - [GET, POST, PUT, DELETE . . .]
	Path         string            // API Path
	Body         interface{}       // Request Body, marshalled to JSON unless it already is []byte
	WantResponse []int             // Expected Response according to request
	Headers      map[string]string // Request headers
}

// Helper to execute API tests in Cardpack, returns the recorder for further assertions.
func ExecuteAPITest(t *testing.T, router *gin.Engine, request RequestAPITest) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	switch b := request.Body.(type) {
	case nil:
	case []byte:
		body = b
	default:
		var mrserr error
		body, mrserr = json.Marshal(b)
		require.NoError(t, mrserr)
	}
	// Setup the test request
	req, reqerr := http.NewRequest(request.Method, request.Path, bytes.NewReader(body))
	require.NoError(t, reqerr)
	if request.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, val := range request.Headers {
		req.Header.Set(key, val)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	// Assert the response
	assert.Contains(t, request.WantResponse, w.Code, w.Body.String())
	return w
}

// Bearer builds the Authorization header map for a token.
func Bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
