package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// client is one browser: it keeps its session cookie and may carry a bearer
// token.
type client struct {
	t       *testing.T
	http    *http.Client
	baseURL string
	token   string
}

func newClient(t *testing.T, baseURL string) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &client{
		t:       t,
		http:    &http.Client{Jar: jar, Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

func (c *client) as(userId int, role string) *client {
	claims := jwt.MapClaims{
		"sub":  strconv.Itoa(userId),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(c.t, err)

	c.token = token
	return c
}

func (c *client) do(method, path string, body any) *http.Response {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(c.t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	require.NoError(c.t, err)

	return res
}

// doJSON sends the request, checks the status and decodes the body into dst
// when dst is not nil.
func (c *client) doJSON(method, path string, body any, wantStatus int, dst any) {
	c.t.Helper()

	res := c.do(method, path, body)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(c.t, err)
	require.Equal(c.t, wantStatus, res.StatusCode, "body: %s", raw)

	if dst != nil {
		require.NoError(c.t, json.Unmarshal(raw, dst))
	}
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indetermistic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		return k == "timestamp" || k == "requestId" || k == "expiresAt"
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}
