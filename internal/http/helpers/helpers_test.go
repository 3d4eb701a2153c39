package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httperrors "github.com/dropDatabas3/minijohn/internal/http/errors"
)

func TestReadJSON(t *testing.T) {
	t.Parallel()

	var dst struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := ReadJSON(httptest.NewRecorder(), r, &dst); err != nil || dst.Name != "x" {
		t.Fatalf("got %+v err=%v", dst, err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := ReadJSON(httptest.NewRecorder(), r, &dst); err != nil {
		t.Fatalf("empty body should be accepted: %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	if err := ReadJSON(httptest.NewRecorder(), r, &dst); err == nil || !isApp(err, httperrors.ErrInvalidJSON) {
		t.Fatalf("expected invalid_json, got %v", err)
	}

	big := `{"name":"` + strings.Repeat("a", MaxBodySize) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	if err := ReadJSON(httptest.NewRecorder(), r, &dst); !isApp(err, httperrors.ErrBodyTooLarge) {
		t.Fatalf("expected body_too_large, got %v", err)
	}
}

func isApp(err error, target *httperrors.AppError) bool {
	app := httperrors.FromError(err)
	return app.Code == target.Code
}

func TestNotModified(t *testing.T) {
	t.Parallel()
	tag := ETag([]byte("jwks"))
	if !strings.HasPrefix(tag, `W/"`) {
		t.Fatalf("weak etag expected: %s", tag)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	if NotModified(w, r, tag) {
		t.Fatal("no If-None-Match must not be 304")
	}
	if w.Header().Get("ETag") != tag {
		t.Fatal("ETag header not set")
	}

	r.Header.Set("If-None-Match", `W/"other", `+tag)
	if !NotModified(httptest.NewRecorder(), r, tag) {
		t.Fatal("matching If-None-Match must be 304")
	}
}
