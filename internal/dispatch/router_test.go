package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

func testTable(imageRoutes domain.RouteConfig) *domain.TemplateTable {
	return domain.NewTemplateTable(map[domain.Template]domain.TemplateConfig{
		domain.TemplateImage: {
			Completion: domain.CompleteIntoRefinement,
			Route:      imageRoutes,
		},
	})
}

func testRouter(table *domain.TemplateTable) *Router {
	return NewRouter(table, &http.Client{}, zerolog.New(io.Discard))
}

func TestDispatchImageRouteOrder(t *testing.T) {
	var hits []string
	mux := http.NewServeMux()
	for _, path := range []string{"/edit", "/with-images", "/prompt"} {
		path := path
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			hits = append(hits, path)
			w.Write([]byte(`{"imageUrl":"https://cdn/out.jpg"}`))
		})
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	router := testRouter(testTable(domain.RouteConfig{
		Endpoint:           srv.URL + "/prompt",
		EditEndpoint:       srv.URL + "/edit",
		WithImagesEndpoint: srv.URL + "/with-images",
		Transport:          domain.TransportGetQuery,
	}))

	cases := []struct {
		payload domain.GenerationPayload
		want    string
	}{
		// Editing wins even when reference images are present.
		{domain.GenerationPayload{"isEditing": true, "hasReferenceImages": true}, "/edit"},
		{domain.GenerationPayload{"isEditing": false, "hasReferenceImages": true}, "/with-images"},
		{domain.GenerationPayload{"isEditing": false, "hasReferenceImages": false}, "/prompt"},
		{domain.GenerationPayload{}, "/prompt"},
	}
	for i, tc := range cases {
		hits = nil
		if _, err := router.Dispatch(context.Background(), domain.TemplateImage, tc.payload); err != nil {
			t.Fatalf("case %d: Dispatch returned error: %v", i, err)
		}
		if len(hits) != 1 || hits[0] != tc.want {
			t.Fatalf("case %d: hit %v, want %s", i, hits, tc.want)
		}
	}
}

func TestDispatchQueryEncoding(t *testing.T) {
	var captured *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		w.Write([]byte(`{"imageUrl":" https://cdn/x.jpg \n"}`))
	}))
	defer srv.Close()

	router := testRouter(testTable(domain.RouteConfig{
		Endpoint:  srv.URL,
		Transport: domain.TransportGetQuery,
	}))

	payload := domain.GenerationPayload{
		"product":            "Bilder",
		"prompt":             "a red sports car",
		"hasReferenceImages": false,
		"aspectRatio":        "16:9",
		"resolution":         "2K",
		"outputFormat":       "jpg",
		"imageUrls":          []any{"https://cdn/a.png", "https://cdn/b.png"},
		"count":              float64(2),
	}
	res, err := router.Dispatch(context.Background(), domain.TemplateImage, payload)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if captured.Method != http.MethodGet {
		t.Fatalf("method = %s, want GET", captured.Method)
	}
	q := captured.URL.Query()
	if q.Get("prompt") != "a red sports car" {
		t.Fatalf("prompt = %q", q.Get("prompt"))
	}
	if q.Get("hasReferenceImages") != "false" {
		t.Fatalf("hasReferenceImages = %q", q.Get("hasReferenceImages"))
	}
	if q.Get("aspectRatio") != "16:9" {
		t.Fatalf("aspectRatio = %q", q.Get("aspectRatio"))
	}
	if q.Get("count") != "2" {
		t.Fatalf("count = %q", q.Get("count"))
	}
	var urls []string
	if err := json.Unmarshal([]byte(q.Get("imageUrls")), &urls); err != nil || len(urls) != 2 {
		t.Fatalf("imageUrls = %q", q.Get("imageUrls"))
	}
	// Artifact URL is normalized: whitespace trimmed.
	if res.ArtifactURL != "https://cdn/x.jpg" {
		t.Fatalf("ArtifactURL = %q, want trimmed url", res.ArtifactURL)
	}
}

func TestDispatchPostJSON(t *testing.T) {
	var body map[string]any
	var contentType, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	table := domain.NewTemplateTable(map[domain.Template]domain.TemplateConfig{
		domain.TemplateSocialPackage: {
			Route: domain.RouteConfig{Endpoint: srv.URL, Transport: domain.TransportPostJSON},
		},
	})
	res, err := testRouter(table).Dispatch(context.Background(), domain.TemplateSocialPackage,
		domain.GenerationPayload{"product": "SocialPaket", "platforms": []any{"instagram"}})
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if method != http.MethodPost || contentType != "application/json" {
		t.Fatalf("method = %s content-type = %s", method, contentType)
	}
	if body["product"] != "SocialPaket" {
		t.Fatalf("body = %v", body)
	}
	if res.ArtifactURL != "" {
		t.Fatalf("ArtifactURL = %q, want empty for fire-and-forget", res.ArtifactURL)
	}
}

func TestDispatchNormalizesArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"videoUrl":"https://cdn/v.mp4"}]`))
	}))
	defer srv.Close()

	router := testRouter(testTable(domain.RouteConfig{Endpoint: srv.URL, Transport: domain.TransportGetQuery}))
	res, err := router.Dispatch(context.Background(), domain.TemplateImage, domain.GenerationPayload{})
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if res.ArtifactURL != "https://cdn/v.mp4" {
		t.Fatalf("ArtifactURL = %q", res.ArtifactURL)
	}
}

func TestDispatchMissingConfiguration(t *testing.T) {
	router := testRouter(testTable(domain.RouteConfig{Transport: domain.TransportGetQuery}))
	_, err := router.Dispatch(context.Background(), domain.TemplateImage, domain.GenerationPayload{})
	assertFailureKind(t, err, domain.FailureDispatchConfig)

	// Unknown template is a configuration error too.
	_, err = router.Dispatch(context.Background(), domain.TemplateProductVideo, domain.GenerationPayload{})
	assertFailureKind(t, err, domain.FailureDispatchConfig)
}

func TestDispatchEndpointNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	router := testRouter(testTable(domain.RouteConfig{Endpoint: srv.URL, Transport: domain.TransportGetQuery}))
	_, err := router.Dispatch(context.Background(), domain.TemplateImage, domain.GenerationPayload{})
	assertFailureKind(t, err, domain.FailureEndpointNotFound)
}

func TestDispatchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	router := testRouter(testTable(domain.RouteConfig{
		Endpoint:  srv.URL,
		Transport: domain.TransportGetQuery,
		Timeout:   20 * time.Millisecond,
	}))
	_, err := router.Dispatch(context.Background(), domain.TemplateImage, domain.GenerationPayload{})
	assertFailureKind(t, err, domain.FailureDispatchTimeout)
}

func TestDispatchUnreachable(t *testing.T) {
	router := testRouter(testTable(domain.RouteConfig{
		Endpoint:  "http://127.0.0.1:1",
		Transport: domain.TransportGetQuery,
	}))
	_, err := router.Dispatch(context.Background(), domain.TemplateImage, domain.GenerationPayload{})
	assertFailureKind(t, err, domain.FailureUnreachable)
}

func assertFailureKind(t *testing.T, err error, want domain.FailureKind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var failure *domain.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error %v is not a Failure", err)
	}
	if failure.Kind != want {
		t.Fatalf("kind = %v, want %v", failure.Kind, want)
	}
}
