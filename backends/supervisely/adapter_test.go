package supervisely

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openlabel/openlabel/annotation"
	"github.com/openlabel/openlabel/backends"
)

// newFakeServer builds a fake Supervisely API covering the RPC methods the
// adapter uses. Every handler checks the x-api-key header.
func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("x-api-key") != "test-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	r.Post("/users.me", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, slyUser{ID: 7, Login: "tester", Email: "tester@example.com"})
	})
	r.Post("/teams.list", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, listEnvelope[slyTeam]{Entities: []slyTeam{{ID: 1, Name: "team"}}, Total: 1})
	})
	r.Post("/workspaces.list", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, listEnvelope[slyWorkspace]{Entities: []slyWorkspace{{ID: 10, TeamID: 1, Name: "main"}}, Total: 1})
	})
	r.Post("/projects.add", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body)
		if body["workspaceId"] != float64(10) {
			t.Errorf("projects.add workspaceId = %v, want 10", body["workspaceId"])
		}
		writeJSON(w, slyProject{
			ID:          100,
			Name:        body["name"].(string),
			Type:        body["type"].(string),
			WorkspaceID: 10,
			CreatedAt:   "2024-03-01T10:00:00Z",
			UpdatedAt:   "2024-03-01T10:00:00Z",
		})
	})
	r.Post("/projects.list", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, listEnvelope[slyProject]{Entities: []slyProject{
			{ID: 100, Name: "first", Type: "images", WorkspaceID: 10},
			{ID: 101, Name: "second", Type: "videos", WorkspaceID: 10},
		}, Total: 2})
	})
	r.Post("/projects.info", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body)
		if body["id"] == float64(404) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, slyProject{ID: int64(body["id"].(float64)), Name: "first", Type: "images", WorkspaceID: 10})
	})
	r.Post("/projects.meta.update", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ID   int64          `json:"id"`
			Meta slyProjectMeta `json:"meta"`
		}
		json.NewDecoder(req.Body).Decode(&body)
		if len(body.Meta.Classes) == 0 {
			t.Error("projects.meta.update got no classes")
		}
		for _, c := range body.Meta.Classes {
			if c.Shape == "" {
				t.Errorf("class %q has no shape", c.Title)
			}
		}
		writeJSON(w, map[string]any{"success": true})
	})
	r.Post("/datasets.add", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body)
		writeJSON(w, slyDataset{
			ID:        200,
			ProjectID: int64(body["projectId"].(float64)),
			Name:      body["name"].(string),
		})
	})
	r.Post("/datasets.list", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, listEnvelope[slyDataset]{Entities: []slyDataset{
			{ID: 200, ProjectID: 100, Name: "first", ImagesCount: 3},
			{ID: 201, ProjectID: 100, Name: "second"},
		}, Total: 2})
	})
	r.Post("/images.bulk.add", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			DatasetID int64            `json:"datasetId"`
			Images    []map[string]any `json:"images"`
		}
		json.NewDecoder(req.Body).Decode(&body)
		entities := make([]slyImage, 0, len(body.Images))
		for i, img := range body.Images {
			entities = append(entities, slyImage{
				ID:        int64(300 + i),
				DatasetID: body.DatasetID,
				Name:      img["name"].(string),
				Link:      img["link"].(string),
			})
		}
		writeJSON(w, listEnvelope[slyImage]{Entities: entities, Total: len(entities)})
	})
	r.Post("/images.upload", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		files := req.MultipartForm.File["files"]
		if len(files) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, listEnvelope[slyImage]{Entities: []slyImage{
			{ID: 310, Name: files[0].Filename},
		}, Total: 1})
	})
	r.Post("/annotations.bulk.add", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Annotations []slyAnnotation `json:"annotations"`
		}
		json.NewDecoder(req.Body).Decode(&body)
		for i := range body.Annotations {
			body.Annotations[i].ID = int64(400 + i)
		}
		writeJSON(w, listEnvelope[slyAnnotation]{Entities: body.Annotations, Total: len(body.Annotations)})
	})
	r.Post("/annotations.list", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, listEnvelope[slyAnnotation]{Entities: []slyAnnotation{
			{
				ID:      400,
				ImageID: 300,
				Objects: []slyObject{{
					ClassTitle:   "car",
					GeometryType: "rectangle",
					Points:       slyPoints{Exterior: [][2]float64{{0, 0}, {10, 20}}},
				}},
			},
		}, Total: 1})
	})

	return httptest.NewServer(r)
}

func newTestAdapter(url string) *SuperviselyAdapter {
	return NewSuperviselyAdapter(backends.Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
}

func TestNewSuperviselyAdapter_Defaults(t *testing.T) {
	adapter := NewSuperviselyAdapter(backends.Config{APIKey: "k"})

	if adapter.Name() != "supervisely" {
		t.Errorf("Name() = %s, want supervisely", adapter.Name())
	}
	if adapter.config.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", adapter.config.BaseURL, defaultBaseURL)
	}
	caps := adapter.Capabilities()
	if !caps.NativeDatasets || !caps.LinkUpload {
		t.Errorf("Capabilities = %+v, want native datasets and link upload", caps)
	}
}

func TestSuperviselyAdapter_WorkspaceRetriesAfterFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch req.URL.Path {
		case "/teams.list":
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(listEnvelope[slyTeam]{Entities: []slyTeam{{ID: 1, Name: "team"}}, Total: 1})
		case "/workspaces.list":
			json.NewEncoder(w).Encode(listEnvelope[slyWorkspace]{Entities: []slyWorkspace{{ID: 10, TeamID: 1, Name: "main"}}, Total: 1})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	adapter := NewSuperviselyAdapter(backends.Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	if _, err := adapter.workspace(context.Background()); err == nil {
		t.Fatal("expected the first resolution to fail")
	}

	// The failure is not latched; the next call resolves normally.
	id, err := adapter.workspace(context.Background())
	if err != nil {
		t.Fatalf("workspace() error = %v", err)
	}
	if id != 10 {
		t.Errorf("workspace ID = %d, want 10", id)
	}
}

func TestSuperviselyAdapter_CustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("x-api-key") != "test-key" || req.Header.Get("X-Org") != "acme" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(slyUser{ID: 7, Login: "tester"})
	}))
	defer server.Close()

	adapter := NewSuperviselyAdapter(backends.Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Headers:    map[string]string{"X-Org": "acme"},
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
	if _, err := adapter.CurrentAnnotator(context.Background()); err != nil {
		t.Fatalf("CurrentAnnotator() error = %v", err)
	}
}

func TestSuperviselyAdapter_CurrentAnnotator(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.CurrentAnnotator(context.Background())
	if err != nil {
		t.Fatalf("CurrentAnnotator() error = %v", err)
	}
	if info.ID != 7 {
		t.Errorf("ID = %d, want 7", info.ID)
	}
	// The login fills in when the account has no display name.
	if info.Name != "tester" {
		t.Errorf("Name = %s, want tester", info.Name)
	}
}

func TestSuperviselyAdapter_IsAvailable(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()

	if !newTestAdapter(server.URL).IsAvailable(context.Background()) {
		t.Error("expected backend to be available")
	}

	bad := NewSuperviselyAdapter(backends.Config{
		APIKey:     "wrong-key",
		BaseURL:    server.URL,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
	if bad.IsAvailable(context.Background()) {
		t.Error("expected backend to be unavailable with a bad key")
	}
}

func TestSuperviselyAdapter_CreateProject(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.CreateProject(context.Background(), &annotation.CreateProjectRequest{
		Name: "vehicles",
		Kind: annotation.ProjectKindImages,
		Classes: []annotation.LabelClassInfo{
			{Name: "car", Geometry: annotation.GeometryBBox, Color: annotation.RGB{R: 255}},
		},
		Images: []annotation.UploadImageRequest{
			{Source: annotation.ImageSource{Link: "https://example.com/a.jpg"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if info.ID != 100 {
		t.Errorf("ID = %d, want 100", info.ID)
	}
	if info.Name != "vehicles" {
		t.Errorf("Name = %s, want vehicles", info.Name)
	}
	if info.Kind != annotation.ProjectKindImages {
		t.Errorf("Kind = %s, want images", info.Kind)
	}
	if info.Meta["default_dataset_id"] != int64(200) {
		t.Errorf("default_dataset_id = %v, want 200", info.Meta["default_dataset_id"])
	}
}

func TestSuperviselyAdapter_ListProjects(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	infos, err := adapter.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[1].Kind != annotation.ProjectKindVideos {
		t.Errorf("Kind = %s, want videos", infos[1].Kind)
	}
}

func TestSuperviselyAdapter_GetProject_NotFound(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	_, err := adapter.GetProject(context.Background(), 404)
	if err == nil {
		t.Fatal("expected error")
	}
	if !backends.IsNotFound(err) {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestSuperviselyAdapter_ListDatasets(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	infos, err := adapter.ListDatasets(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListDatasets() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[0].Meta["images_count"] != 3 {
		t.Errorf("images_count = %v, want 3", infos[0].Meta["images_count"])
	}
}

func TestSuperviselyAdapter_UploadImage_Link(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.UploadImage(context.Background(), &annotation.UploadImageRequest{
		DatasetID: 200,
		Source:    annotation.ImageSource{Link: "https://example.com/street.jpg"},
	})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if info.Name != "street.jpg" {
		t.Errorf("Name = %s, want street.jpg", info.Name)
	}
	if info.DatasetID != 200 {
		t.Errorf("DatasetID = %d, want 200", info.DatasetID)
	}
}

func TestSuperviselyAdapter_UploadImage_Bytes(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.UploadImage(context.Background(), &annotation.UploadImageRequest{
		DatasetID: 200,
		Name:      "raw.png",
		Source:    annotation.ImageSource{Data: []byte{0x89, 0x50, 0x4e, 0x47}},
	})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if info.Name != "raw.png" {
		t.Errorf("Name = %s, want raw.png", info.Name)
	}
}

func TestSuperviselyAdapter_UploadImage_NoSource(t *testing.T) {
	adapter := newTestAdapter("http://unused")

	_, err := adapter.UploadImage(context.Background(), &annotation.UploadImageRequest{DatasetID: 200})
	if err == nil {
		t.Fatal("expected error")
	}
	var berr *backends.BackendError
	if !errors.As(err, &berr) || berr.Code != backends.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSuperviselyAdapter_UploadAnnotation(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.UploadAnnotation(context.Background(), &annotation.UploadAnnotationRequest{
		ImageID: 300,
		Labels: []annotation.LabelInfo{
			{
				Class:    "car",
				Geometry: annotation.GeometryBBox,
				Points:   []annotation.Point{{X: 0, Y: 0}, {X: 10, Y: 20}},
			},
		},
	})
	if err != nil {
		t.Fatalf("UploadAnnotation() error = %v", err)
	}
	if info.ImageID != 300 {
		t.Errorf("ImageID = %d, want 300", info.ImageID)
	}
	if len(info.Labels) != 1 {
		t.Fatalf("len(Labels) = %d, want 1", len(info.Labels))
	}
}

func TestSuperviselyAdapter_DownloadAnnotations(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	infos, err := adapter.DownloadAnnotations(context.Background(), &annotation.DownloadAnnotationsRequest{
		ProjectID: 100,
		DatasetID: 200,
	})
	if err != nil {
		t.Fatalf("DownloadAnnotations() error = %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}

	label := infos[0].Labels[0]
	if label.Geometry != annotation.GeometryBBox {
		t.Errorf("Geometry = %s, want bbox", label.Geometry)
	}
	if label.Class != "car" {
		t.Errorf("Class = %s, want car", label.Class)
	}
	if len(label.Points) != 2 {
		t.Errorf("len(Points) = %d, want 2", len(label.Points))
	}
}

func TestSuperviselyAdapter_RateLimitRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	_, err := adapter.GetProject(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !backends.IsRetryable(err) {
		t.Errorf("expected a retryable error, got %v", err)
	}
}
