package roboflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openlabel/openlabel/annotation"
	"github.com/openlabel/openlabel/backends"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Query().Get("api_key") != "test-key" {
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

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, rfRoot{Workspace: "acme"})
	})
	r.Get("/acme", func(w http.ResponseWriter, req *http.Request) {
		var env rfWorkspace
		env.Workspace.Name = "Acme"
		env.Workspace.URL = "acme"
		env.Workspace.Projects = []rfProject{
			{ID: "acme/vehicles", Name: "Vehicles", Type: "object-detection", Images: 12},
			{ID: "acme/signs", Name: "Signs", Type: "object-detection", Images: 4},
		}
		writeJSON(w, env)
	})
	r.Get("/acme/vehicles", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, rfProjectEnvelope{Project: rfProject{
			ID: "acme/vehicles", Name: "Vehicles", Type: "object-detection", Images: 12,
		}})
	})
	r.Get("/acme/vehicles/batches", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, rfBatchList{Batches: []rfBatch{
			{ID: "b1", Name: "uploaded-via-api", Images: 10},
			{ID: "b2", Name: "train", Images: 2},
		}})
	})
	r.Post("/acme/projects", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body)
		writeJSON(w, rfProjectEnvelope{Project: rfProject{
			ID:   "acme/new-project",
			Name: body["name"].(string),
			Type: body["type"].(string),
		}})
	})
	r.Post("/dataset/vehicles/upload", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("batch") == "" || q.Get("name") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if q.Get("image") == "" {
			body, _ := io.ReadAll(req.Body)
			if _, err := base64.StdEncoding.DecodeString(string(body)); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		writeJSON(w, rfUploadResponse{Success: true, ID: "img-abc"})
	})
	r.Post("/dataset/vehicles/annotate/img-abc", func(w http.ResponseWriter, req *http.Request) {
		var payload uploadPayload
		json.NewDecoder(req.Body).Decode(&payload)
		if len(payload.Annotations) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, rfAnnotateResponse{Success: true})
	})
	r.Get("/acme/vehicles/coco", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, cocoExport{
			Images: []cocoImage{
				{ID: 1, FileName: "img-abc.jpg", Width: 640, Height: 480},
			},
			Annotations: []cocoAnnotation{
				{ID: 10, ImageID: 1, CategoryID: 2, BBox: []float64{5, 10, 20, 30}},
				{ID: 11, ImageID: 1, CategoryID: 2, Segmentation: [][]float64{{0, 0, 10, 0, 10, 10, 0, 10}}},
			},
			Categories: []cocoCategory{{ID: 2, Name: "car"}},
		})
	})

	return httptest.NewServer(r)
}

func newTestAdapter(url string) *RoboflowAdapter {
	return NewRoboflowAdapter(backends.Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
}

func TestStableID(t *testing.T) {
	a := stableID("acme/vehicles")
	b := stableID("acme/vehicles")
	c := stableID("acme/signs")

	if a != b {
		t.Errorf("stableID not deterministic: %d != %d", a, b)
	}
	if a == c {
		t.Error("distinct slugs hashed to the same ID")
	}
	if a < 0 || c < 0 {
		t.Error("stableID produced a negative ID")
	}
}

func TestRoboflowAdapter_ResolveWorkspace(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	ws, err := adapter.resolveWorkspace(context.Background())
	if err != nil {
		t.Fatalf("resolveWorkspace() error = %v", err)
	}
	if ws != "acme" {
		t.Errorf("workspace = %s, want acme", ws)
	}

	if !adapter.IsAvailable(context.Background()) {
		t.Error("expected backend to be available")
	}
}

func TestRoboflowAdapter_ListProjects(t *testing.T) {
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
	if infos[0].Name != "Vehicles" {
		t.Errorf("Name = %s, want Vehicles", infos[0].Name)
	}
	if infos[0].ID != stableID("acme/vehicles") {
		t.Errorf("ID = %d, want hash of acme/vehicles", infos[0].ID)
	}
	if infos[0].Meta["slug"] != "acme/vehicles" {
		t.Errorf("slug = %v, want acme/vehicles", infos[0].Meta["slug"])
	}
}

func TestRoboflowAdapter_GetProject_ResolvesSlug(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	// The ID has never been seen in this process; the adapter refreshes the
	// project listing to resolve it.
	info, err := adapter.GetProject(context.Background(), stableID("acme/vehicles"))
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if info.Name != "Vehicles" {
		t.Errorf("Name = %s, want Vehicles", info.Name)
	}
}

func TestRoboflowAdapter_GetProject_Unknown(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	_, err := adapter.GetProject(context.Background(), 12345)
	if !backends.IsNotFound(err) {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestRoboflowAdapter_UnsupportedOperations(t *testing.T) {
	adapter := newTestAdapter("http://unused")

	if _, err := adapter.UpdateProject(context.Background(), &annotation.UpdateProjectRequest{ProjectID: 1}); !backends.IsNotSupported(err) {
		t.Errorf("UpdateProject: expected not-supported, got %v", err)
	}
	if err := adapter.DeleteProject(context.Background(), 1); !backends.IsNotSupported(err) {
		t.Errorf("DeleteProject: expected not-supported, got %v", err)
	}
}

func TestRoboflowAdapter_CreateProject_RejectsVideos(t *testing.T) {
	adapter := newTestAdapter("http://unused")

	_, err := adapter.CreateProject(context.Background(), &annotation.CreateProjectRequest{
		Name: "clips",
		Kind: annotation.ProjectKindVideos,
	})
	if !backends.IsNotSupported(err) {
		t.Errorf("expected not-supported, got %v", err)
	}
}

func TestRoboflowAdapter_Datasets_Emulated(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	projectID := stableID("acme/vehicles")

	// "night" is not among the remote batches, so it only exists as a local
	// registration until the first upload names it.
	ds, err := adapter.CreateDataset(context.Background(), &annotation.CreateDatasetRequest{
		ProjectID: projectID,
		Name:      "night",
	})
	if err != nil {
		t.Fatalf("CreateDataset() error = %v", err)
	}
	if ds.Meta["emulated"] != true {
		t.Error("expected dataset to be marked emulated")
	}

	got, err := adapter.GetDataset(context.Background(), ds.ID)
	if err != nil {
		t.Fatalf("GetDataset() error = %v", err)
	}
	if got.Name != "night" {
		t.Errorf("Name = %s, want night", got.Name)
	}

	infos, err := adapter.ListDatasets(context.Background(), projectID)
	if err != nil {
		t.Fatalf("ListDatasets() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}

	if err := adapter.DeleteDataset(context.Background(), ds.ID); err != nil {
		t.Fatalf("DeleteDataset() error = %v", err)
	}
	if _, err := adapter.GetDataset(context.Background(), ds.ID); !backends.IsNotFound(err) {
		t.Errorf("expected not-found after delete, got %v", err)
	}
}

func TestRoboflowAdapter_UploadImage_Link(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	ds, err := adapter.CreateDataset(context.Background(), &annotation.CreateDatasetRequest{
		ProjectID: stableID("acme/vehicles"),
		Name:      "train",
	})
	if err != nil {
		t.Fatalf("CreateDataset() error = %v", err)
	}

	info, err := adapter.UploadImage(context.Background(), &annotation.UploadImageRequest{
		DatasetID: ds.ID,
		Source:    annotation.ImageSource{Link: "https://example.com/street.jpg"},
	})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if info.Meta["remote_id"] != "img-abc" {
		t.Errorf("remote_id = %v, want img-abc", info.Meta["remote_id"])
	}
	if info.Name != "street.jpg" {
		t.Errorf("Name = %s, want street.jpg", info.Name)
	}
}

func TestRoboflowAdapter_UploadImage_UnknownDataset(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	// The miss triggers a batch relisting before the ID is declared unknown.
	_, err := adapter.UploadImage(context.Background(), &annotation.UploadImageRequest{
		DatasetID: 99,
		Source:    annotation.ImageSource{Link: "https://example.com/a.jpg"},
	})
	if !backends.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestRoboflowAdapter_DatasetResolvesAcrossAdapters(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()

	// The first adapter issues the dataset ID for the "train" batch.
	first := newTestAdapter(server.URL)
	ds, err := first.CreateDataset(context.Background(), &annotation.CreateDatasetRequest{
		ProjectID: stableID("acme/vehicles"),
		Name:      "train",
	})
	if err != nil {
		t.Fatalf("CreateDataset() error = %v", err)
	}

	// A fresh adapter, as a new CLI invocation would build, has never seen the
	// ID; it re-derives the batch from the workspace listings.
	second := newTestAdapter(server.URL)
	info, err := second.UploadImage(context.Background(), &annotation.UploadImageRequest{
		DatasetID: ds.ID,
		Source:    annotation.ImageSource{Link: "https://example.com/street.jpg"},
	})
	if err != nil {
		t.Fatalf("UploadImage() on a fresh adapter error = %v", err)
	}
	if info.Meta["batch"] != "train" {
		t.Errorf("batch = %v, want train", info.Meta["batch"])
	}

	got, err := newTestAdapter(server.URL).GetDataset(context.Background(), ds.ID)
	if err != nil {
		t.Fatalf("GetDataset() on a fresh adapter error = %v", err)
	}
	if got.Name != "train" {
		t.Errorf("Name = %s, want train", got.Name)
	}
}

func TestRoboflowAdapter_UploadAnnotation(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	ds, err := adapter.CreateDataset(context.Background(), &annotation.CreateDatasetRequest{
		ProjectID: stableID("acme/vehicles"),
		Name:      "train",
	})
	if err != nil {
		t.Fatalf("CreateDataset() error = %v", err)
	}
	img, err := adapter.UploadImage(context.Background(), &annotation.UploadImageRequest{
		DatasetID: ds.ID,
		Source:    annotation.ImageSource{Link: "https://example.com/street.jpg"},
	})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}

	info, err := adapter.UploadAnnotation(context.Background(), &annotation.UploadAnnotationRequest{
		ImageID: img.ID,
		Labels: []annotation.LabelInfo{
			{
				Class:    "car",
				Geometry: annotation.GeometryBBox,
				Points:   []annotation.Point{{X: 5, Y: 10}, {X: 25, Y: 40}},
			},
		},
	})
	if err != nil {
		t.Fatalf("UploadAnnotation() error = %v", err)
	}
	if info.ImageID != img.ID {
		t.Errorf("ImageID = %d, want %d", info.ImageID, img.ID)
	}
}

func TestRoboflowAdapter_DownloadAnnotations_COCO(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	infos, err := adapter.DownloadAnnotations(context.Background(), &annotation.DownloadAnnotationsRequest{
		ProjectID: stableID("acme/vehicles"),
		DatasetID: 1,
	})
	if err != nil {
		t.Fatalf("DownloadAnnotations() error = %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}
	// Export entries are keyed by the same slug/remote-ID hash uploads report,
	// not by the export file's internal numbering.
	if infos[0].ImageID != stableID("vehicles/img-abc") {
		t.Errorf("ImageID = %d, want hash of vehicles/img-abc", infos[0].ImageID)
	}
	if len(infos[0].Labels) != 2 {
		t.Fatalf("len(Labels) = %d, want 2", len(infos[0].Labels))
	}

	bbox := infos[0].Labels[0]
	if bbox.Geometry != annotation.GeometryBBox {
		t.Errorf("Geometry = %s, want bbox", bbox.Geometry)
	}
	if bbox.Class != "car" {
		t.Errorf("Class = %s, want car", bbox.Class)
	}
	// COCO bbox is x, y, width, height; the unified form is two corner points.
	if bbox.Points[1].X != 25 || bbox.Points[1].Y != 40 {
		t.Errorf("bbox corner = %+v, want (25, 40)", bbox.Points[1])
	}

	poly := infos[0].Labels[1]
	if poly.Geometry != annotation.GeometryPolygon {
		t.Errorf("Geometry = %s, want polygon", poly.Geometry)
	}
	if len(poly.Points) != 4 {
		t.Errorf("len(Points) = %d, want 4", len(poly.Points))
	}
}

func TestRoboflowAdapter_DownloadMatchesUploadIDs(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	ds, err := adapter.CreateDataset(context.Background(), &annotation.CreateDatasetRequest{
		ProjectID: stableID("acme/vehicles"),
		Name:      "train",
	})
	if err != nil {
		t.Fatalf("CreateDataset() error = %v", err)
	}
	img, err := adapter.UploadImage(context.Background(), &annotation.UploadImageRequest{
		DatasetID: ds.ID,
		Source:    annotation.ImageSource{Link: "https://example.com/street.jpg"},
	})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}

	infos, err := adapter.DownloadAnnotations(context.Background(), &annotation.DownloadAnnotationsRequest{
		ProjectID: stableID("acme/vehicles"),
		DatasetID: ds.ID,
	})
	if err != nil {
		t.Fatalf("DownloadAnnotations() error = %v", err)
	}
	if len(infos) != 1 || infos[0].ImageID != img.ID {
		t.Fatalf("download ImageID = %d, want the upload's %d", infos[0].ImageID, img.ID)
	}

	// A fresh adapter resolves the same image ID through the project exports.
	second := newTestAdapter(server.URL)
	got, err := second.DownloadAnnotation(context.Background(), img.ID)
	if err != nil {
		t.Fatalf("DownloadAnnotation() on a fresh adapter error = %v", err)
	}
	if got.ImageID != img.ID {
		t.Errorf("ImageID = %d, want %d", got.ImageID, img.ID)
	}
	if len(got.Labels) != 2 {
		t.Errorf("len(Labels) = %d, want 2", len(got.Labels))
	}
}

func TestRoboflowAdapter_AuthError(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()

	adapter := NewRoboflowAdapter(backends.Config{
		APIKey:     "wrong-key",
		BaseURL:    server.URL,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})

	_, err := adapter.ListProjects(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var berr *backends.BackendError
	if !errors.As(err, &berr) || berr.Code != backends.CodeAuth {
		t.Errorf("expected auth error, got %v", err)
	}
}
