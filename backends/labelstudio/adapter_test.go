package labelstudio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
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
			if req.Header.Get("Authorization") != "Token legacy-key" {
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

	r.Get("/api/current-user/whoami", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, lsUser{ID: 3, FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"})
	})
	r.Get("/api/projects/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, lsProjectList{Count: 2, Results: []lsProject{
			{ID: 1, Title: "street scenes", TaskNumber: 5},
			{ID: 2, Title: "aerial", TaskNumber: 0},
		}})
	})
	r.Post("/api/projects/", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body)
		proj := lsProject{ID: 9, Title: body["title"].(string)}
		if lc, ok := body["label_config"].(string); ok {
			proj.LabelConfig = lc
		}
		writeJSON(w, proj)
	})
	r.Get("/api/projects/1/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, lsProject{ID: 1, Title: "street scenes", TaskNumber: 5})
	})
	r.Patch("/api/projects/1/", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body)
		proj := lsProject{ID: 1, Title: "street scenes"}
		if title, ok := body["title"].(string); ok {
			proj.Title = title
		}
		writeJSON(w, proj)
	})
	r.Delete("/api/projects/1/", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/api/projects/1/import", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("return_task_ids") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, lsImportResponse{TaskCount: 1, TaskIDs: []int64{42}})
	})
	r.Post("/api/tasks/42/annotations/", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Result []lsResultItem `json:"result"`
		}
		json.NewDecoder(req.Body).Decode(&body)
		writeJSON(w, lsAnnotation{ID: 500, Task: 42, Result: body.Result})
	})
	r.Get("/api/tasks/42/annotations/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, []lsAnnotation{{
			ID:   500,
			Task: 42,
			Result: []lsResultItem{{
				FromName:       "bbox",
				ToName:         "image",
				Type:           "rectanglelabels",
				OriginalWidth:  640,
				OriginalHeight: 480,
				Value: lsValue{
					X: 10, Y: 10, Width: 25, Height: 50,
					RectangleLabels: []string{"car"},
				},
			}},
		}})
	})
	r.Get("/api/tasks/43/annotations/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, []lsAnnotation{})
	})
	r.Get("/api/projects/1/export", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("exportType") != "JSON" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, []lsExportTask{
			{
				ID: 42,
				Annotations: []lsAnnotation{{
					ID: 500,
					Result: []lsResultItem{{
						Type:           "polygonlabels",
						OriginalWidth:  100,
						OriginalHeight: 100,
						Value: lsValue{
							Points:        [][]float64{{0, 0}, {50, 0}, {50, 50}},
							PolygonLabels: []string{"roof"},
						},
					}},
				}},
			},
			{ID: 43},
		})
	})

	return httptest.NewServer(r)
}

func newTestAdapter(url string) *LabelStudioAdapter {
	return NewLabelStudioAdapter(backends.Config{
		APIKey:     "legacy-key",
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
}

func TestLabelStudioAdapter_CurrentAnnotator(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.CurrentAnnotator(context.Background())
	if err != nil {
		t.Fatalf("CurrentAnnotator() error = %v", err)
	}
	if info.Name != "Grace Hopper" {
		t.Errorf("Name = %s, want Grace Hopper", info.Name)
	}
}

func TestLabelStudioAdapter_CreateProject_WithClasses(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.CreateProject(context.Background(), &annotation.CreateProjectRequest{
		Name: "vehicles",
		Classes: []annotation.LabelClassInfo{
			{Name: "car", Geometry: annotation.GeometryBBox, Color: annotation.RGB{R: 255}},
			{Name: "lane", Geometry: annotation.GeometryPolyline},
		},
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if info.ID != 9 {
		t.Errorf("ID = %d, want 9", info.ID)
	}

	lc, _ := info.Meta["label_config"].(string)
	if !strings.Contains(lc, `<RectangleLabels`) {
		t.Errorf("label config missing rectangle control: %s", lc)
	}
	if !strings.Contains(lc, `value="car"`) {
		t.Errorf("label config missing car label: %s", lc)
	}
}

func TestLabelStudioAdapter_CreateProject_RejectsVideos(t *testing.T) {
	adapter := newTestAdapter("http://unused")

	_, err := adapter.CreateProject(context.Background(), &annotation.CreateProjectRequest{
		Name: "clips",
		Kind: annotation.ProjectKindVideos,
	})
	if !backends.IsNotSupported(err) {
		t.Errorf("expected not-supported, got %v", err)
	}
}

func TestLabelStudioAdapter_Datasets_ProjectIsDataset(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	if _, err := adapter.CreateDataset(context.Background(), &annotation.CreateDatasetRequest{
		ProjectID: 1, Name: "extra",
	}); !backends.IsNotSupported(err) {
		t.Errorf("CreateDataset: expected not-supported, got %v", err)
	}
	if err := adapter.DeleteDataset(context.Background(), 1); !backends.IsNotSupported(err) {
		t.Errorf("DeleteDataset: expected not-supported, got %v", err)
	}

	infos, err := adapter.ListDatasets(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListDatasets() error = %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}
	if infos[0].ID != 1 || infos[0].ProjectID != 1 {
		t.Errorf("implicit dataset ids = (%d, %d), want (1, 1)", infos[0].ID, infos[0].ProjectID)
	}
	if infos[0].Meta["emulated"] != true {
		t.Error("expected implicit dataset to be marked emulated")
	}

	all, err := adapter.ListAllDatasets(context.Background())
	if err != nil {
		t.Fatalf("ListAllDatasets() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}
}

func TestLabelStudioAdapter_UploadImage_Link(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.UploadImage(context.Background(), &annotation.UploadImageRequest{
		DatasetID: 1,
		Source:    annotation.ImageSource{Link: "https://example.com/street.jpg"},
	})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if info.ID != 42 {
		t.Errorf("ID = %d, want task id 42", info.ID)
	}
}

func TestLabelStudioAdapter_UploadAnnotation_PixelToPercent(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.UploadAnnotation(context.Background(), &annotation.UploadAnnotationRequest{
		ImageID: 42,
		Labels: []annotation.LabelInfo{{
			Class:    "car",
			Geometry: annotation.GeometryBBox,
			Points:   []annotation.Point{{X: 64, Y: 48}, {X: 128, Y: 96}},
			Meta:     map[string]any{"original_width": 640, "original_height": 480},
		}},
	})
	if err != nil {
		t.Fatalf("UploadAnnotation() error = %v", err)
	}
	if info.ImageID != 42 {
		t.Errorf("ImageID = %d, want 42", info.ImageID)
	}

	// The fake echoes the result back; converting 64px of 640 gives 10%.
	label := info.Labels[0]
	if label.Points[0].X != 64 || label.Points[0].Y != 48 {
		t.Errorf("roundtripped corner = %+v, want (64, 48)", label.Points[0])
	}
}

func TestLabelStudioAdapter_UploadAnnotation_MissingDimensions(t *testing.T) {
	adapter := newTestAdapter("http://unused")

	_, err := adapter.UploadAnnotation(context.Background(), &annotation.UploadAnnotationRequest{
		ImageID: 42,
		Labels: []annotation.LabelInfo{{
			Class:    "car",
			Geometry: annotation.GeometryBBox,
			Points:   []annotation.Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
		}},
	})
	if err == nil {
		t.Fatal("expected error for labels without original dimensions")
	}
	var berr *backends.BackendError
	if !errors.As(err, &berr) || berr.Code != backends.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLabelStudioAdapter_DownloadAnnotation(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	info, err := adapter.DownloadAnnotation(context.Background(), 42)
	if err != nil {
		t.Fatalf("DownloadAnnotation() error = %v", err)
	}

	label := info.Labels[0]
	if label.Geometry != annotation.GeometryBBox {
		t.Errorf("Geometry = %s, want bbox", label.Geometry)
	}
	// 10% of 640 is 64; 10% of 480 is 48.
	if label.Points[0].X != 64 || label.Points[0].Y != 48 {
		t.Errorf("corner = %+v, want (64, 48)", label.Points[0])
	}
	if label.Points[1].X != 224 || label.Points[1].Y != 288 {
		t.Errorf("corner = %+v, want (224, 288)", label.Points[1])
	}
}

func TestLabelStudioAdapter_DownloadAnnotation_None(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	_, err := adapter.DownloadAnnotation(context.Background(), 43)
	if !backends.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestLabelStudioAdapter_DownloadAnnotations_Export(t *testing.T) {
	server := newFakeServer(t)
	defer server.Close()
	adapter := newTestAdapter(server.URL)

	infos, err := adapter.DownloadAnnotations(context.Background(), &annotation.DownloadAnnotationsRequest{
		ProjectID: 1,
		DatasetID: 1,
	})
	if err != nil {
		t.Fatalf("DownloadAnnotations() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}

	poly := infos[0].Labels[0]
	if poly.Geometry != annotation.GeometryPolygon {
		t.Errorf("Geometry = %s, want polygon", poly.Geometry)
	}
	if poly.Points[1].X != 50 {
		t.Errorf("vertex X = %f, want 50", poly.Points[1].X)
	}

	// Tasks without annotations still appear, with no labels.
	if len(infos[1].Labels) != 0 {
		t.Errorf("len(Labels) = %d, want 0", len(infos[1].Labels))
	}
}

func TestBuildLabelConfig(t *testing.T) {
	config := buildLabelConfig([]annotation.LabelClassInfo{
		{Name: "car", Geometry: annotation.GeometryBBox, Color: annotation.RGB{R: 255}},
		{Name: "roof", Geometry: annotation.GeometryPolygon},
		{Name: "corner", Geometry: annotation.GeometryPoint},
	})

	for _, want := range []string{
		`<Image name="image" value="$image"`,
		`<RectangleLabels name="bbox"`,
		`<PolygonLabels name="polygon"`,
		`<KeyPointLabels name="point"`,
		`value="car"`,
		`background="#ff0000"`,
	} {
		if !strings.Contains(config, want) {
			t.Errorf("label config missing %s:\n%s", want, config)
		}
	}
}
