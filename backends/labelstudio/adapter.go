package labelstudio

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"strconv"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/opus-domini/fast-shot/constant/header"

	"github.com/openlabel/openlabel/annotation"
	"github.com/openlabel/openlabel/backends"
)

const (
	defaultBaseURL = "http://localhost:8080"

	backendName = "labelstudio"
)

// LabelStudioAdapter implements the Backend interface for Label Studio.
//
// Label Studio is usually self-hosted, so BaseURL is effectively required.
// It has no dataset object: every project carries exactly one implicit
// dataset (the project itself), and images are tasks. The unified image ID is
// the task ID.
type LabelStudioAdapter struct {
	config backends.Config
	client fastshot.ClientHttpMethods
	tokens *tokenSource
}

// NewLabelStudioAdapter creates a new Label Studio adapter
func NewLabelStudioAdapter(config backends.Config) *LabelStudioAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = backends.DefaultConfig().Timeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = backends.DefaultConfig().MaxRetries
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = backends.DefaultConfig().RetryDelay
	}

	c := fastshot.NewClient(config.BaseURL)
	for k, v := range config.Headers {
		c.Header().Add(header.Type(k), v)
	}
	client := c.Config().SetTimeout(config.Timeout).
		Config().SetFollowRedirects(true).
		Build()

	return &LabelStudioAdapter{
		config: config,
		client: client,
		tokens: newTokenSource(client, config.APIKey),
	}
}

// Name returns the backend name
func (a *LabelStudioAdapter) Name() string {
	return backendName
}

// Capabilities describes Label Studio feature support
func (a *LabelStudioAdapter) Capabilities() backends.Capabilities {
	return backends.Capabilities{
		NativeDatasets: false,
		VideoProjects:  false,
		VolumeProjects: false,
		LinkUpload:     true,
	}
}

// IsAvailable checks credentials against the current-user endpoint
func (a *LabelStudioAdapter) IsAvailable(ctx context.Context) bool {
	_, err := a.CurrentAnnotator(ctx)
	return err == nil
}

// CurrentAnnotator returns the authenticated account
func (a *LabelStudioAdapter) CurrentAnnotator(ctx context.Context) (*annotation.AnnotatorInfo, error) {
	var user lsUser
	if err := a.do(ctx, "GET", "/api/current-user/whoami", nil, nil, &user); err != nil {
		return nil, err
	}

	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if name == "" || name == " " {
		name = user.Username
	}
	return &annotation.AnnotatorInfo{
		ID:    user.ID,
		Name:  name,
		Email: user.Email,
	}, nil
}

// CreateProject creates a project with a label config rendered from the
// request's classes, then imports any initial images as tasks.
func (a *LabelStudioAdapter) CreateProject(ctx context.Context, req *annotation.CreateProjectRequest) (*annotation.ProjectInfo, error) {
	if req.Kind != "" && req.Kind != annotation.ProjectKindImages {
		return nil, backends.NewBackendError(backendName, backends.CodeNotSupported,
			fmt.Sprintf("label studio does not support %s projects", req.Kind), 0, false, nil)
	}

	body := map[string]any{
		"title":       req.Name,
		"description": req.Description,
	}
	if len(req.Classes) > 0 {
		body["label_config"] = buildLabelConfig(req.Classes)
	}

	var proj lsProject
	if err := a.do(ctx, "POST", "/api/projects/", nil, body, &proj); err != nil {
		return nil, err
	}

	for i := range req.Images {
		img := req.Images[i]
		img.DatasetID = proj.ID
		if _, err := a.UploadImage(ctx, &img); err != nil {
			return nil, err
		}
	}

	info := proj.toInfo()
	info.Meta["default_dataset_id"] = proj.ID
	if len(req.Classes) > 0 {
		info.Meta["classes"] = req.Classes
	}
	return info, nil
}

// GetProject retrieves a project by ID
func (a *LabelStudioAdapter) GetProject(ctx context.Context, projectID int64) (*annotation.ProjectInfo, error) {
	var proj lsProject
	if err := a.do(ctx, "GET", a.projectPath(projectID), nil, nil, &proj); err != nil {
		return nil, err
	}
	return proj.toInfo(), nil
}

// UpdateProject patches project metadata and rebuilds the label config when
// classes are given.
func (a *LabelStudioAdapter) UpdateProject(ctx context.Context, req *annotation.UpdateProjectRequest) (*annotation.ProjectInfo, error) {
	body := map[string]any{}
	if req.Name != "" {
		body["title"] = req.Name
	}
	if req.Description != "" {
		body["description"] = req.Description
	}
	if len(req.Classes) > 0 {
		body["label_config"] = buildLabelConfig(req.Classes)
	}

	var proj lsProject
	if err := a.do(ctx, "PATCH", a.projectPath(req.ProjectID), nil, body, &proj); err != nil {
		return nil, err
	}
	return proj.toInfo(), nil
}

// ListProjects lists all projects visible to the account
func (a *LabelStudioAdapter) ListProjects(ctx context.Context) ([]annotation.ProjectInfo, error) {
	var list lsProjectList
	if err := a.do(ctx, "GET", "/api/projects/", nil, nil, &list); err != nil {
		return nil, err
	}

	infos := make([]annotation.ProjectInfo, 0, len(list.Results))
	for _, p := range list.Results {
		infos = append(infos, *p.toInfo())
	}
	return infos, nil
}

// DeleteProject removes a project and all its tasks
func (a *LabelStudioAdapter) DeleteProject(ctx context.Context, projectID int64) error {
	return a.do(ctx, "DELETE", a.projectPath(projectID), nil, nil, nil)
}

// CreateDataset is not supported: every Label Studio project has exactly one
// implicit dataset.
func (a *LabelStudioAdapter) CreateDataset(_ context.Context, _ *annotation.CreateDatasetRequest) (*annotation.DatasetInfo, error) {
	return nil, backends.NewBackendError(backendName, backends.CodeNotSupported,
		"label studio projects have a single implicit dataset", 0, false, nil)
}

// GetDataset returns the project's implicit dataset
func (a *LabelStudioAdapter) GetDataset(ctx context.Context, datasetID int64) (*annotation.DatasetInfo, error) {
	var proj lsProject
	if err := a.do(ctx, "GET", a.projectPath(datasetID), nil, nil, &proj); err != nil {
		return nil, err
	}
	return proj.toDatasetInfo(), nil
}

// UpdateDataset renames the implicit dataset by renaming the project
func (a *LabelStudioAdapter) UpdateDataset(ctx context.Context, req *annotation.UpdateDatasetRequest) (*annotation.DatasetInfo, error) {
	body := map[string]any{}
	if req.Name != "" {
		body["title"] = req.Name
	}
	if req.Description != "" {
		body["description"] = req.Description
	}

	var proj lsProject
	if err := a.do(ctx, "PATCH", a.projectPath(req.DatasetID), nil, body, &proj); err != nil {
		return nil, err
	}
	return proj.toDatasetInfo(), nil
}

// ListDatasets returns the project's single implicit dataset
func (a *LabelStudioAdapter) ListDatasets(ctx context.Context, projectID int64) ([]annotation.DatasetInfo, error) {
	ds, err := a.GetDataset(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return []annotation.DatasetInfo{*ds}, nil
}

// ListAllDatasets returns the implicit dataset of every project
func (a *LabelStudioAdapter) ListAllDatasets(ctx context.Context) ([]annotation.DatasetInfo, error) {
	var list lsProjectList
	if err := a.do(ctx, "GET", "/api/projects/", nil, nil, &list); err != nil {
		return nil, err
	}

	datasets := make([]annotation.DatasetInfo, 0, len(list.Results))
	for _, p := range list.Results {
		datasets = append(datasets, *p.toDatasetInfo())
	}
	return datasets, nil
}

// DeleteDataset is not supported: deleting the implicit dataset would delete
// the project, which callers must do explicitly.
func (a *LabelStudioAdapter) DeleteDataset(_ context.Context, _ int64) error {
	return backends.NewBackendError(backendName, backends.CodeNotSupported,
		"deleting the implicit dataset would delete the project; use DeleteProject", 0, false, nil)
}

// UploadImage imports one image as a task. The dataset ID is the project ID.
func (a *LabelStudioAdapter) UploadImage(ctx context.Context, req *annotation.UploadImageRequest) (*annotation.ImageInfo, error) {
	if err := req.Source.Validate(); err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeValidation, err.Error(), 0, false, err)
	}

	name := annotation.ResolveImageName(*req)
	importPath := fmt.Sprintf("/api/projects/%d/import", req.DatasetID)
	query := map[string]string{"return_task_ids": "true"}

	var (
		resp          lsImportResponse
		width, height int
	)
	if req.Source.Link != "" {
		tasks := []map[string]any{{"data": map[string]any{"image": req.Source.Link}}}
		if err := a.do(ctx, "POST", importPath, query, tasks, &resp); err != nil {
			return nil, err
		}
	} else {
		data, err := annotation.ReadImageSource(req.Source)
		if err != nil {
			return nil, backends.NewBackendError(backendName, backends.CodeValidation, err.Error(), 0, false, err)
		}
		width, height, _ = annotation.SniffDimensions(data)
		if err := a.importFile(ctx, importPath, query, name, data, &resp); err != nil {
			return nil, err
		}
	}

	if len(resp.TaskIDs) == 0 {
		return nil, backends.NewBackendError(backendName, backends.CodeDecode, "import returned no task ids", 0, false, nil)
	}

	return &annotation.ImageInfo{
		ID:        resp.TaskIDs[0],
		DatasetID: req.DatasetID,
		Name:      name,
		URL:       req.Source.Link,
		Width:     width,
		Height:    height,
		Meta:      map[string]any{"task_id": resp.TaskIDs[0]},
	}, nil
}

// UploadImages imports a batch of images as tasks
func (a *LabelStudioAdapter) UploadImages(ctx context.Context, req *annotation.UploadImagesRequest) ([]annotation.ImageInfo, error) {
	infos := make([]annotation.ImageInfo, 0, len(req.Images))
	for i := range req.Images {
		img := req.Images[i]
		img.DatasetID = req.DatasetID
		info, err := a.UploadImage(ctx, &img)
		if err != nil {
			return infos, fmt.Errorf("upload image %d of %d: %w", i+1, len(req.Images), err)
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// CreateClasses rebuilds the project's label config from the class list
func (a *LabelStudioAdapter) CreateClasses(ctx context.Context, projectID int64, classes []annotation.LabelClassInfo) error {
	body := map[string]any{"label_config": buildLabelConfig(classes)}
	return a.do(ctx, "PATCH", a.projectPath(projectID), nil, body, nil)
}

// UploadAnnotation attaches labels to a task. Unified coordinates are pixels;
// Label Studio stores percentages, so each label must carry the image's
// original dimensions in its Meta (original_width, original_height).
func (a *LabelStudioAdapter) UploadAnnotation(ctx context.Context, req *annotation.UploadAnnotationRequest) (*annotation.AnnotationInfo, error) {
	items, err := toResultItems(req.Labels)
	if err != nil {
		return nil, err
	}

	var ann lsAnnotation
	path := fmt.Sprintf("/api/tasks/%d/annotations/", req.ImageID)
	if err := a.do(ctx, "POST", path, nil, map[string]any{"result": items}, &ann); err != nil {
		return nil, err
	}
	if ann.Task == 0 {
		ann.Task = req.ImageID
	}
	return ann.toInfo(), nil
}

// UploadAnnotations attaches labels to many tasks
func (a *LabelStudioAdapter) UploadAnnotations(ctx context.Context, reqs []annotation.UploadAnnotationRequest) ([]annotation.AnnotationInfo, error) {
	infos := make([]annotation.AnnotationInfo, 0, len(reqs))
	for i := range reqs {
		info, err := a.UploadAnnotation(ctx, &reqs[i])
		if err != nil {
			return infos, fmt.Errorf("upload annotation %d of %d: %w", i+1, len(reqs), err)
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// DownloadAnnotation fetches the task's first annotation
func (a *LabelStudioAdapter) DownloadAnnotation(ctx context.Context, imageID int64) (*annotation.AnnotationInfo, error) {
	var anns []lsAnnotation
	path := fmt.Sprintf("/api/tasks/%d/annotations/", imageID)
	if err := a.do(ctx, "GET", path, nil, nil, &anns); err != nil {
		return nil, err
	}
	if len(anns) == 0 {
		return nil, backends.NewBackendError(backendName, backends.CodeNotFound,
			fmt.Sprintf("task %d has no annotations", imageID), 404, false, nil)
	}

	info := anns[0].toInfo()
	if info.ImageID == 0 {
		info.ImageID = imageID
	}
	if len(anns) > 1 {
		info.Meta = map[string]any{"annotation_count": len(anns)}
	}
	return info, nil
}

// DownloadAnnotations exports the project's tasks with annotations
func (a *LabelStudioAdapter) DownloadAnnotations(ctx context.Context, req *annotation.DownloadAnnotationsRequest) ([]annotation.AnnotationInfo, error) {
	projectID := req.ProjectID
	if projectID == 0 {
		projectID = req.DatasetID
	}

	var tasks []lsExportTask
	path := fmt.Sprintf("/api/projects/%d/export", projectID)
	if err := a.do(ctx, "GET", path, map[string]string{"exportType": "JSON"}, nil, &tasks); err != nil {
		return nil, err
	}

	infos := make([]annotation.AnnotationInfo, 0, len(tasks))
	for _, t := range tasks {
		if len(t.Annotations) == 0 {
			infos = append(infos, annotation.AnnotationInfo{ImageID: t.ID})
			continue
		}
		info := t.Annotations[0].toInfo()
		info.ImageID = t.ID
		infos = append(infos, *info)
	}
	return infos, nil
}

func (a *LabelStudioAdapter) projectPath(id int64) string {
	return "/api/projects/" + strconv.FormatInt(id, 10) + "/"
}

// do performs an authenticated JSON request.
func (a *LabelStudioAdapter) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	auth, err := a.tokens.Header(ctx)
	if err != nil {
		return err
	}

	var rb *fastshot.RequestBuilder
	switch method {
	case "POST":
		rb = a.client.POST(path)
	case "PATCH":
		rb = a.client.PATCH(path)
	case "DELETE":
		rb = a.client.DELETE(path)
	default:
		rb = a.client.GET(path)
	}

	rb = rb.Context().Set(ctx).
		Header().Add("Authorization", auth).
		Header().Add("Accept", "application/json").
		Retry().SetExponentialBackoff(a.config.RetryDelay, uint(a.config.MaxRetries), 2.0)
	for k, v := range query {
		rb = rb.Query().AddParam(k, v)
	}
	if body != nil {
		rb = rb.Body().AsJSON(body)
	}

	resp, err := rb.Send()
	if err != nil {
		return backends.NewBackendError(backendName, backends.CodeTransport, "request "+path+" failed", 0, true, err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		return a.statusError(path, resp)
	}
	if out == nil {
		return nil
	}
	if err := resp.Body().AsJSON(out); err != nil {
		return backends.NewBackendError(backendName, backends.CodeDecode, "decode "+path+" response", resp.Status().Code(), false, err)
	}
	return nil
}

// importFile posts a multipart file to the import endpoint.
func (a *LabelStudioAdapter) importFile(ctx context.Context, path string, query map[string]string, name string, data []byte, out any) error {
	auth, err := a.tokens.Header(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(name, name)
	if err != nil {
		return backends.NewBackendError(backendName, backends.CodeTransport, "build multipart body", 0, false, err)
	}
	if _, err := part.Write(data); err != nil {
		return backends.NewBackendError(backendName, backends.CodeTransport, "build multipart body", 0, false, err)
	}
	if err := w.Close(); err != nil {
		return backends.NewBackendError(backendName, backends.CodeTransport, "build multipart body", 0, false, err)
	}

	rb := a.client.POST(path).
		Context().Set(ctx).
		Header().Add("Authorization", auth).
		Header().Add("Content-Type", w.FormDataContentType())
	for k, v := range query {
		rb = rb.Query().AddParam(k, v)
	}

	resp, err := rb.Body().AsReader(&buf).Send()
	if err != nil {
		return backends.NewBackendError(backendName, backends.CodeTransport, "request "+path+" failed", 0, true, err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		return a.statusError(path, resp)
	}
	if err := resp.Body().AsJSON(out); err != nil {
		return backends.NewBackendError(backendName, backends.CodeDecode, "decode "+path+" response", resp.Status().Code(), false, err)
	}
	return nil
}

func (a *LabelStudioAdapter) statusError(path string, resp *fastshot.Response) error {
	status := resp.Status().Code()
	msg, _ := resp.Body().AsString()
	if msg == "" {
		msg = fmt.Sprintf("%s returned status %d", path, status)
	}

	switch {
	case status == 401 || status == 403:
		return backends.NewBackendError(backendName, backends.CodeAuth, msg, status, false, nil)
	case status == 404:
		return backends.NewBackendError(backendName, backends.CodeNotFound, msg, status, false, nil)
	case status == 429:
		return backends.NewBackendError(backendName, backends.CodeRateLimit, msg, status, true, nil)
	case status >= 500:
		return backends.NewBackendError(backendName, backends.CodeTransport, msg, status, true, nil)
	default:
		return backends.NewBackendError(backendName, backends.CodeValidation, msg, status, false, nil)
	}
}

// toResultItems converts unified pixel-space labels into Label Studio result
// items in percent space.
func toResultItems(labels []annotation.LabelInfo) ([]lsResultItem, error) {
	items := make([]lsResultItem, 0, len(labels))
	for _, l := range labels {
		w := metaFloat(l.Meta, "original_width")
		h := metaFloat(l.Meta, "original_height")
		if w == 0 || h == 0 {
			return nil, backends.NewBackendError(backendName, backends.CodeValidation,
				fmt.Sprintf("label %q needs original_width and original_height meta to map pixels to percentages", l.Class), 0, false, nil)
		}

		item := lsResultItem{
			ToName:         "image",
			OriginalWidth:  w,
			OriginalHeight: h,
		}

		switch l.Geometry {
		case annotation.GeometryBBox:
			if len(l.Points) < 2 {
				return nil, backends.NewBackendError(backendName, backends.CodeValidation,
					"bbox label needs two corner points", 0, false, nil)
			}
			item.FromName = "bbox"
			item.Type = "rectanglelabels"
			item.Value = lsValue{
				X:               l.Points[0].X / w * 100,
				Y:               l.Points[0].Y / h * 100,
				Width:           (l.Points[1].X - l.Points[0].X) / w * 100,
				Height:          (l.Points[1].Y - l.Points[0].Y) / h * 100,
				RectangleLabels: []string{l.Class},
			}
		case annotation.GeometryPolygon, annotation.GeometryPolyline:
			item.FromName = "polygon"
			item.Type = "polygonlabels"
			points := make([][]float64, 0, len(l.Points))
			for _, p := range l.Points {
				points = append(points, []float64{p.X / w * 100, p.Y / h * 100})
			}
			item.Value = lsValue{Points: points, PolygonLabels: []string{l.Class}}
		case annotation.GeometryPoint:
			if len(l.Points) < 1 {
				return nil, backends.NewBackendError(backendName, backends.CodeValidation,
					"point label needs one point", 0, false, nil)
			}
			item.FromName = "point"
			item.Type = "keypointlabels"
			item.Value = lsValue{
				X:              l.Points[0].X / w * 100,
				Y:              l.Points[0].Y / h * 100,
				KeyPointLabels: []string{l.Class},
			}
		default:
			return nil, backends.NewBackendError(backendName, backends.CodeValidation,
				fmt.Sprintf("geometry %q cannot be uploaded to label studio", l.Geometry), 0, false, nil)
		}
		items = append(items, item)
	}
	return items, nil
}

func metaFloat(meta map[string]any, key string) float64 {
	if meta == nil {
		return 0
	}
	switch v := meta[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
