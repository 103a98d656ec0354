package supervisely

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"strconv"
	"sync"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/opus-domini/fast-shot/constant/header"

	"github.com/openlabel/openlabel/annotation"
	"github.com/openlabel/openlabel/backends"
)

const (
	defaultBaseURL = "https://app.supervisely.com/public/api/v3"

	backendName = "supervisely"
)

// SuperviselyAdapter implements the Backend interface for Supervisely.
//
// The public API is RPC over POST: every operation is a JSON body posted to a
// dotted method path, authenticated with an x-api-key header. The account's
// first team and workspace scope all project operations, resolved lazily on
// first use.
type SuperviselyAdapter struct {
	config backends.Config
	client fastshot.ClientHttpMethods

	wsMu        sync.Mutex
	teamID      int64
	workspaceID int64
}

// NewSuperviselyAdapter creates a new Supervisely adapter
func NewSuperviselyAdapter(config backends.Config) *SuperviselyAdapter {
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
	c.Header().Add("x-api-key", config.APIKey)
	for k, v := range config.Headers {
		c.Header().Add(header.Type(k), v)
	}

	return &SuperviselyAdapter{
		config: config,
		client: c.Config().SetTimeout(config.Timeout).
			Config().SetFollowRedirects(true).
			Build(),
	}
}

// Name returns the backend name
func (a *SuperviselyAdapter) Name() string {
	return backendName
}

// Capabilities describes native Supervisely feature support
func (a *SuperviselyAdapter) Capabilities() backends.Capabilities {
	return backends.Capabilities{
		NativeDatasets: true,
		VideoProjects:  true,
		VolumeProjects: true,
		LinkUpload:     true,
	}
}

// IsAvailable checks credentials against users.me
func (a *SuperviselyAdapter) IsAvailable(ctx context.Context) bool {
	_, err := a.CurrentAnnotator(ctx)
	return err == nil
}

// CurrentAnnotator returns the authenticated account
func (a *SuperviselyAdapter) CurrentAnnotator(ctx context.Context) (*annotation.AnnotatorInfo, error) {
	var user slyUser
	if err := a.call(ctx, "users.me", map[string]any{}, &user); err != nil {
		return nil, err
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &annotation.AnnotatorInfo{
		ID:    user.ID,
		Name:  name,
		Email: user.Email,
	}, nil
}

// CreateProject creates a project, registers its label classes, creates the
// default dataset and uploads any initial images into it, mirroring the
// project bootstrap the platform UI performs.
func (a *SuperviselyAdapter) CreateProject(ctx context.Context, req *annotation.CreateProjectRequest) (*annotation.ProjectInfo, error) {
	wsID, err := a.workspace(ctx)
	if err != nil {
		return nil, err
	}

	kind := req.Kind
	if kind == "" {
		kind = annotation.ProjectKindImages
	}

	var proj slyProject
	err = a.call(ctx, "projects.add", map[string]any{
		"workspaceId":          wsID,
		"name":                 req.Name,
		"description":          req.Description,
		"type":                 kindToType[kind],
		"changeNameIfConflict": true,
	}, &proj)
	if err != nil {
		return nil, err
	}

	if len(req.Classes) > 0 {
		if err := a.CreateClasses(ctx, proj.ID, req.Classes); err != nil {
			return nil, err
		}
	}

	dataset, err := a.CreateDataset(ctx, &annotation.CreateDatasetRequest{
		ProjectID: proj.ID,
		Name:      req.Name,
	})
	if err != nil {
		return nil, err
	}

	for i := range req.Images {
		img := req.Images[i]
		img.DatasetID = dataset.ID
		if _, err := a.UploadImage(ctx, &img); err != nil {
			return nil, err
		}
	}

	info := proj.toInfo()
	info.Meta["default_dataset_id"] = dataset.ID
	if len(req.Classes) > 0 {
		info.Meta["classes"] = req.Classes
	}
	return info, nil
}

// GetProject retrieves a project by ID
func (a *SuperviselyAdapter) GetProject(ctx context.Context, projectID int64) (*annotation.ProjectInfo, error) {
	var proj slyProject
	if err := a.call(ctx, "projects.info", map[string]any{"id": projectID}, &proj); err != nil {
		return nil, err
	}
	return proj.toInfo(), nil
}

// UpdateProject updates project metadata and, when classes are given, the
// project meta's class list.
func (a *SuperviselyAdapter) UpdateProject(ctx context.Context, req *annotation.UpdateProjectRequest) (*annotation.ProjectInfo, error) {
	body := map[string]any{"id": req.ProjectID}
	if req.Name != "" {
		body["name"] = req.Name
	}
	if req.Description != "" {
		body["description"] = req.Description
	}

	var proj slyProject
	if err := a.call(ctx, "projects.edit-info", body, &proj); err != nil {
		return nil, err
	}

	if len(req.Classes) > 0 {
		if err := a.CreateClasses(ctx, req.ProjectID, req.Classes); err != nil {
			return nil, err
		}
	}
	return proj.toInfo(), nil
}

// ListProjects lists projects in the active workspace
func (a *SuperviselyAdapter) ListProjects(ctx context.Context) ([]annotation.ProjectInfo, error) {
	wsID, err := a.workspace(ctx)
	if err != nil {
		return nil, err
	}

	var env listEnvelope[slyProject]
	if err := a.call(ctx, "projects.list", map[string]any{"workspaceId": wsID}, &env); err != nil {
		return nil, err
	}

	infos := make([]annotation.ProjectInfo, 0, len(env.Entities))
	for _, p := range env.Entities {
		infos = append(infos, *p.toInfo())
	}
	return infos, nil
}

// DeleteProject removes a project
func (a *SuperviselyAdapter) DeleteProject(ctx context.Context, projectID int64) error {
	return a.call(ctx, "projects.remove", map[string]any{"id": projectID}, nil)
}

// CreateDataset creates a dataset inside a project
func (a *SuperviselyAdapter) CreateDataset(ctx context.Context, req *annotation.CreateDatasetRequest) (*annotation.DatasetInfo, error) {
	var ds slyDataset
	err := a.call(ctx, "datasets.add", map[string]any{
		"projectId":            req.ProjectID,
		"name":                 req.Name,
		"description":          req.Description,
		"changeNameIfConflict": true,
	}, &ds)
	if err != nil {
		return nil, err
	}
	return ds.toInfo(), nil
}

// GetDataset retrieves a dataset by ID
func (a *SuperviselyAdapter) GetDataset(ctx context.Context, datasetID int64) (*annotation.DatasetInfo, error) {
	var ds slyDataset
	if err := a.call(ctx, "datasets.info", map[string]any{"id": datasetID}, &ds); err != nil {
		return nil, err
	}
	return ds.toInfo(), nil
}

// UpdateDataset updates dataset metadata
func (a *SuperviselyAdapter) UpdateDataset(ctx context.Context, req *annotation.UpdateDatasetRequest) (*annotation.DatasetInfo, error) {
	body := map[string]any{"id": req.DatasetID}
	if req.Name != "" {
		body["name"] = req.Name
	}
	if req.Description != "" {
		body["description"] = req.Description
	}

	var ds slyDataset
	if err := a.call(ctx, "datasets.edit-info", body, &ds); err != nil {
		return nil, err
	}
	return ds.toInfo(), nil
}

// ListDatasets lists datasets in a project
func (a *SuperviselyAdapter) ListDatasets(ctx context.Context, projectID int64) ([]annotation.DatasetInfo, error) {
	var env listEnvelope[slyDataset]
	if err := a.call(ctx, "datasets.list", map[string]any{"projectId": projectID}, &env); err != nil {
		return nil, err
	}

	infos := make([]annotation.DatasetInfo, 0, len(env.Entities))
	for _, ds := range env.Entities {
		infos = append(infos, *ds.toInfo())
	}
	return infos, nil
}

// ListAllDatasets lists datasets across every project in the workspace
func (a *SuperviselyAdapter) ListAllDatasets(ctx context.Context) ([]annotation.DatasetInfo, error) {
	projects, err := a.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	var all []annotation.DatasetInfo
	for _, p := range projects {
		datasets, err := a.ListDatasets(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, datasets...)
	}
	return all, nil
}

// DeleteDataset removes a dataset
func (a *SuperviselyAdapter) DeleteDataset(ctx context.Context, datasetID int64) error {
	return a.call(ctx, "datasets.remove", map[string]any{"id": datasetID}, nil)
}

// UploadImage uploads one image. Link sources go through images.bulk.add so
// the platform ingests the URL server-side; path and raw sources are sent as
// multipart uploads.
func (a *SuperviselyAdapter) UploadImage(ctx context.Context, req *annotation.UploadImageRequest) (*annotation.ImageInfo, error) {
	if err := req.Source.Validate(); err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeValidation, err.Error(), 0, false, err)
	}

	name := annotation.ResolveImageName(*req)

	if req.Source.Link != "" {
		var env listEnvelope[slyImage]
		err := a.call(ctx, "images.bulk.add", map[string]any{
			"datasetId": req.DatasetID,
			"images":    []map[string]any{{"name": name, "link": req.Source.Link}},
		}, &env)
		if err != nil {
			return nil, err
		}
		if len(env.Entities) == 0 {
			return nil, backends.NewBackendError(backendName, backends.CodeDecode, "images.bulk.add returned no entities", 0, false, nil)
		}
		return env.Entities[0].toInfo(), nil
	}

	data, err := annotation.ReadImageSource(req.Source)
	if err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeValidation, err.Error(), 0, false, err)
	}
	return a.uploadMultipart(ctx, req.DatasetID, name, data)
}

// UploadImages uploads a batch of images into one dataset
func (a *SuperviselyAdapter) UploadImages(ctx context.Context, req *annotation.UploadImagesRequest) ([]annotation.ImageInfo, error) {
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

// CreateClasses replaces the project meta's label class list
func (a *SuperviselyAdapter) CreateClasses(ctx context.Context, projectID int64, classes []annotation.LabelClassInfo) error {
	objClasses := make([]slyObjClass, 0, len(classes))
	for _, c := range classes {
		shape, ok := geometryToShape[c.Geometry]
		if !ok {
			shape = geometryToShape[annotation.GeometryBBox]
		}
		objClasses = append(objClasses, slyObjClass{
			Title: c.Name,
			Shape: shape,
			Color: c.Color.Hex(),
		})
	}

	return a.call(ctx, "projects.meta.update", map[string]any{
		"id":   projectID,
		"meta": slyProjectMeta{Classes: objClasses},
	}, nil)
}

// UploadAnnotation attaches labels to one image
func (a *SuperviselyAdapter) UploadAnnotation(ctx context.Context, req *annotation.UploadAnnotationRequest) (*annotation.AnnotationInfo, error) {
	infos, err := a.UploadAnnotations(ctx, []annotation.UploadAnnotationRequest{*req})
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, backends.NewBackendError(backendName, backends.CodeDecode, "annotations.bulk.add returned no entities", 0, false, nil)
	}
	return &infos[0], nil
}

// UploadAnnotations attaches labels to many images in one call
func (a *SuperviselyAdapter) UploadAnnotations(ctx context.Context, reqs []annotation.UploadAnnotationRequest) ([]annotation.AnnotationInfo, error) {
	anns := make([]slyAnnotation, 0, len(reqs))
	for _, r := range reqs {
		anns = append(anns, slyAnnotation{
			ImageID: r.ImageID,
			Objects: toObjects(r.Labels),
		})
	}

	var env listEnvelope[slyAnnotation]
	if err := a.call(ctx, "annotations.bulk.add", map[string]any{"annotations": anns}, &env); err != nil {
		return nil, err
	}

	infos := make([]annotation.AnnotationInfo, 0, len(env.Entities))
	for _, ann := range env.Entities {
		infos = append(infos, *ann.toInfo())
	}
	return infos, nil
}

// DownloadAnnotation fetches the annotation for one image
func (a *SuperviselyAdapter) DownloadAnnotation(ctx context.Context, imageID int64) (*annotation.AnnotationInfo, error) {
	var ann slyAnnotation
	if err := a.call(ctx, "annotations.info", map[string]any{"imageId": imageID}, &ann); err != nil {
		return nil, err
	}
	if ann.ImageID == 0 {
		ann.ImageID = imageID
	}
	return ann.toInfo(), nil
}

// DownloadAnnotations fetches all annotations in a dataset
func (a *SuperviselyAdapter) DownloadAnnotations(ctx context.Context, req *annotation.DownloadAnnotationsRequest) ([]annotation.AnnotationInfo, error) {
	var env listEnvelope[slyAnnotation]
	if err := a.call(ctx, "annotations.list", map[string]any{"datasetId": req.DatasetID}, &env); err != nil {
		return nil, err
	}

	infos := make([]annotation.AnnotationInfo, 0, len(env.Entities))
	for _, ann := range env.Entities {
		infos = append(infos, *ann.toInfo())
	}
	return infos, nil
}

// workspace resolves the account's first team and workspace, caching the
// result. A failed resolution is retried on the next call rather than latched,
// so a transient error does not poison the adapter.
func (a *SuperviselyAdapter) workspace(ctx context.Context) (int64, error) {
	a.wsMu.Lock()
	defer a.wsMu.Unlock()

	if a.workspaceID != 0 {
		return a.workspaceID, nil
	}

	var teams listEnvelope[slyTeam]
	if err := a.call(ctx, "teams.list", map[string]any{}, &teams); err != nil {
		return 0, err
	}
	if len(teams.Entities) == 0 {
		return 0, backends.NewBackendError(backendName, backends.CodeNotFound, "account has no teams", 0, false, nil)
	}
	a.teamID = teams.Entities[0].ID

	var workspaces listEnvelope[slyWorkspace]
	if err := a.call(ctx, "workspaces.list", map[string]any{"teamId": a.teamID}, &workspaces); err != nil {
		return 0, err
	}
	if len(workspaces.Entities) == 0 {
		return 0, backends.NewBackendError(backendName, backends.CodeNotFound, "team has no workspaces", 0, false, nil)
	}
	a.workspaceID = workspaces.Entities[0].ID
	return a.workspaceID, nil
}

// call posts a JSON body to a dotted RPC method and decodes the result.
func (a *SuperviselyAdapter) call(ctx context.Context, method string, body any, out any) error {
	resp, err := a.client.POST("/"+method).
		Context().Set(ctx).
		Header().Add("Accept", "application/json").
		Retry().SetExponentialBackoff(a.config.RetryDelay, uint(a.config.MaxRetries), 2.0).
		Body().AsJSON(body).
		Send()
	if err != nil {
		return backends.NewBackendError(backendName, backends.CodeTransport, "request "+method+" failed", 0, true, err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		return a.statusError(method, resp.Status().Code(), resp)
	}
	if out == nil {
		return nil
	}
	if err := resp.Body().AsJSON(out); err != nil {
		return backends.NewBackendError(backendName, backends.CodeDecode, "decode "+method+" response", resp.Status().Code(), false, err)
	}
	return nil
}

// uploadMultipart sends raw image bytes through the multipart upload endpoint.
func (a *SuperviselyAdapter) uploadMultipart(ctx context.Context, datasetID int64, name string, data []byte) (*annotation.ImageInfo, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("datasetId", strconv.FormatInt(datasetID, 10)); err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeTransport, "build multipart body", 0, false, err)
	}
	part, err := w.CreateFormFile("files", name)
	if err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeTransport, "build multipart body", 0, false, err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeTransport, "build multipart body", 0, false, err)
	}
	if err := w.Close(); err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeTransport, "build multipart body", 0, false, err)
	}

	resp, err := a.client.POST("/images.upload").
		Context().Set(ctx).
		Header().Add("Content-Type", w.FormDataContentType()).
		Body().AsReader(&buf).
		Send()
	if err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeTransport, "request images.upload failed", 0, true, err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		return nil, a.statusError("images.upload", resp.Status().Code(), resp)
	}

	var env listEnvelope[slyImage]
	if err := resp.Body().AsJSON(&env); err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeDecode, "decode images.upload response", resp.Status().Code(), false, err)
	}
	if len(env.Entities) == 0 {
		return nil, backends.NewBackendError(backendName, backends.CodeDecode, "images.upload returned no entities", 0, false, nil)
	}
	return env.Entities[0].toInfo(), nil
}

func (a *SuperviselyAdapter) statusError(method string, status int, resp *fastshot.Response) error {
	msg, _ := resp.Body().AsString()
	if msg == "" {
		msg = fmt.Sprintf("%s returned status %d", method, status)
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
