package roboflow

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/opus-domini/fast-shot/constant/header"

	"github.com/openlabel/openlabel/annotation"
	"github.com/openlabel/openlabel/backends"
)

const (
	defaultBaseURL = "https://api.roboflow.com"

	backendName = "roboflow"

	// defaultBatch is the batch name uploads land in when no dataset is chosen,
	// matching the platform's own default.
	defaultBatch = "uploaded-via-api"
)

type datasetRef struct {
	slug  string
	batch string
}

type imageRef struct {
	slug    string
	imageID string
}

// RoboflowAdapter implements the Backend interface for Roboflow.
//
// Roboflow authenticates with an api_key query parameter and scopes projects
// under a workspace slug. It has no first-class dataset object, so datasets
// are emulated over upload batches; the emulation is marked in DatasetInfo
// meta. Project deletion and renaming have no public endpoint and surface as
// NOT_SUPPORTED errors.
type RoboflowAdapter struct {
	config backends.Config
	client fastshot.ClientHttpMethods

	mu        sync.Mutex
	workspace string
	projects  map[int64]string     // unified ID -> project slug
	datasets  map[int64]datasetRef // unified ID -> slug + batch
	images    map[int64]imageRef   // unified ID -> slug + remote image ID
}

// NewRoboflowAdapter creates a new Roboflow adapter
func NewRoboflowAdapter(config backends.Config) *RoboflowAdapter {
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

	return &RoboflowAdapter{
		config: config,
		client: c.Config().SetTimeout(config.Timeout).
			Config().SetFollowRedirects(true).
			Build(),
		workspace: config.Workspace,
		projects:  make(map[int64]string),
		datasets:  make(map[int64]datasetRef),
		images:    make(map[int64]imageRef),
	}
}

// Name returns the backend name
func (a *RoboflowAdapter) Name() string {
	return backendName
}

// Capabilities describes Roboflow feature support
func (a *RoboflowAdapter) Capabilities() backends.Capabilities {
	return backends.Capabilities{
		NativeDatasets: false,
		VideoProjects:  false,
		VolumeProjects: false,
		LinkUpload:     true,
	}
}

// IsAvailable checks the API key against the account root endpoint
func (a *RoboflowAdapter) IsAvailable(ctx context.Context) bool {
	_, err := a.resolveWorkspace(ctx)
	return err == nil
}

// CurrentAnnotator returns the workspace identity; Roboflow's API key is
// workspace-scoped and exposes no richer account data.
func (a *RoboflowAdapter) CurrentAnnotator(ctx context.Context) (*annotation.AnnotatorInfo, error) {
	ws, err := a.resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	return &annotation.AnnotatorInfo{
		ID:   stableID(ws),
		Name: ws,
		Meta: map[string]any{"workspace": ws},
	}, nil
}

// CreateProject creates a project and uploads any initial images into the
// default batch.
func (a *RoboflowAdapter) CreateProject(ctx context.Context, req *annotation.CreateProjectRequest) (*annotation.ProjectInfo, error) {
	if req.Kind != "" && req.Kind != annotation.ProjectKindImages {
		return nil, backends.NewBackendError(backendName, backends.CodeNotSupported,
			fmt.Sprintf("roboflow does not support %s projects", req.Kind), 0, false, nil)
	}

	ws, err := a.resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	var env rfProjectEnvelope
	err = a.send(ctx, a.request("POST", "/"+ws+"/projects").
		Body().AsJSON(map[string]any{
			"name":       req.Name,
			"type":       "object-detection",
			"annotation": req.Description,
		}), &env)
	if err != nil {
		return nil, err
	}

	slug := env.Project.ID
	if slug == "" {
		slug = ws + "/" + slugify(req.Name)
	}
	info := a.projectInfo(slug, env.Project)
	info.Description = req.Description

	if len(req.Classes) > 0 {
		info.Meta["classes"] = req.Classes
	}

	dsID := a.registerDataset(projectSlugOnly(slug), defaultBatch)
	info.Meta["default_dataset_id"] = dsID

	for i := range req.Images {
		img := req.Images[i]
		img.DatasetID = dsID
		if _, err := a.UploadImage(ctx, &img); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// GetProject retrieves a project by unified ID
func (a *RoboflowAdapter) GetProject(ctx context.Context, projectID int64) (*annotation.ProjectInfo, error) {
	slug, err := a.projectSlug(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ws, err := a.resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	var env rfProjectEnvelope
	if err := a.send(ctx, a.request("GET", "/"+ws+"/"+slug), &env); err != nil {
		return nil, err
	}
	return a.projectInfo(ws+"/"+slug, env.Project), nil
}

// UpdateProject has no public Roboflow endpoint
func (a *RoboflowAdapter) UpdateProject(_ context.Context, _ *annotation.UpdateProjectRequest) (*annotation.ProjectInfo, error) {
	return nil, backends.NewBackendError(backendName, backends.CodeNotSupported,
		"roboflow has no project update endpoint", 0, false, nil)
}

// ListProjects lists all projects in the workspace
func (a *RoboflowAdapter) ListProjects(ctx context.Context) ([]annotation.ProjectInfo, error) {
	ws, err := a.resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	var env rfWorkspace
	if err := a.send(ctx, a.request("GET", "/"+ws), &env); err != nil {
		return nil, err
	}

	infos := make([]annotation.ProjectInfo, 0, len(env.Workspace.Projects))
	for _, p := range env.Workspace.Projects {
		infos = append(infos, *a.projectInfo(p.ID, p))
	}
	return infos, nil
}

// DeleteProject has no public Roboflow endpoint
func (a *RoboflowAdapter) DeleteProject(_ context.Context, _ int64) error {
	return backends.NewBackendError(backendName, backends.CodeNotSupported,
		"roboflow has no project delete endpoint", 0, false, nil)
}

// CreateDataset registers an upload batch. Nothing is created remotely: the
// batch comes into being on the first upload naming it.
func (a *RoboflowAdapter) CreateDataset(ctx context.Context, req *annotation.CreateDatasetRequest) (*annotation.DatasetInfo, error) {
	slug, err := a.projectSlug(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	id := a.registerDataset(slug, req.Name)
	return &annotation.DatasetInfo{
		ID:        id,
		ProjectID: req.ProjectID,
		Name:      req.Name,
		Meta:      map[string]any{"emulated": true, "batch": req.Name, "slug": slug},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// GetDataset retrieves an emulated dataset by unified ID
func (a *RoboflowAdapter) GetDataset(ctx context.Context, datasetID int64) (*annotation.DatasetInfo, error) {
	ref, err := a.resolveDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return &annotation.DatasetInfo{
		ID:        datasetID,
		ProjectID: stableID(ref.slug),
		Name:      ref.batch,
		Meta:      map[string]any{"emulated": true, "batch": ref.batch, "slug": ref.slug},
	}, nil
}

// UpdateDataset renames the emulated batch registration
func (a *RoboflowAdapter) UpdateDataset(ctx context.Context, req *annotation.UpdateDatasetRequest) (*annotation.DatasetInfo, error) {
	ref, err := a.resolveDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		ref.batch = req.Name
		a.mu.Lock()
		a.datasets[req.DatasetID] = ref
		a.mu.Unlock()
	}
	return &annotation.DatasetInfo{
		ID:        req.DatasetID,
		ProjectID: stableID(ref.slug),
		Name:      ref.batch,
		Meta:      map[string]any{"emulated": true, "batch": ref.batch, "slug": ref.slug},
	}, nil
}

// ListDatasets lists the project's upload batches
func (a *RoboflowAdapter) ListDatasets(ctx context.Context, projectID int64) ([]annotation.DatasetInfo, error) {
	slug, err := a.projectSlug(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ws, err := a.resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	var env rfBatchList
	if err := a.send(ctx, a.request("GET", "/"+ws+"/"+slug+"/batches"), &env); err != nil {
		return nil, err
	}

	infos := make([]annotation.DatasetInfo, 0, len(env.Batches))
	for _, b := range env.Batches {
		name := b.Name
		if name == "" {
			name = b.ID
		}
		id := a.registerDataset(slug, name)
		infos = append(infos, annotation.DatasetInfo{
			ID:        id,
			ProjectID: projectID,
			Name:      name,
			Meta:      map[string]any{"emulated": true, "batch": name, "slug": slug, "images_count": b.Images},
		})
	}
	return infos, nil
}

// ListAllDatasets lists batches across every project in the workspace
func (a *RoboflowAdapter) ListAllDatasets(ctx context.Context) ([]annotation.DatasetInfo, error) {
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

// DeleteDataset drops the emulated batch registration. Images already
// uploaded under the batch remain on the platform, and a batch that still
// exists remotely reappears on the next listing.
func (a *RoboflowAdapter) DeleteDataset(ctx context.Context, datasetID int64) error {
	if _, err := a.resolveDataset(ctx, datasetID); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.datasets, datasetID)
	a.mu.Unlock()
	return nil
}

// UploadImage uploads one image into the dataset's batch. Links are passed by
// query parameter for server-side ingestion; local bytes go base64 in the body.
func (a *RoboflowAdapter) UploadImage(ctx context.Context, req *annotation.UploadImageRequest) (*annotation.ImageInfo, error) {
	if err := req.Source.Validate(); err != nil {
		return nil, backends.NewBackendError(backendName, backends.CodeValidation, err.Error(), 0, false, err)
	}

	ref, err := a.resolveDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}

	name := annotation.ResolveImageName(*req)

	var (
		resp   rfUploadResponse
		width  int
		height int
	)
	if req.Source.Link != "" {
		err = a.send(ctx, a.request("POST", "/dataset/"+ref.slug+"/upload").
			Query().AddParam("name", name).
			Query().AddParam("batch", ref.batch).
			Query().AddParam("image", req.Source.Link), &resp)
	} else {
		var data []byte
		data, err = annotation.ReadImageSource(req.Source)
		if err != nil {
			return nil, backends.NewBackendError(backendName, backends.CodeValidation, err.Error(), 0, false, err)
		}
		width, height, _ = annotation.SniffDimensions(data)

		err = a.send(ctx, a.request("POST", "/dataset/"+ref.slug+"/upload").
			Query().AddParam("name", name).
			Query().AddParam("batch", ref.batch).
			Header().Add("Content-Type", "application/x-www-form-urlencoded").
			Body().AsString(base64.StdEncoding.EncodeToString(data)), &resp)
	}
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.ID == "" {
		return nil, backends.NewBackendError(backendName, backends.CodeTransport,
			"upload rejected by roboflow", 0, false, nil)
	}

	id := stableID(ref.slug + "/" + resp.ID)
	a.mu.Lock()
	a.images[id] = imageRef{slug: ref.slug, imageID: resp.ID}
	a.mu.Unlock()

	return &annotation.ImageInfo{
		ID:        id,
		DatasetID: req.DatasetID,
		Name:      name,
		URL:       req.Source.Link,
		Width:     width,
		Height:    height,
		Meta:      map[string]any{"remote_id": resp.ID, "batch": ref.batch},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// UploadImages uploads a batch of images
func (a *RoboflowAdapter) UploadImages(ctx context.Context, req *annotation.UploadImagesRequest) ([]annotation.ImageInfo, error) {
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

// CreateClasses is a no-op remotely: Roboflow derives classes from uploaded
// annotations rather than a declared ontology.
func (a *RoboflowAdapter) CreateClasses(_ context.Context, _ int64, _ []annotation.LabelClassInfo) error {
	return nil
}

// UploadAnnotation attaches labels to an uploaded image
func (a *RoboflowAdapter) UploadAnnotation(ctx context.Context, req *annotation.UploadAnnotationRequest) (*annotation.AnnotationInfo, error) {
	ref, err := a.resolveImage(ctx, req.ImageID)
	if err != nil {
		return nil, err
	}

	var resp rfAnnotateResponse
	err = a.send(ctx, a.request("POST", "/dataset/"+ref.slug+"/annotate/"+ref.imageID).
		Query().AddParam("name", ref.imageID+".json").
		Body().AsJSON(toUploadPayload(req.Labels)), &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, backends.NewBackendError(backendName, backends.CodeTransport,
			"annotation rejected by roboflow", 0, false, nil)
	}

	return &annotation.AnnotationInfo{
		ImageID:   req.ImageID,
		Labels:    req.Labels,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// UploadAnnotations attaches labels to many images
func (a *RoboflowAdapter) UploadAnnotations(ctx context.Context, reqs []annotation.UploadAnnotationRequest) ([]annotation.AnnotationInfo, error) {
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

// DownloadAnnotation fetches the annotation for one image via the project's
// COCO export.
func (a *RoboflowAdapter) DownloadAnnotation(ctx context.Context, imageID int64) (*annotation.AnnotationInfo, error) {
	ref, err := a.resolveImage(ctx, imageID)
	if err != nil {
		return nil, err
	}

	infos, err := a.exportAnnotations(ctx, ref.slug)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].ImageID == imageID {
			return &infos[i], nil
		}
	}
	return nil, backends.NewBackendError(backendName, backends.CodeNotFound,
		fmt.Sprintf("no annotation for image %d", imageID), 404, false, nil)
}

// DownloadAnnotations fetches the dataset's annotations via the project's
// COCO export.
func (a *RoboflowAdapter) DownloadAnnotations(ctx context.Context, req *annotation.DownloadAnnotationsRequest) ([]annotation.AnnotationInfo, error) {
	slug, err := a.projectSlug(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	return a.exportAnnotations(ctx, slug)
}

func (a *RoboflowAdapter) exportAnnotations(ctx context.Context, slug string) ([]annotation.AnnotationInfo, error) {
	ws, err := a.resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	var export cocoExport
	if err := a.send(ctx, a.request("GET", "/"+ws+"/"+slug+"/coco"), &export); err != nil {
		return nil, err
	}

	categories := make(map[int64]string, len(export.Categories))
	for _, c := range export.Categories {
		categories[c.ID] = c.Name
	}

	byImage := make(map[int64][]annotation.LabelInfo)
	for _, img := range export.Images {
		byImage[img.ID] = nil
	}
	for _, ann := range export.Annotations {
		byImage[ann.ImageID] = append(byImage[ann.ImageID], ann.toLabel(categories))
	}

	// Export file names carry the remote image ID as their stem, which is the
	// same value uploads hash into the unified ID. Keying the results by that
	// hash keeps download IDs in the ID space UploadImage reported, and
	// registers the mapping for adapters that never saw the upload.
	infos := make([]annotation.AnnotationInfo, 0, len(byImage))
	for _, img := range export.Images {
		remote := fileStem(img.FileName)
		unified := stableID(slug + "/" + remote)
		a.mu.Lock()
		a.images[unified] = imageRef{slug: slug, imageID: remote}
		a.mu.Unlock()
		infos = append(infos, annotation.AnnotationInfo{
			ImageID: unified,
			Labels:  byImage[img.ID],
			Meta:    map[string]any{"file_name": img.FileName, "remote_id": remote, "width": img.Width, "height": img.Height},
		})
	}
	return infos, nil
}

// resolveDataset maps a unified dataset ID back to its batch. Batch IDs are
// stable hashes, so an ID issued by an earlier process is re-derived by
// relisting the workspace's batches on a miss. Projects whose batches cannot
// be listed are skipped rather than failing the lookup.
func (a *RoboflowAdapter) resolveDataset(ctx context.Context, datasetID int64) (datasetRef, error) {
	a.mu.Lock()
	ref, ok := a.datasets[datasetID]
	a.mu.Unlock()
	if ok {
		return ref, nil
	}

	projects, err := a.ListProjects(ctx)
	if err != nil {
		return datasetRef{}, err
	}
	for i := range projects {
		if _, err := a.ListDatasets(ctx, projects[i].ID); err != nil {
			continue
		}
		a.mu.Lock()
		ref, ok = a.datasets[datasetID]
		a.mu.Unlock()
		if ok {
			return ref, nil
		}
	}
	return datasetRef{}, backends.NewBackendError(backendName, backends.CodeNotFound,
		fmt.Sprintf("dataset %d not found", datasetID), 404, false, nil)
}

// resolveImage maps a unified image ID back to its remote ID, re-deriving the
// mapping from project exports when the ID was issued by an earlier process.
func (a *RoboflowAdapter) resolveImage(ctx context.Context, imageID int64) (imageRef, error) {
	a.mu.Lock()
	ref, ok := a.images[imageID]
	a.mu.Unlock()
	if ok {
		return ref, nil
	}

	if _, err := a.ListProjects(ctx); err != nil {
		return imageRef{}, err
	}
	a.mu.Lock()
	slugs := make(map[string]bool, len(a.projects))
	for _, s := range a.projects {
		slugs[s] = true
	}
	a.mu.Unlock()

	for slug := range slugs {
		if _, err := a.exportAnnotations(ctx, slug); err != nil {
			continue
		}
		a.mu.Lock()
		ref, ok = a.images[imageID]
		a.mu.Unlock()
		if ok {
			return ref, nil
		}
	}
	return imageRef{}, backends.NewBackendError(backendName, backends.CodeNotFound,
		fmt.Sprintf("image %d not found", imageID), 404, false, nil)
}

// projectSlug resolves a unified project ID back to its slug, refreshing the
// project listing when the ID has not been seen in this process.
func (a *RoboflowAdapter) projectSlug(ctx context.Context, projectID int64) (string, error) {
	a.mu.Lock()
	slug, ok := a.projects[projectID]
	a.mu.Unlock()
	if ok {
		return slug, nil
	}

	if _, err := a.ListProjects(ctx); err != nil {
		return "", err
	}

	a.mu.Lock()
	slug, ok = a.projects[projectID]
	a.mu.Unlock()
	if !ok {
		return "", backends.NewBackendError(backendName, backends.CodeNotFound,
			fmt.Sprintf("project %d not found", projectID), 404, false, nil)
	}
	return slug, nil
}

func (a *RoboflowAdapter) projectInfo(fullSlug string, p rfProject) *annotation.ProjectInfo {
	slug := projectSlugOnly(fullSlug)
	id := stableID(fullSlug)

	a.mu.Lock()
	a.projects[id] = slug
	a.mu.Unlock()

	name := p.Name
	if name == "" {
		name = slug
	}
	return &annotation.ProjectInfo{
		ID:        id,
		Name:      name,
		Kind:      annotation.ProjectKindImages,
		Meta:      map[string]any{"slug": fullSlug, "type": p.Type, "images_count": p.Images},
		CreatedAt: time.Unix(int64(p.Created), 0).UTC(),
		UpdatedAt: time.Unix(int64(p.Updated), 0).UTC(),
	}
}

func (a *RoboflowAdapter) registerDataset(slug, batch string) int64 {
	id := stableID(slug + "#" + batch)
	a.mu.Lock()
	a.datasets[id] = datasetRef{slug: slug, batch: batch}
	a.mu.Unlock()
	return id
}

// resolveWorkspace returns the configured workspace slug, asking the account
// root endpoint when none was configured.
func (a *RoboflowAdapter) resolveWorkspace(ctx context.Context) (string, error) {
	a.mu.Lock()
	ws := a.workspace
	a.mu.Unlock()
	if ws != "" {
		return ws, nil
	}

	var root rfRoot
	if err := a.send(ctx, a.request("GET", "/"), &root); err != nil {
		return "", err
	}
	if root.Workspace == "" {
		return "", backends.NewBackendError(backendName, backends.CodeAuth,
			"api key resolves to no workspace", 0, false, nil)
	}

	a.mu.Lock()
	a.workspace = root.Workspace
	a.mu.Unlock()
	return root.Workspace, nil
}

// request starts a request with the api_key query parameter attached.
func (a *RoboflowAdapter) request(method, path string) *fastshot.RequestBuilder {
	var rb *fastshot.RequestBuilder
	switch method {
	case "POST":
		rb = a.client.POST(path)
	default:
		rb = a.client.GET(path)
	}
	return rb.Query().AddParam("api_key", a.config.APIKey).
		Header().Add("Accept", "application/json")
}

func (a *RoboflowAdapter) send(ctx context.Context, rb *fastshot.RequestBuilder, out any) error {
	resp, err := rb.Context().Set(ctx).
		Retry().SetExponentialBackoff(a.config.RetryDelay, uint(a.config.MaxRetries), 2.0).
		Send()
	if err != nil {
		return backends.NewBackendError(backendName, backends.CodeTransport, "request failed", 0, true, err)
	}
	defer resp.Body().Close()

	status := resp.Status().Code()
	if resp.Status().IsError() {
		msg, _ := resp.Body().AsString()
		if msg == "" {
			msg = fmt.Sprintf("roboflow returned status %d", status)
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

	if out == nil {
		return nil
	}
	if err := resp.Body().AsJSON(out); err != nil {
		return backends.NewBackendError(backendName, backends.CodeDecode, "decode roboflow response", status, false, err)
	}
	return nil
}

func fileStem(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

func projectSlugOnly(fullSlug string) string {
	if i := strings.LastIndex(fullSlug, "/"); i >= 0 {
		return fullSlug[i+1:]
	}
	return fullSlug
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	return s
}
