package supervisely

import (
	"time"

	"github.com/openlabel/openlabel/annotation"
)

// Wire structs for the Supervisely public API v3. List endpoints wrap results
// in an entities envelope; add/info endpoints return bare objects.

type listEnvelope[T any] struct {
	Entities []T `json:"entities"`
	Total    int `json:"total"`
}

type slyUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type slyTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type slyWorkspace struct {
	ID     int64  `json:"id"`
	TeamID int64  `json:"teamId"`
	Name   string `json:"name"`
}

type slyProject struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	WorkspaceID int64  `json:"workspaceId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type slyDataset struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"projectId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImagesCount int    `json:"imagesCount"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type slyImage struct {
	ID             int64          `json:"id"`
	DatasetID      int64          `json:"datasetId"`
	Name           string         `json:"name"`
	Link           string         `json:"link"`
	FullStorageURL string         `json:"fullStorageUrl"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Meta           map[string]any `json:"meta"`
	CreatedAt      string         `json:"createdAt"`
	UpdatedAt      string         `json:"updatedAt"`
}

type slyObjClass struct {
	ID    int64  `json:"id,omitempty"`
	Title string `json:"title"`
	Shape string `json:"shape"`
	Color string `json:"color"`
}

type slyProjectMeta struct {
	Classes []slyObjClass `json:"classes"`
}

type slyPoints struct {
	Exterior [][2]float64 `json:"exterior"`
	Interior [][2]float64 `json:"interior"`
}

type slyObject struct {
	ID           int64     `json:"id,omitempty"`
	ClassID      int64     `json:"classId,omitempty"`
	ClassTitle   string    `json:"classTitle"`
	Description  string    `json:"description,omitempty"`
	GeometryType string    `json:"geometryType"`
	Points       slyPoints `json:"points"`
}

type slyAnnotation struct {
	ID        int64       `json:"id,omitempty"`
	ImageID   int64       `json:"imageId"`
	Objects   []slyObject `json:"objects"`
	CreatedAt string      `json:"createdAt,omitempty"`
	UpdatedAt string      `json:"updatedAt,omitempty"`
}

// Geometry and project kind mapping tables, both directions.

var geometryToShape = map[annotation.GeometryKind]string{
	annotation.GeometryBBox:     "rectangle",
	annotation.GeometryPolygon:  "polygon",
	annotation.GeometryPolyline: "line",
	annotation.GeometryPoint:    "point",
	annotation.GeometryBitmap:   "bitmap",
}

var shapeToGeometry = map[string]annotation.GeometryKind{
	"rectangle": annotation.GeometryBBox,
	"polygon":   annotation.GeometryPolygon,
	"line":      annotation.GeometryPolyline,
	"point":     annotation.GeometryPoint,
	"bitmap":    annotation.GeometryBitmap,
}

var kindToType = map[annotation.ProjectKind]string{
	annotation.ProjectKindImages:  "images",
	annotation.ProjectKindVideos:  "videos",
	annotation.ProjectKindVolumes: "volumes",
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (p slyProject) toInfo() *annotation.ProjectInfo {
	return &annotation.ProjectInfo{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Kind:        annotation.ProjectKind(p.Type),
		Meta: map[string]any{
			"workspace_id": p.WorkspaceID,
		},
		CreatedAt: parseTime(p.CreatedAt),
		UpdatedAt: parseTime(p.UpdatedAt),
	}
}

func (d slyDataset) toInfo() *annotation.DatasetInfo {
	return &annotation.DatasetInfo{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		Name:        d.Name,
		Description: d.Description,
		Meta: map[string]any{
			"images_count": d.ImagesCount,
		},
		CreatedAt: parseTime(d.CreatedAt),
		UpdatedAt: parseTime(d.UpdatedAt),
	}
}

func (i slyImage) toInfo() *annotation.ImageInfo {
	url := i.FullStorageURL
	if url == "" {
		url = i.Link
	}
	return &annotation.ImageInfo{
		ID:        i.ID,
		DatasetID: i.DatasetID,
		Name:      i.Name,
		URL:       url,
		Width:     i.Width,
		Height:    i.Height,
		Meta:      i.Meta,
		CreatedAt: parseTime(i.CreatedAt),
		UpdatedAt: parseTime(i.UpdatedAt),
	}
}

func (a slyAnnotation) toInfo() *annotation.AnnotationInfo {
	labels := make([]annotation.LabelInfo, 0, len(a.Objects))
	for _, obj := range a.Objects {
		geom, ok := shapeToGeometry[obj.GeometryType]
		if !ok {
			continue
		}
		points := make([]annotation.Point, 0, len(obj.Points.Exterior))
		for _, xy := range obj.Points.Exterior {
			points = append(points, annotation.Point{X: xy[0], Y: xy[1]})
		}
		labels = append(labels, annotation.LabelInfo{
			ID:       obj.ID,
			ClassID:  obj.ClassID,
			Class:    obj.ClassTitle,
			Text:     obj.Description,
			Geometry: geom,
			Points:   points,
		})
	}
	return &annotation.AnnotationInfo{
		ID:        a.ID,
		ImageID:   a.ImageID,
		Labels:    labels,
		CreatedAt: parseTime(a.CreatedAt),
		UpdatedAt: parseTime(a.UpdatedAt),
	}
}

func toObjects(labels []annotation.LabelInfo) []slyObject {
	objects := make([]slyObject, 0, len(labels))
	for _, l := range labels {
		shape, ok := geometryToShape[l.Geometry]
		if !ok || !l.Geometry.Uploadable() {
			continue
		}
		exterior := make([][2]float64, 0, len(l.Points))
		for _, p := range l.Points {
			exterior = append(exterior, [2]float64{p.X, p.Y})
		}
		objects = append(objects, slyObject{
			ClassID:      l.ClassID,
			ClassTitle:   l.Class,
			Description:  l.Text,
			GeometryType: shape,
			Points:       slyPoints{Exterior: exterior, Interior: [][2]float64{}},
		})
	}
	return objects
}
