package roboflow

import (
	"hash/fnv"

	"github.com/openlabel/openlabel/annotation"
)

// Roboflow identifies projects by "workspace/slug" strings and images by
// opaque string IDs. The unified layer wants int64 IDs, so string identities
// are hashed to stable positive int64s and the originals carried in Meta.

func stableID(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

type rfRoot struct {
	Workspace string `json:"workspace"`
}

type rfWorkspace struct {
	Workspace struct {
		Name     string      `json:"name"`
		URL      string      `json:"url"`
		Projects []rfProject `json:"projects"`
	} `json:"workspace"`
}

type rfProjectEnvelope struct {
	Project rfProject `json:"project"`
}

type rfProject struct {
	ID         string  `json:"id"` // "workspace/slug"
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Annotation string  `json:"annotation"`
	Images     int     `json:"images"`
	Created    float64 `json:"created"`
	Updated    float64 `json:"updated"`
}

type rfBatchList struct {
	Batches []rfBatch `json:"batches"`
}

type rfBatch struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Images int    `json:"images"`
}

type rfUploadResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type rfAnnotateResponse struct {
	Success bool `json:"success"`
}

// Minimal COCO export shapes, enough to translate a Roboflow export into
// unified annotation infos.

type cocoExport struct {
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

type cocoImage struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoAnnotation struct {
	ID           int64       `json:"id"`
	ImageID      int64       `json:"image_id"`
	CategoryID   int64       `json:"category_id"`
	BBox         []float64   `json:"bbox"` // x, y, width, height
	Segmentation [][]float64 `json:"segmentation,omitempty"`
}

type cocoCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// toLabel converts one COCO annotation. Segmentations become polygons,
// otherwise the bbox becomes a rectangle.
func (c cocoAnnotation) toLabel(categories map[int64]string) annotation.LabelInfo {
	label := annotation.LabelInfo{
		ID:      c.ID,
		ClassID: c.CategoryID,
		Class:   categories[c.CategoryID],
	}

	if len(c.Segmentation) > 0 && len(c.Segmentation[0]) >= 6 {
		ring := c.Segmentation[0]
		points := make([]annotation.Point, 0, len(ring)/2)
		for i := 0; i+1 < len(ring); i += 2 {
			points = append(points, annotation.Point{X: ring[i], Y: ring[i+1]})
		}
		label.Geometry = annotation.GeometryPolygon
		label.Points = points
		return label
	}

	if len(c.BBox) == 4 {
		x, y, w, h := c.BBox[0], c.BBox[1], c.BBox[2], c.BBox[3]
		label.Geometry = annotation.GeometryBBox
		label.Points = []annotation.Point{
			{X: x, Y: y},
			{X: x + w, Y: y + h},
		}
	}
	return label
}

// uploadPayload is the annotation document posted to the annotate endpoint,
// COCO-style so Roboflow's format sniffing accepts it.
type uploadPayload struct {
	Annotations []uploadLabel `json:"annotations"`
}

type uploadLabel struct {
	Label  string    `json:"label"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Points []float64 `json:"points,omitempty"`
}

func toUploadPayload(labels []annotation.LabelInfo) uploadPayload {
	out := uploadPayload{Annotations: make([]uploadLabel, 0, len(labels))}
	for _, l := range labels {
		if !l.Geometry.Uploadable() || len(l.Points) == 0 {
			continue
		}

		ul := uploadLabel{Label: l.Class}
		switch l.Geometry {
		case annotation.GeometryBBox:
			b := boundsOf(l.Points)
			ul.X = b.XMin
			ul.Y = b.YMin
			ul.Width = b.XMax - b.XMin
			ul.Height = b.YMax - b.YMin
		default:
			for _, p := range l.Points {
				ul.Points = append(ul.Points, p.X, p.Y)
			}
			b := boundsOf(l.Points)
			ul.X = b.XMin
			ul.Y = b.YMin
			ul.Width = b.XMax - b.XMin
			ul.Height = b.YMax - b.YMin
		}
		out.Annotations = append(out.Annotations, ul)
	}
	return out
}

func boundsOf(points []annotation.Point) annotation.BBox {
	b := annotation.BBox{XMin: points[0].X, YMin: points[0].Y, XMax: points[0].X, YMax: points[0].Y}
	for _, p := range points[1:] {
		if p.X < b.XMin {
			b.XMin = p.X
		}
		if p.Y < b.YMin {
			b.YMin = p.Y
		}
		if p.X > b.XMax {
			b.XMax = p.X
		}
		if p.Y > b.YMax {
			b.YMax = p.Y
		}
	}
	return b
}
