package media

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FaceBox is a normalized bounding box in [0,1] image coordinates,
// produced by an external detector.
type FaceBox struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// CenterX returns the normalized horizontal center of the box
func (b FaceBox) CenterX() float64 { return b.X + b.W/2 }

// CenterY returns the normalized vertical center of the box
func (b FaceBox) CenterY() float64 { return b.Y + b.H/2 }

// Rotate maps the box into item-local orientation for a 90-degree
// multiple. Done once at timeline build so per-frame code never rotates.
func (b FaceBox) Rotate(rot Rotation) FaceBox {
	switch rot {
	case Rotate90:
		return FaceBox{X: 1 - b.Y - b.H, Y: b.X, W: b.H, H: b.W}
	case Rotate180:
		return FaceBox{X: 1 - b.X - b.W, Y: 1 - b.Y - b.H, W: b.W, H: b.H}
	case Rotate270:
		return FaceBox{X: b.Y, Y: 1 - b.X - b.W, W: b.H, H: b.W}
	}
	return b
}

// FaceFile maps item source paths to pre-detected face boxes
type FaceFile struct {
	Faces map[string][]FaceBox `yaml:"faces"`
}

// LoadFaceFile reads a face-box sidecar file. A missing path yields an
// empty map, not an error: faces are an optional input.
func LoadFaceFile(path string) (*FaceFile, error) {
	ff := &FaceFile{Faces: make(map[string][]FaceBox)}
	if path == "" {
		return ff, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ff, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, ff); err != nil {
		return nil, err
	}
	if ff.Faces == nil {
		ff.Faces = make(map[string][]FaceBox)
	}
	return ff, nil
}

// For returns the boxes recorded for a source path
func (f *FaceFile) For(path string) []FaceBox {
	return f.Faces[path]
}
