package stream

import "github.com/san-kum/axis/internal/scene"

const (
	TypeScene   = "scene"
	TypeFrame   = "frame"
	TypeDispose = "dispose"

	TypeKey    = "key"
	TypeKeyUp  = "keyup"
	TypeOrbit  = "orbit"
	TypeReset  = "reset"
	TypePause  = "pause"
	TypeStatus = "status"
)

type NodeMsg struct {
	ID       int64           `json:"id"`
	Parent   int64           `json:"parent"`
	Name     string          `json:"name,omitempty"`
	Position [3]float64      `json:"position"`
	Rotation [4]float64      `json:"quaternion"`
	Geometry *scene.Geometry `json:"geometry,omitempty"`
	Material *scene.Material `json:"material,omitempty"`
}

type CameraMsg struct {
	FOV      float64    `json:"fov"`
	Aspect   float64    `json:"aspect"`
	Near     float64    `json:"near"`
	Far      float64    `json:"far"`
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
}

// SceneMsg describes the whole node tree. It is sent once per attach and
// again after a resize.
type SceneMsg struct {
	Type       string        `json:"type"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Background scene.Color   `json:"background"`
	Lights     []scene.Light `json:"lights"`
	Nodes      []NodeMsg     `json:"nodes"`
}

type PoseMsg struct {
	ID       int64      `json:"id"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"quaternion"`
}

// FrameMsg carries the poses of the top-level groups and the camera.
type FrameMsg struct {
	Type   string    `json:"type"`
	Seq    uint64    `json:"seq"`
	Poses  []PoseMsg `json:"poses"`
	Camera CameraMsg `json:"camera"`
}

// Inbound is any message a client sends.
type Inbound struct {
	Type   string  `json:"type"`
	Key    string  `json:"key,omitempty"`
	DTheta float64 `json:"dTheta,omitempty"`
	DPhi   float64 `json:"dPhi,omitempty"`
	Zoom   float64 `json:"zoom,omitempty"`
	Paused *bool   `json:"paused,omitempty"`
}

type StatusMsg struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func nodeMsg(n *scene.Node) NodeMsg {
	m := NodeMsg{
		ID:       n.ID,
		Name:     n.Name,
		Position: [3]float64(n.Position),
		Rotation: n.Quaternion(),
		Geometry: n.Geometry,
		Material: n.Material,
	}
	if p := n.Parent(); p != nil {
		m.Parent = p.ID
	}
	return m
}

func sceneMsg(s *scene.Scene, w, h int) SceneMsg {
	msg := SceneMsg{
		Type:       TypeScene,
		Width:      w,
		Height:     h,
		Background: s.Background,
		Lights:     s.Lights,
	}
	s.Root.Traverse(func(n *scene.Node) {
		if n == s.Root {
			return
		}
		msg.Nodes = append(msg.Nodes, nodeMsg(n))
	})
	return msg
}

func frameMsg(seq uint64, s *scene.Scene, c *scene.Camera) FrameMsg {
	msg := FrameMsg{
		Type:  TypeFrame,
		Seq:   seq,
		Poses: make([]PoseMsg, 0, len(s.Root.Children)),
		Camera: CameraMsg{
			FOV:      c.FOV,
			Aspect:   c.Aspect,
			Near:     c.Near,
			Far:      c.Far,
			Position: [3]float64(c.Position),
			Target:   [3]float64(c.Target),
		},
	}
	for _, n := range s.Root.Children {
		msg.Poses = append(msg.Poses, PoseMsg{ID: n.ID, Position: [3]float64(n.Position), Rotation: n.Quaternion()})
	}
	return msg
}
