package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// testDocument builds a two-root document: a TRS parent with a scaled child, and a node placed
// by matrix. Both reference the same translucent, textured triangle.
func testDocument(t *testing.T) *gltf.Document {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	tex := pngBytes(t, 2, 2, color.RGBA{R: 255, A: 255})
	buf := doc.Buffers[0]
	off := len(buf.Data)
	buf.Data = append(buf.Data, tex...)
	buf.ByteLength = len(buf.Data)
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{Buffer: 0, ByteOffset: off, ByteLength: len(tex)})
	doc.Images = append(doc.Images, &gltf.Image{Name: "base", MimeType: "image/png", BufferView: gltf.Index(len(doc.BufferViews) - 1)})
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(0)})

	metal, rough := 0.25, 0.75
	doc.Materials = []*gltf.Material{{
		Name:        "red",
		AlphaMode:   gltf.AlphaBlend,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &[4]float64{1, 0, 0, 0.5},
			MetallicFactor:   &metal,
			RoughnessFactor:  &rough,
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
		EmissiveFactor: [3]float64{0, 0.5, 0},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]int{gltf.POSITION: pos, gltf.TEXCOORD_0: uv},
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "parent", Translation: [3]float64{1, 2, 3}, Children: []int{1}},
		{Name: "child", Mesh: gltf.Index(0), Scale: [3]float64{2, 2, 2}},
		{Name: "placed", Mesh: gltf.Index(0), Matrix: [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 5, 0, 1}},
	}
	doc.Scenes[0].Nodes = []int{0, 2}
	return doc
}

func TestBuildModel(t *testing.T) {
	root, err := buildModel(testDocument(t), "", "model")
	if err != nil {
		t.Fatalf("buildModel: %v", err)
	}
	if root.Name() != "model" || len(root.Children()) != 2 {
		t.Fatalf("root %q has %d children", root.Name(), len(root.Children()))
	}
	if n := scene.CountKind(root, scene.KindMesh); n != 2 {
		t.Fatalf("mesh count = %d, want 2", n)
	}

	child := scene.FindByName(root, "child")
	if child == nil || child.Scale() != (mgl32.Vec3{2, 2, 2}) {
		t.Fatalf("child = %v", child)
	}
	parent := scene.FindByName(root, "parent")
	if parent.Position() != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("parent position = %v", parent.Position())
	}
	if w := child.WorldMatrix().Col(3); w.Vec3() != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("child world translation = %v", w)
	}
	placed := scene.FindByName(root, "placed")
	if w := placed.WorldMatrix().Col(3); w.Vec3() != (mgl32.Vec3{0, 5, 0}) {
		t.Errorf("matrix node translation = %v", w)
	}

	var meshes []*scene.Mesh
	root.Traverse(func(n scene.Node) {
		if m, ok := n.(*scene.Mesh); ok {
			meshes = append(meshes, m)
		}
	})
	if meshes[0].Material() != meshes[1].Material() {
		t.Error("material not shared between primitives of the same index")
	}
	std, ok := meshes[0].Material().(*material.Standard)
	if !ok {
		t.Fatalf("material = %T", meshes[0].Material())
	}
	if std.Name() != "red" || std.Color() != (mgl32.Vec3{1, 0, 0}) || std.Opacity() != 0.5 {
		t.Errorf("material factors = %q %v %v", std.Name(), std.Color(), std.Opacity())
	}
	if std.Metalness() != 0.25 || std.Roughness() != 0.75 || std.Side() != material.DoubleSide {
		t.Errorf("material params = %v %v %v", std.Metalness(), std.Roughness(), std.Side())
	}
	if std.Emissive() != (mgl32.Vec3{0, 0.5, 0}) {
		t.Errorf("emissive = %v", std.Emissive())
	}
	tex := std.BaseColorMap()
	if tex == nil || tex.Width != 2 || tex.Pixels[0] != 255 || tex.Pixels[1] != 0 {
		t.Fatalf("base color map = %+v", tex)
	}

	g := meshes[0].Geometry()
	if g.VertexCount() != 3 || len(g.Normals) != 3 || len(g.UVs) != 3 {
		t.Errorf("geometry = %d vertices, %d normals, %d uvs", g.VertexCount(), len(g.Normals), len(g.UVs))
	}
	if g.Normals[0] != [3]float32{0, 0, 1} {
		t.Errorf("computed normal = %v", g.Normals[0])
	}
}

func TestBuildModelErrors(t *testing.T) {
	empty := gltf.NewDocument()
	if _, err := buildModel(empty, "", "empty"); err != errNoMeshes {
		t.Errorf("empty document err = %v", err)
	}

	doc := testDocument(t)
	doc.Nodes[1].Children = []int{1}
	if _, err := buildModel(doc, "", "cycle"); err == nil {
		t.Error("cyclic hierarchy accepted")
	}

	doc = testDocument(t)
	doc.Meshes[0].Primitives[0].Attributes = map[string]int{}
	if _, err := buildModel(doc, "", "nopos"); err == nil {
		t.Error("primitive without positions accepted")
	}
}

type syncPoster struct {
	mu    sync.Mutex
	posts int
}

func (p *syncPoster) Post(fn func()) {
	p.mu.Lock()
	p.posts++
	p.mu.Unlock()
	fn()
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoaderModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.glb")
	doc := testDocument(t)
	doc.Scenes[0].Name = ""
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}
	poster := &syncPoster{}
	l := NewLoader(WithPoster(poster), WithWorkers(2), WithLogger(zap.NewNop()))

	var got scene.Node
	h := l.LoadModel(path, func(n scene.Node) { got = n })
	if err := h.Wait(waitCtx(t)); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if got == nil || scene.CountKind(got, scene.KindMesh) != 2 {
		t.Fatalf("model = %v", got)
	}
	if got.Name() != "model" {
		t.Errorf("model name = %q", got.Name())
	}
	if poster.posts != 1 {
		t.Errorf("posts = %d, want 1", poster.posts)
	}
}

func TestLoaderCallbackPanicSettles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.glb")
	if err := gltf.SaveBinary(testDocument(t), path); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}
	l := NewLoader(WithPoster(&syncPoster{}), WithWorkers(1), WithLogger(zap.NewNop()))

	h := l.LoadModel(path, func(scene.Node) { panic("attach failed") })
	if err := h.Wait(waitCtx(t)); !errors.Is(err, errCallbackPanicked) {
		t.Fatalf("Wait = %v, want errCallbackPanicked", err)
	}
}

func TestLoaderFailures(t *testing.T) {
	l := NewLoader(WithWorkers(1))
	dir := t.TempDir()
	called := false

	tests := []struct {
		name string
		load func() *Handle
	}{
		{name: "missing model", load: func() *Handle {
			return l.LoadModel(filepath.Join(dir, "none.glb"), func(scene.Node) { called = true })
		}},
		{name: "unsupported model", load: func() *Handle {
			return l.LoadModel(filepath.Join(dir, "model.obj"), func(scene.Node) { called = true })
		}},
		{name: "missing skybox", load: func() *Handle {
			return l.LoadSkybox(dir, func(*scene.CubeTexture) { called = true })
		}},
		{name: "missing panorama", load: func() *Handle {
			return l.LoadEnvironment(filepath.Join(dir, "none.hdr"), func(*scene.Environment) { called = true })
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.load()
			if err := h.Wait(waitCtx(t)); err == nil {
				t.Fatal("expected an error")
			}
			if h.Err() == nil {
				t.Error("Err() nil after failed load")
			}
		})
	}
	if called {
		t.Error("callback ran for a failed load")
	}
}

func writeFaces(t *testing.T, dir string, size func(i int) int) {
	t.Helper()
	for i, stem := range scene.CubeFaceNames {
		s := size(i)
		data := pngBytes(t, s, s, color.RGBA{B: uint8(i * 40), A: 255})
		if err := os.WriteFile(filepath.Join(dir, stem+".png"), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadSkybox(t *testing.T) {
	dir := t.TempDir()
	writeFaces(t, dir, func(int) int { return 4 })

	var cube *scene.CubeTexture
	h := NewLoader().LoadSkybox(dir, func(c *scene.CubeTexture) { cube = c })
	if err := h.Wait(waitCtx(t)); err != nil {
		t.Fatalf("LoadSkybox: %v", err)
	}
	if cube.Size() != 4 {
		t.Fatalf("size = %d", cube.Size())
	}
	for i, f := range cube.Faces {
		if f.Pixels[2] != uint8(i*40) {
			t.Errorf("face %d blue = %d", i, f.Pixels[2])
		}
	}
}

func TestLoadCubeFacesMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFaces(t, dir, func(i int) int {
		if i == 3 {
			return 8
		}
		return 4
	})
	if _, err := loadCubeFaces(dir); err == nil {
		t.Error("mismatched face sizes accepted")
	}
}

func TestHandleWaitContext(t *testing.T) {
	h := newHandle("pending")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
	if h.Err() != nil {
		t.Error("pending handle reports an error")
	}
	h.settle(nil)
	h.settle(os.ErrNotExist)
	if err := h.Wait(context.Background()); err != nil {
		t.Errorf("second settle overrode the first: %v", err)
	}
}
