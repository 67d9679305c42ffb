package loader

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/geometry"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

// maxNodeDepth bounds recursion through malformed, cyclic node hierarchies.
const maxNodeDepth = 64

var errNoMeshes = errors.New("gltf: document has no triangle meshes")

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
type gltfLoaderBackend struct{}

var _ loaderBackend = &gltfLoaderBackend{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() loaderBackend {
	return &gltfLoaderBackend{}
}

func (b *gltfLoaderBackend) Load(path string) (scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return buildModel(doc, filepath.Dir(path), gltfModelName(doc, path))
}

// gltfModelName prefers the default scene's name and falls back to the file stem.
func gltfModelName(doc *gltf.Document, path string) string {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) && doc.Scenes[*doc.Scene].Name != "" {
		return doc.Scenes[*doc.Scene].Name
	}
	if path == "" {
		return "model"
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// gltfBuilder converts one document, sharing materials and textures between primitives.
type gltfBuilder struct {
	doc        *gltf.Document
	baseDir    string
	materials  map[int]material.Material
	textures   map[int]*common.TextureStagingData
	defaultMat *material.Standard
}

// buildModel converts a decoded glTF document into a scene subgraph rooted at a group named
// name. Node transforms, triangle primitives, metallic/roughness material factors and
// base-color textures are carried over.
//
// Parameters:
//   - doc: the decoded document with its buffers loaded
//   - baseDir: directory for resolving relative image URIs
//   - name: the name of the returned root
//
// Returns:
//   - scene.Node: the model root
//   - error: an error if an accessor cannot be read or no triangle mesh was produced
func buildModel(doc *gltf.Document, baseDir, name string) (scene.Node, error) {
	b := &gltfBuilder{
		doc:       doc,
		baseDir:   baseDir,
		materials: make(map[int]material.Material),
		textures:  make(map[int]*common.TextureStagingData),
	}

	root := scene.NewGroup(name)
	for _, idx := range b.rootNodes() {
		n, err := b.node(idx, 0)
		if err != nil {
			return nil, err
		}
		root.Add(n)
	}
	if scene.CountKind(root, scene.KindMesh) == 0 {
		return nil, errNoMeshes
	}
	return root, nil
}

// rootNodes returns the default scene's nodes, or every parentless node without scenes.
func (b *gltfBuilder) rootNodes() []int {
	if len(b.doc.Scenes) > 0 {
		sc := 0
		if b.doc.Scene != nil && *b.doc.Scene < len(b.doc.Scenes) {
			sc = *b.doc.Scene
		}
		return b.doc.Scenes[sc].Nodes
	}
	child := make(map[int]bool)
	for _, n := range b.doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var roots []int
	for i := range b.doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (b *gltfBuilder) node(idx, depth int) (scene.Node, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("gltf: node index %d out of range", idx)
	}
	if depth > maxNodeDepth {
		return nil, fmt.Errorf("gltf: node hierarchy deeper than %d", maxNodeDepth)
	}
	gn := b.doc.Nodes[idx]
	name := gn.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}

	n := scene.NewGroup(name)
	applyTransform(n, gn)

	if gn.Mesh != nil {
		if err := b.mesh(n, *gn.Mesh); err != nil {
			return nil, err
		}
	}
	for _, c := range gn.Children {
		child, err := b.node(c, depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

var identity16 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// applyTransform copies a node's matrix, or its TRS when no matrix is given.
func applyTransform(n scene.Node, gn *gltf.Node) {
	if gn.Matrix != ([16]float64{}) && gn.Matrix != identity16 {
		var m mgl32.Mat4
		for i, v := range gn.Matrix {
			m[i] = float32(v)
		}
		n.SetMatrix(m)
		return
	}
	t := gn.Translation
	n.SetPosition(mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])})
	if r := gn.Rotation; r != ([4]float64{}) {
		n.SetRotation(mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Normalize())
	}
	if s := gn.Scale; s != ([3]float64{}) {
		n.SetScale(mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])})
	}
}

// mesh attaches one scene mesh per triangle primitive to parent.
func (b *gltfBuilder) mesh(parent scene.Node, idx int) error {
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return fmt.Errorf("gltf: mesh index %d out of range", idx)
	}
	gm := b.doc.Meshes[idx]
	base := gm.Name
	if base == "" {
		base = fmt.Sprintf("mesh_%d", idx)
	}
	for i, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		name := base
		if len(gm.Primitives) > 1 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		g, err := b.geometry(name, prim)
		if err != nil {
			return fmt.Errorf("gltf: mesh %q: %w", name, err)
		}
		mat, err := b.material(prim.Material)
		if err != nil {
			return err
		}
		parent.Add(scene.NewMesh(name, g, mat))
	}
	return nil
}

func (b *gltfBuilder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return b.doc.Accessors[idx], nil
}

func (b *gltfBuilder) geometry(name string, prim *gltf.Primitive) (*geometry.Geometry, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("no POSITION attribute")
	}
	acr, err := b.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	g := &geometry.Geometry{Name: name}
	if g.Positions, err = modeler.ReadPosition(b.doc, acr, nil); err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acr, err = b.accessor(idx); err != nil {
			return nil, err
		}
		if g.Normals, err = modeler.ReadNormal(b.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = b.accessor(idx); err != nil {
			return nil, err
		}
		if g.UVs, err = modeler.ReadTextureCoord(b.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read uvs: %w", err)
		}
	}
	if prim.Indices != nil {
		if acr, err = b.accessor(*prim.Indices); err != nil {
			return nil, err
		}
		if g.Indices, err = modeler.ReadIndices(b.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	}

	g.EnsureIndices()
	if len(g.Normals) == 0 {
		g.ComputeNormals()
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// material converts a glTF material once per index. Primitives without a material share a
// white default.
func (b *gltfBuilder) material(idx *int) (material.Material, error) {
	if idx == nil {
		if b.defaultMat == nil {
			b.defaultMat = material.NewStandard(material.WithName("default"))
		}
		return b.defaultMat, nil
	}
	if m, ok := b.materials[*idx]; ok {
		return m, nil
	}
	if *idx < 0 || *idx >= len(b.doc.Materials) {
		return nil, fmt.Errorf("gltf: material index %d out of range", *idx)
	}
	gm := b.doc.Materials[*idx]

	opts := []material.StandardBuilderOption{material.WithName(gm.Name)}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		c := pbr.BaseColorFactorOrDefault()
		opts = append(opts,
			material.WithColor(common.Color3{float32(c[0]), float32(c[1]), float32(c[2])}),
			material.WithMetalness(float32(pbr.MetallicFactorOrDefault())),
			material.WithRoughness(float32(pbr.RoughnessFactorOrDefault())),
		)
		if gm.AlphaMode == gltf.AlphaBlend {
			opts = append(opts, material.WithOpacity(float32(c[3])))
		}
		if pbr.BaseColorTexture != nil {
			tex, err := b.texture(pbr.BaseColorTexture.Index)
			if err != nil {
				return nil, fmt.Errorf("gltf: material %q: %w", gm.Name, err)
			}
			opts = append(opts, material.WithBaseColorMap(tex))
		}
	}
	if e := gm.EmissiveFactor; e != ([3]float64{}) {
		opts = append(opts, material.WithEmissive(common.Color3{float32(e[0]), float32(e[1]), float32(e[2])}, 1))
	}
	if gm.DoubleSided {
		opts = append(opts, material.WithSide(material.DoubleSide))
	}

	m := material.NewStandard(opts...)
	b.materials[*idx] = m
	return m, nil
}

// texture decodes the image behind a texture index from a buffer view, a data URI or a file
// next to the model.
func (b *gltfBuilder) texture(idx int) (*common.TextureStagingData, error) {
	if t, ok := b.textures[idx]; ok {
		return t, nil
	}
	if idx < 0 || idx >= len(b.doc.Textures) || b.doc.Textures[idx].Source == nil {
		return nil, fmt.Errorf("texture %d has no image", idx)
	}
	src := *b.doc.Textures[idx].Source
	if src < 0 || src >= len(b.doc.Images) {
		return nil, fmt.Errorf("texture %d references missing image %d", idx, src)
	}
	img := b.doc.Images[src]

	imported := &common.ImportedTexture{Name: img.Name, MimeType: img.MimeType}
	switch {
	case img.BufferView != nil:
		data, err := b.bufferView(*img.BufferView)
		if err != nil {
			return nil, err
		}
		imported.Data = data
	case img.IsEmbeddedResource():
		data, err := img.MarshalData()
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", src, err)
		}
		imported.Data = data
	case img.URI != "":
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			uri = img.URI
		}
		imported.Path = filepath.Join(b.baseDir, filepath.FromSlash(uri))
	}

	staging, err := imported.Decode()
	if err != nil {
		return nil, err
	}
	b.textures[idx] = &staging
	return &staging, nil
}

func (b *gltfBuilder) bufferView(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(b.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", idx)
	}
	bv := b.doc.BufferViews[idx]
	if bv.Buffer < 0 || bv.Buffer >= len(b.doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d references missing buffer %d", idx, bv.Buffer)
	}
	data := b.doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d exceeds buffer %d", idx, bv.Buffer)
	}
	return data[bv.ByteOffset:end], nil
}
