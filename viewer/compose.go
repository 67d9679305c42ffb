package viewer

import (
	_ "embed"
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/camera"
	"github.com/Carmen-Shannon/oxy-viewer/engine/geometry"
	"github.com/Carmen-Shannon/oxy-viewer/engine/light"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader"
	"github.com/Carmen-Shannon/oxy-viewer/engine/logger"
	"github.com/Carmen-Shannon/oxy-viewer/engine/material"
	"github.com/Carmen-Shannon/oxy-viewer/engine/probe"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
)

var (
	//go:embed shaders/pulse.vert
	pulseVertexSource string

	//go:embed shaders/pulse.frag
	pulseFragmentSource string
)

var errMissingCollaborator = errors.New("compose: a renderer and a loader are required")

// Scene constants.
const (
	AmbientIntensity float32 = 0.4

	LightIntensity float32 = 1.5
	LightDistance  float32 = 50

	GroundRadius   float32 = 10
	GroundSegments         = 64

	CubeSize   float32 = 1
	CubeHeight float32 = 1

	FogNear float32 = 10
	FogFar  float32 = 40

	Exposure float32 = 1
)

var (
	// BackgroundColor is drawn until the skybox arrives and is the fog color.
	BackgroundColor = common.Color3{0.08, 0.09, 0.12}

	// PulseColor is the base color of the animated cube.
	PulseColor = common.Color3{0.2, 0.6, 1.0}

	groundColor = common.Color3{0.42, 0.44, 0.46}
)

// Shadow bias per backend.
var (
	wgpuShadowBias = shadowBias{Bias: -0.0005, NormalBias: 0.02}
	glShadowBias   = shadowBias{Bias: -0.001, NormalBias: 0}
)

type shadowBias struct {
	Bias       float32
	NormalBias float32
}

func biasFor(k renderer.Kind) shadowBias {
	if k == renderer.KindWGPU {
		return wgpuShadowBias
	}
	return glShadowBias
}

// Loads holds the handles of the asynchronous asset loads started by Compose.
type Loads struct {
	Model       *loader.Handle
	Skybox      *loader.Handle
	Environment *loader.Handle
}

// All returns the handles in model, skybox, environment order.
func (l Loads) All() []*loader.Handle {
	return []*loader.Handle{l.Model, l.Skybox, l.Environment}
}

// State is everything the frame driver mutates. Every field is owned by the main thread.
type State struct {
	Scene    scene.Scene
	Camera   camera.Camera
	Controls camera.CameraController
	Renderer renderer.Renderer
	Profile  probe.PerformanceProfile

	Ambient *light.Ambient
	Light   *light.Point
	Ground  *scene.Mesh
	Cube    *scene.Mesh

	// Animated drives the cube material. Its mode is fixed once Compose returns.
	Animated material.Animated

	// Model is the loaded model root, nil until the model load completes.
	Model scene.Node

	Loads Loads

	lastElapsed float64
	logger      *zap.Logger
}

// Compose builds the scene graph once: lights, ground, the animated cube, fog and tone mapping
// synchronously, and the model, skybox and environment asynchronously through ld. Completion
// callbacks run on the loader's poster and attach their result to the scene.
//
// Parameters:
//   - r: the active renderer; its kind selects the cube material and shadow bias
//   - profile: the device performance profile
//   - assets: where the asynchronous loads read from
//   - ld: the asset loader
//   - l: the logger
//
// Returns:
//   - *State: the frame driver state
//   - error: errMissingCollaborator if r or ld is nil
func Compose(r renderer.Renderer, profile probe.PerformanceProfile, assets Assets, ld loader.Loader, l *zap.Logger) (*State, error) {
	if r == nil || ld == nil {
		return nil, errMissingCollaborator
	}
	if l == nil {
		l = logger.Log
	}
	shadows := profile.ShadowsEnabled

	sc := scene.NewScene(
		scene.WithName("viewer"),
		scene.WithBackgroundColor(BackgroundColor),
	)

	controls := camera.NewCameraController(
		camera.WithRadius(6),
		camera.WithAzimuth(0.6),
		camera.WithElevation(0.35),
		camera.WithTarget(mgl32.Vec3{0, 0.75, 0}),
		camera.WithRadiusBounds(2, 25),
		camera.WithElevationBounds(-0.05, 1.45),
		camera.WithMouseSensitivity(0.005),
		camera.WithZoomSpeed(0.5),
		camera.WithOrbitSpeed(0.15),
		camera.WithDamping(0.1),
	)
	cam := camera.NewCamera(
		camera.WithFov(float32(60*math.Pi/180)),
		camera.WithNear(0.1),
		camera.WithFar(200),
		camera.WithController(controls),
	)

	s := &State{
		Scene:    sc,
		Camera:   cam,
		Controls: controls,
		Renderer: r,
		Profile:  profile,
		logger:   l,
	}

	s.Ambient = light.NewAmbient(common.Color3{1, 1, 1}, AmbientIntensity)

	shadow := light.DefaultShadow()
	shadow.MapSize = profile.ShadowMapSize
	bias := biasFor(r.Kind())
	shadow.Bias = bias.Bias
	shadow.NormalBias = bias.NormalBias
	start := LightPosition(0)
	s.Light = light.NewPoint(
		light.WithColor(common.Color3{1, 1, 1}),
		light.WithIntensity(LightIntensity),
		light.WithDistance(LightDistance),
		light.WithPosition(start[0], start[1], start[2]),
		light.WithCastShadow(shadows),
		light.WithShadow(shadow),
	)

	s.Ground = scene.NewMesh("ground", geometry.NewDisk(GroundRadius, GroundSegments), material.NewStandard(
		material.WithName("ground"),
		material.WithColor(groundColor),
		material.WithRoughness(0.9),
	))
	s.Ground.SetRotation(mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0}))
	s.Ground.SetCastShadow(false)
	s.Ground.SetReceiveShadow(shadows)

	s.Animated = cubeMaterial(r, l)
	s.Cube = scene.NewMesh("cube", geometry.NewBox(CubeSize, CubeSize, CubeSize), s.Animated.Material())
	s.Cube.SetPosition(mgl32.Vec3{0, CubeHeight, 0})
	s.Cube.SetCastShadow(shadows)
	s.Cube.SetReceiveShadow(shadows)

	sc.Add(s.Ambient, s.Light, s.Ground, s.Cube)

	if profile.FogEnabled {
		sc.SetFog(&scene.Fog{Color: BackgroundColor, Near: FogNear, Far: FogFar})
	}
	if profile.PostProcessingEnabled {
		sc.SetToneMapping(scene.ToneMappingACES, Exposure)
	} else {
		sc.SetToneMapping(scene.ToneMappingLinear, Exposure)
	}

	s.Loads.Model = ld.LoadModel(assets.Model, func(model scene.Node) {
		scene.SetShadowsRecursive(model, shadows, shadows)
		sc.Add(model)
		s.Model = model
	})
	s.Loads.Skybox = ld.LoadSkybox(assets.Skybox, func(cube *scene.CubeTexture) {
		bg := sc.Background()
		bg.Cube = cube
		sc.SetBackground(bg)
	})
	s.Loads.Environment = ld.LoadEnvironment(assets.Environment, func(env *scene.Environment) {
		sc.SetEnvironment(env)
	})

	l.Info("scene composed",
		zap.Stringer("backend", r.Kind()),
		zap.Stringer("cubeMaterial", s.Animated.Mode()),
		zap.Bool("shadows", shadows),
		zap.Bool("fog", profile.FogEnabled),
		zap.Stringer("toneMapping", sc.ToneMapping()),
	)
	return s, nil
}

// cubeMaterial picks the cube's animation path. OpenGL gets the embedded pulse shader, compiled
// up front so a driver rejection can still fall back; WebGPU and failed compiles get the native
// pulse.
func cubeMaterial(r renderer.Renderer, l *zap.Logger) material.Animated {
	if r.Kind() == renderer.KindGL {
		sh, err := material.NewShader(pulseVertexSource, pulseFragmentSource,
			material.WithShaderName("pulse"),
			material.WithUniform(material.TimeUniform, float32(0)),
			material.WithUniform("color", mgl32.Vec3(PulseColor)),
		)
		if err == nil {
			err = r.Compile(sh)
		}
		if err == nil {
			return material.NewShaderDriven(sh)
		}
		l.Warn("pulse shader unavailable, using native pulse material", zap.Error(err))
	}
	return material.NewNativePulse(material.NewStandard(
		material.WithName("pulse"),
		material.WithColor(PulseColor),
		material.WithEmissive(PulseColor, material.PulseIntensity(0)),
		material.WithMetalness(0.1),
		material.WithRoughness(0.35),
	))
}
