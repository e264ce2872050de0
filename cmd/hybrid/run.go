// Copyright (c) 2025 Cubyte.online under the AGPL License

package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/tomas-mraz/vulkan"
	"github.com/urfave/cli"

	asch "github.com/tomas-mraz/vulkan-hybrid"
	"github.com/tomas-mraz/vulkan-hybrid/gpu"
	"github.com/tomas-mraz/vulkan-hybrid/render"
	"github.com/tomas-mraz/vulkan-hybrid/scene"
)

// run loads the scene, opens the device and renders until the window
// is closed or the frame count is reached.
func run(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}
	desc, err := scene.Load(ctx.Args().First())
	if err != nil {
		return err
	}
	if w := ctx.Int("width"); w > 0 {
		desc.Camera.Width = w
	}
	if h := ctx.Int("height"); h > 0 {
		desc.Camera.Height = h
	}
	if err := desc.Validate(); err != nil {
		return err
	}
	meshes, err := desc.LoadMeshes()
	if err != nil {
		return err
	}
	shaders, err := render.LoadShaders(ctx.String("shaders"))
	if err != nil {
		return err
	}

	frames := ctx.Int("frames")
	headless := ctx.Bool("headless")
	if headless && frames <= 0 {
		return errors.New("--headless needs a positive --frames")
	}

	cfg := asch.DeviceConfig{AppName: "hybrid", Debug: ctx.Bool("debug")}
	var win *window
	if headless {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return fmt.Errorf("vulkan loader: %w", err)
		}
		if err := vk.Init(); err != nil {
			return fmt.Errorf("vulkan init: %w", err)
		}
	} else {
		if win, err = openWindow(desc.Camera.Width, desc.Camera.Height); err != nil {
			return err
		}
		defer win.close()
		cfg.InstanceExtensions = win.GetRequiredInstanceExtensions()
		cfg.CreateSurface = win.createSurface
	}

	dev, err := asch.NewDevice(cfg)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	var target gpu.Target
	if win != nil {
		sf, err := asch.NewSurface(dev, desc.Camera.Width, desc.Camera.Height)
		if err != nil {
			return err
		}
		defer sf.Destroy()
		target = sf
		// the surface may not honor the requested window size
		desc.Camera.Width, desc.Camera.Height = sf.Size()
	}

	opts := render.DefaultOptions()
	opts.FramesInFlight = ctx.Int("frames-in-flight")
	opts.Animate = !ctx.Bool("no-animate")
	opts.AO = !ctx.Bool("no-ao")
	opts.Noise = scene.LoadNoise(ctx.String("blue-noise"))
	r := render.New(dev, target, shaders, opts)
	defer r.Close()

	sc, err := r.BuildScene(meshes, desc.Lights, desc.Camera)
	if err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("scene %s: %d instances, %dx%d", desc.Path, sc.Instances(), desc.Camera.Width, desc.Camera.Height))

	var stats frameStats
	defer func() {
		if stats.frames() == 0 {
			return
		}
		var buf bytes.Buffer
		stats.render(&buf)
		fmt.Printf("frame statistics\n%s", buf.String())
	}()

	if win == nil {
		for range frames {
			ms, err := r.RenderFrame(false)
			if err != nil {
				return err
			}
			stats.add(false, ms)
		}
		return nil
	}

	var sw *sceneWatcher
	if ctx.Bool("watch") {
		if sw, err = watchScene(desc.Path); err != nil {
			return err
		}
		defer sw.close()
	}

	in := &controls{r: r, onscreen: !ctx.Bool("offscreen"), blur: opts.Blur}
	in.attach(win)
	for !win.ShouldClose() && (frames <= 0 || stats.frames() < frames) {
		glfw.PollEvents()
		if in.err != nil {
			return in.err
		}
		if sw != nil && sw.changed() {
			if err := reload(r, desc.Path, desc.Camera.Width, desc.Camera.Height); err != nil {
				return err
			}
		}
		onscreen := in.onscreen
		ms, err := r.RenderFrame(onscreen)
		if err != nil {
			return err
		}
		stats.add(onscreen, ms)
	}
	return nil
}
