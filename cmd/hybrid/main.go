// Copyright (c) 2025 Cubyte.online under the AGPL License

// Command hybrid renders a TOML scene with ray traced G-buffer and
// ambient occlusion, composited in a rasterized pass.
package main

import (
	"log/slog"
	"os"
	"runtime"

	"cogentcore.org/core/base/errors"
	"github.com/urfave/cli"
)

func init() {
	// glfw and the swapchain must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	app := cli.NewApp()
	app.Name = "hybrid"
	app.Usage = "render a scene with ray traced shading and a rasterized composite"
	app.Version = "0.1.0"
	app.ArgsUsage = "scene.toml"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "shaders, s",
			Value: "shaders",
			Usage: "directory with the compiled SPIR-V shaders",
		},
		cli.IntFlag{
			Name:  "width",
			Usage: "frame width, overrides the scene camera",
		},
		cli.IntFlag{
			Name:  "height",
			Usage: "frame height, overrides the scene camera",
		},
		cli.IntFlag{
			Name:  "frames-in-flight",
			Value: 2,
			Usage: "frames submitted ahead of the GPU",
		},
		cli.IntFlag{
			Name:  "frames, n",
			Usage: "stop after this many frames, 0 renders until the window is closed",
		},
		cli.BoolFlag{
			Name:  "offscreen",
			Usage: "start rendering offscreen, O toggles",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "render offscreen without a window, needs --frames",
		},
		cli.BoolFlag{
			Name:  "no-animate",
			Usage: "keep instances in place",
		},
		cli.BoolFlag{
			Name:  "no-ao",
			Usage: "skip the ambient occlusion trace",
		},
		cli.StringFlag{
			Name:  "blue-noise",
			Usage: "PNG used to rotate ambient occlusion rays",
		},
		cli.BoolFlag{
			Name:  "watch",
			Usage: "rebuild the scene when its file changes",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable the vulkan validation layer",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		errors.Log(err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) {
	level := slog.LevelWarn
	if ctx.GlobalBool("v") {
		level = slog.LevelInfo
	}
	if ctx.GlobalBool("vv") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
