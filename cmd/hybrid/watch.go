// Copyright (c) 2025 Cubyte.online under the AGPL License

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/tomas-mraz/vulkan-hybrid/render"
	"github.com/tomas-mraz/vulkan-hybrid/scene"
)

// sceneWatcher reports changes of one scene file. Its directory is
// watched since editors often replace files instead of writing them.
type sceneWatcher struct {
	w    *fsnotify.Watcher
	path string
}

func watchScene(path string) (*sceneWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scene watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("scene watcher: %w", err)
	}
	return &sceneWatcher{w: w, path: abs}, nil
}

// changed drains pending events without blocking and reports whether
// the scene file was written or recreated.
func (sw *sceneWatcher) changed() bool {
	changed := false
	for {
		select {
		case ev := <-sw.w.Events:
			if filepath.Clean(ev.Name) == sw.path && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				changed = true
			}
		case err := <-sw.w.Errors:
			slog.Warn(fmt.Sprintf("scene watcher: %v", err))
		default:
			return changed
		}
	}
}

func (sw *sceneWatcher) close() { sw.w.Close() }

// reload loads the scene again and rebuilds it at the current film
// size. A scene that fails to load or validate keeps the old one.
func reload(r *render.Renderer, path string, width, height int) error {
	desc, err := scene.Load(path)
	if err == nil {
		desc.Camera.Width, desc.Camera.Height = width, height
		err = desc.Validate()
	}
	var meshes []*scene.Mesh
	if err == nil {
		meshes, err = desc.LoadMeshes()
	}
	if err != nil {
		slog.Error(fmt.Sprintf("scene %s not reloaded: %v", path, err))
		return nil
	}
	sc, err := r.BuildScene(meshes, desc.Lights, desc.Camera)
	if err != nil {
		if r.Scene() != nil {
			// rejected before anything was released
			slog.Error(fmt.Sprintf("scene %s not reloaded: %v", path, err))
			return nil
		}
		return err
	}
	slog.Info(fmt.Sprintf("scene %s reloaded: %d instances", path, sc.Instances()))
	return nil
}
