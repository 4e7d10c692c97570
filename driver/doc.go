// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package driver runs frames on a rendering backend.
//
// A Backend implements one GPU API. It creates resources
// (ResourceFactory) and executes render commands (CommandExecutor).
// Backends register themselves by name on import:
//
//	import _ "github.com/gogpu/engine/driver/software"
//	import _ "github.com/gogpu/engine/driver/wgpu"
//
// Driver wraps a Backend and orchestrates a frame: it applies pending
// mesh cache transactions within the frame budget, prepares targets,
// commits every render queue in priority order and presents.
//
// Resource creation never fails loudly. MakeBuffer, MakeShader and
// MakeTexture return nil and report the cause on the notification
// channel; callers fall back as they see fit.
package driver
