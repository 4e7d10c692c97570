// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the draw work a driver consumes each frame.
//
// # Commands
//
// A RenderCommand binds one RenderTarget and one Pipeline and carries
// RenderSubCommands, each with its own attribute map, draw method and
// parameter overrides. A command belongs to the producer that builds it
// until it is pushed to a queue; from then on it belongs to the queue and
// the driver. Commands are not safe for concurrent use.
//
// # Queues
//
// A RenderQueue is static or dynamic. Static queues replay their commands
// every frame: consuming a command moves it to the back. Dynamic queues
// discard consumed commands. Each queue counts committed commands; the
// driver reads the count once at the start of a commit pass and consumes
// exactly that many, so commands pushed during the pass wait for the next
// frame.
//
// QueueSet orders queues by priority for the driver's commit loop.
//
// # Collaborators
//
// RenderTarget, Pipeline and Texture are implemented by drivers.
// PixmapTarget is a CPU target usable with any driver that can read back.
package render
