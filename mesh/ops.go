package mesh

import (
	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/transaction"
)

// Transaction types enqueued by a Mesh.
const (
	OpAddSubMesh transaction.Type = iota + 1
	OpRemoveSubMesh
	OpAddBuffer
	OpAddBuffers
	OpUpdateBuffer
	OpUpdateBuffers
)

var opNames = [...]string{
	OpAddSubMesh:    "add-submesh",
	OpRemoveSubMesh: "remove-submesh",
	OpAddBuffer:     "add-buffer",
	OpAddBuffers:    "add-buffers",
	OpUpdateBuffer:  "update-buffer",
	OpUpdateBuffers: "update-buffers",
}

// OpName returns the name of a mesh transaction type.
func OpName(t transaction.Type) string {
	if int(t) < len(opNames) && opNames[t] != "" {
		return opNames[t]
	}
	return "unknown"
}

// payload carries the software buffers a transaction refers to. It holds
// a reference on each until the transaction is closed.
type payload struct {
	buffers []buffer.Software
}

func newPayload(bufs []buffer.Software) payload {
	for _, b := range bufs {
		b.Retain()
	}
	return payload{buffers: bufs}
}

// Dispose drops the payload's references.
func (p payload) Dispose() {
	for _, b := range p.buffers {
		b.Release()
	}
}

type tx = transaction.Transaction[payload]

func bufferOp(single, batch transaction.Type, n int) transaction.Type {
	if n == 1 {
		return single
	}
	return batch
}
