// Package wasihost exposes the boundary dispatcher to sandboxed WASM guests
// as a wazero host module. Guests export alloc_bytes/free_bytes for buffer
// handoff and import env.sqlbridge_request to issue serialized requests; the
// guest side never sees a filesystem or a network socket.
package wasihost

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/sqlbridge/sqlbridge/server"
)

// Register instantiates the "env" host module on r, routing every
// sqlbridge_request call through h.
func Register(ctx context.Context, r wazero.Runtime, h *server.Host) error {
	_, err := r.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(requestHandler(h)).Export("sqlbridge_request").
		Instantiate(ctx)
	return err
}

// requestHandler reads the request payload out of guest memory, dispatches
// it, and writes the response back through the guest's allocator. The
// returned value is the byte handle of the response buffer; the guest frees
// it with free_bytes once consumed.
func requestHandler(h *server.Host) func(ctx context.Context, m api.Module, reqOffset, reqByteCount uint32) uint64 {
	return func(ctx context.Context, m api.Module, reqOffset, reqByteCount uint32) uint64 {
		request, ok := m.Memory().Read(reqOffset, reqByteCount)
		if !ok {
			log.WithFields(log.Fields{
				"offset": reqOffset,
				"count":  reqByteCount,
			}).Error("guest request out of memory range")
			return 0
		}

		response := h.HandleRequest(request)

		handle, err := writeBytes(ctx, m, response)
		if err != nil {
			log.WithError(err).Error("failed to write response into guest memory")
			return 0
		}
		return uint64(handle)
	}
}

// writeBytes allocates a guest buffer via the exported alloc_bytes and copies
// data into it, returning the guest-side handle. alloc_bytes packs the handle
// in the high 32 bits of its result and the buffer address in the low 32.
func writeBytes(ctx context.Context, m api.Module, data []byte) (uint32, error) {
	alloc := m.ExportedFunction("alloc_bytes")
	result, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, err
	}
	handle := uint32(result[0] >> 32)
	ptr := uint32(result[0])

	if !m.Memory().Write(ptr, data) {
		free := m.ExportedFunction("free_bytes")
		free.Call(ctx, uint64(handle))
		return 0, errors.New("guest memory write out of range")
	}
	return handle, nil
}
