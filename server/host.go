package server

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sqlbridge/sqlbridge/dbhost"
	"github.com/sqlbridge/sqlbridge/migrations"
)

// Host dispatches boundary requests onto the connection layer. It owns
// nothing itself: the config and pool are constructed at startup and passed
// in explicitly.
type Host struct {
	cfg  *dbhost.Config
	pool *dbhost.Pool
}

// NewHost creates a dispatcher over the given config and connection pool.
func NewHost(cfg *dbhost.Config, pool *dbhost.Pool) *Host {
	return &Host{cfg: cfg, pool: pool}
}

// HandleRequest processes one serialized request payload and returns a
// serialized response payload. This is the entry point for every message
// transport (WASM host function, pipes, tests); operational failures are
// packaged into the response, never returned as Go errors, so the caller
// always receives a reply.
func (h *Host) HandleRequest(payload []byte) []byte {
	reqID := uuid.NewString()

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return marshalResponse(reqID, nil, dbhost.WrapError(
			dbhost.KindSerialization, err, "failed to unmarshal request"))
	}

	resp, err := h.Dispatch(&req)
	if err != nil {
		log.WithFields(log.Fields{
			"request_id": reqID,
			"command":    req.Command,
		}).WithError(err).Warn("request failed")
	}
	return marshalResponse(reqID, resp, err)
}

// Dispatch routes a decoded request to its command handler.
func (h *Host) Dispatch(req *Request) (interface{}, error) {
	switch req.Command {
	case "load":
		return h.handleLoad(req)
	case "execute":
		return h.handleExecute(req)
	case "select":
		return h.handleSelect(req)
	case "batch":
		return h.handleBatch(req)
	case "sync":
		return h.handleSync(req)
	case "close":
		return h.handleClose(req)
	case "getConfig":
		return h.handleGetConfig(req)
	case "migrate":
		return h.handleMigrate(req)
	case "ping":
		return h.handlePing(req)
	default:
		return nil, dbhost.NewError(dbhost.KindSerialization, "unknown command: %s", req.Command)
	}
}

func marshalResponse(reqID string, resp interface{}, err error) []byte {
	if err != nil {
		resp = ErrorBody{Error: err.Error(), ErrorKind: string(dbhost.KindOf(err))}
	}
	payload, merr := json.Marshal(resp)
	if merr != nil {
		// Can't even marshal the response; fall back to a hardcoded error
		// body so the caller still gets a reply.
		log.WithField("request_id", reqID).WithError(merr).Error("failed to marshal response")
		return []byte(fmt.Sprintf(`{"error":%q,"errorKind":%q}`,
			"failed to marshal response: "+merr.Error(), dbhost.KindSerialization))
	}
	return payload
}

// handleLoad opens (or returns the already-open) connection for the target.
// The target string itself serves as the pool identity; repeat loads with
// different parameters return the existing connection untouched.
func (h *Host) handleLoad(req *Request) (interface{}, error) {
	identity := req.Path
	_, err := h.pool.Open(identity, func() (*dbhost.Connection, error) {
		return dbhost.Connect(h.cfg, dbhost.ConnectOptions{
			Target:     req.Path,
			Encryption: req.Encryption.Config(),
			SyncURL:    req.SyncURL,
			AuthToken:  req.AuthToken,
		})
	})
	if err != nil {
		return nil, err
	}
	return LoadResponse{DB: identity}, nil
}

func (h *Host) handleExecute(req *Request) (interface{}, error) {
	conn, err := h.pool.Get(req.DB)
	if err != nil {
		return nil, err
	}
	result, err := conn.Execute(req.SQL, req.Values)
	if err != nil {
		return nil, err
	}
	return ExecResponse{RowsAffected: result.RowsAffected, LastInsertID: result.LastInsertID}, nil
}

func (h *Host) handleSelect(req *Request) (interface{}, error) {
	conn, err := h.pool.Get(req.DB)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Select(req.SQL, req.Values)
	if err != nil {
		return nil, err
	}
	return SelectResponse{Rows: rows}, nil
}

func (h *Host) handleBatch(req *Request) (interface{}, error) {
	conn, err := h.pool.Get(req.DB)
	if err != nil {
		return nil, err
	}
	if err := conn.Batch(req.Statements); err != nil {
		return nil, err
	}
	return GeneralResponse{}, nil
}

func (h *Host) handleSync(req *Request) (interface{}, error) {
	conn, err := h.pool.Get(req.DB)
	if err != nil {
		return nil, err
	}
	if err := conn.Sync(); err != nil {
		return nil, err
	}
	return GeneralResponse{}, nil
}

// handleClose closes one connection when a target is named, or every
// connection otherwise.
func (h *Host) handleClose(req *Request) (interface{}, error) {
	var closed bool
	if req.DB != "" {
		closed = h.pool.Close(req.DB)
	} else {
		closed = h.pool.CloseAll()
	}
	return CloseResponse{Closed: closed}, nil
}

func (h *Host) handleGetConfig(req *Request) (interface{}, error) {
	return ConfigResponse{EncryptionEnabled: h.cfg.EncryptionEnabled()}, nil
}

// handleMigrate applies the bundled migration set the frontend materialized
// at build time. The migration engine is a client of the query executor, so
// each migration is atomic with respect to failure.
func (h *Host) handleMigrate(req *Request) (interface{}, error) {
	conn, err := h.pool.Get(req.DB)
	if err != nil {
		return nil, err
	}
	applied, err := migrations.Apply(conn, req.Files)
	if err != nil {
		return nil, err
	}
	return MigrateResponse{Applied: applied}, nil
}

// handlePing exists for backwards compatibility with older frontends.
func (h *Host) handlePing(req *Request) (interface{}, error) {
	return PingResponse{Value: req.Value}, nil
}
