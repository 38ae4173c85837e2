package server

// --- JSON structures for boundary communication ---

import (
	"encoding/json"
	"fmt"

	"github.com/sqlbridge/sqlbridge/dbhost"
)

// Request is the envelope for every command crossing the boundary. Only the
// fields a given command uses are populated.
type Request struct {
	Command string `json:"command"`
	// Path names the target database for the load command.
	Path string `json:"path,omitempty"`
	// DB is the identity returned by load, referenced by every later command.
	DB         string          `json:"db,omitempty"`
	SQL        string          `json:"sql,omitempty"`
	Values     []interface{}   `json:"values,omitempty"`
	Statements []string        `json:"statements,omitempty"`
	Encryption *EncryptionSpec `json:"encryption,omitempty"`
	SyncURL    string          `json:"syncUrl,omitempty"`
	AuthToken  string          `json:"authToken,omitempty"`
	// Files carries the bundled migration set for the migrate command.
	Files map[string]string `json:"files,omitempty"`
	// Value is the ping payload.
	Value *string `json:"value,omitempty"`
}

// EncryptionSpec mirrors dbhost.EncryptionConfig with a tolerant key
// encoding, since frontends serialize byte sequences as number arrays.
type EncryptionSpec struct {
	Cipher string    `json:"cipher"`
	Key    ByteSlice `json:"key"`
}

// Config converts the wire form into the core config without validating it;
// validation belongs to the connection builder.
func (e *EncryptionSpec) Config() *dbhost.EncryptionConfig {
	if e == nil {
		return nil
	}
	return &dbhost.EncryptionConfig{Cipher: dbhost.Cipher(e.Cipher), Key: []byte(e.Key)}
}

// ByteSlice decodes from either a JSON number array (what frontends send for
// byte sequences) or a base64 string (Go's native []byte encoding).
type ByteSlice []byte

func (b *ByteSlice) UnmarshalJSON(data []byte) error {
	var nums []float64
	if err := json.Unmarshal(data, &nums); err == nil {
		out := make([]byte, len(nums))
		for i, n := range nums {
			if n != float64(byte(n)) {
				return fmt.Errorf("byte value out of range: %v", n)
			}
			out[i] = byte(n)
		}
		*b = out
		return nil
	}
	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = raw
	return nil
}

func (b ByteSlice) MarshalJSON() ([]byte, error) {
	arr := make([]uint16, len(b))
	for i, v := range b {
		arr[i] = uint16(v)
	}
	return json.Marshal(arr)
}

// ErrorBody carries a failure across the boundary. Kind preserves the
// taxonomy tag so callers can match programmatically instead of parsing the
// message text.
type ErrorBody struct {
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// LoadResponse returns the resolved identity usable in subsequent commands.
type LoadResponse struct {
	DB string `json:"db"`
	ErrorBody
}

// ExecResponse is the result of a mutation statement.
type ExecResponse struct {
	RowsAffected int64 `json:"rowsAffected"`
	LastInsertID int64 `json:"lastInsertId"`
	ErrorBody
}

// SelectResponse carries decoded rows; each row marshals as an object whose
// keys preserve the query's projection order.
type SelectResponse struct {
	Rows []dbhost.Row `json:"rows"`
	ErrorBody
}

// CloseResponse reports whether any connection was closed.
type CloseResponse struct {
	Closed bool `json:"closed"`
	ErrorBody
}

// ConfigResponse describes host configuration the frontend may inspect.
type ConfigResponse struct {
	EncryptionEnabled bool `json:"encryptionEnabled"`
	ErrorBody
}

// MigrateResponse lists the migrations applied by this invocation.
type MigrateResponse struct {
	Applied []string `json:"applied"`
	ErrorBody
}

// PingResponse echoes the ping payload.
type PingResponse struct {
	Value *string `json:"value,omitempty"`
	ErrorBody
}

// GeneralResponse is used by commands with no payload (batch, sync).
type GeneralResponse struct {
	ErrorBody
}
