package dbhost

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// QueryResult is produced by mutation statements.
type QueryResult struct {
	RowsAffected int64 `json:"rowsAffected"`
	LastInsertID int64 `json:"lastInsertId"`
}

// Row is an ordered mapping from column name to a JSON-compatible value.
// Order is identical to the query's projection order; downstream consumers
// rely on positional correspondence, which is why this is not a plain map.
type Row struct {
	Columns []string
	Values  []interface{}
}

// MarshalJSON emits a JSON object whose keys appear in projection order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value of the named column.
func (r Row) Get(column string) (interface{}, bool) {
	for i, col := range r.Columns {
		if col == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Execute runs a single mutation statement with positional parameters.
func (c *Connection) Execute(query string, values []interface{}) (QueryResult, error) {
	args, err := bindValues(values)
	if err != nil {
		return QueryResult{}, err
	}

	res, err := c.DB().Exec(query, args...)
	if err != nil {
		return QueryResult{}, mapEngineError(err)
	}

	// SQLite always reports both; failures here are engine quirks and are
	// folded into zero values as the drivers themselves document.
	rowsAffected, _ := res.RowsAffected()
	lastInsertID, _ := res.LastInsertId()

	return QueryResult{RowsAffected: rowsAffected, LastInsertID: lastInsertID}, nil
}

// Select runs a single read statement with positional parameters and decodes
// every result row, preserving column order. The cursor is always iterated to
// completion; the returned slice is finite and independent of the connection.
func (c *Connection) Select(query string, values []interface{}) ([]Row, error) {
	args, err := bindValues(values)
	if err != nil {
		return nil, err
	}

	rows, err := c.DB().Query(query, args...)
	if err != nil {
		return nil, mapEngineError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, mapEngineError(err)
	}

	results := []Row{}
	for rows.Next() {
		raw := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapEngineError(err)
		}

		decoded := make([]interface{}, len(columns))
		for i, v := range raw {
			decoded[i], err = decodeValue(v)
			if err != nil {
				return nil, err
			}
		}
		results = append(results, Row{Columns: columns, Values: decoded})
	}
	if err := rows.Err(); err != nil {
		return nil, mapEngineError(err)
	}

	return results, nil
}

// Batch executes statements atomically inside an explicit transaction.
// Statements must not carry positional parameters. The engine's own batch
// primitive does not reliably route writes through the replica write path, so
// single-statement executes wrapped in explicit BEGIN/COMMIT are used for
// every connection mode to keep one code path.
//
// On any failure a best-effort ROLLBACK is attempted; its own failure is
// logged and discarded in favor of the original error.
func (c *Connection) Batch(statements []string) error {
	ctx := context.Background()

	// Pin a single engine connection so BEGIN, the statements, and COMMIT
	// all run on the same session rather than on arbitrary pool members.
	conn, err := c.DB().Connx(ctx)
	if err != nil {
		return mapEngineError(err)
	}
	defer conn.Close()

	exec := func(stmt string) error {
		_, err := conn.ExecContext(ctx, stmt)
		return err
	}

	if err := exec("BEGIN"); err != nil {
		return mapEngineError(err)
	}

	rollback := func() {
		if rbErr := exec("ROLLBACK"); rbErr != nil {
			log.WithError(rbErr).Warn("batch rollback failed")
		}
	}

	for _, stmt := range statements {
		if err := exec(stmt); err != nil {
			rollback()
			return mapEngineError(err)
		}
	}

	if err := exec("COMMIT"); err != nil {
		rollback()
		return mapEngineError(err)
	}
	return nil
}

// bindValues converts JSON-decoded parameter values into engine-native types:
// nil stays NULL, booleans become 0/1 integers, integral numbers become
// integers and the rest reals, strings stay text, an array made entirely of
// small integers becomes a blob, and any other composite is re-encoded as
// JSON text. Anything else is an unsupported-datatype error.
func bindValues(values []interface{}) ([]interface{}, error) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		bound, err := bindValue(v)
		if err != nil {
			return nil, err
		}
		args[i] = bound
	}
	return args, nil
}

func bindValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) &&
			val >= math.MinInt64 && val <= math.MaxInt64 {
			return int64(val), nil
		}
		return val, nil
	case float32:
		return bindValue(float64(val))
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, NewError(KindUnsupportedDatatype, "invalid number %q", val.String())
		}
		return f, nil
	case string:
		return val, nil
	case []byte:
		return val, nil
	case []interface{}:
		if blob, ok := asBlob(val); ok {
			return blob, nil
		}
		return jsonFallback(v)
	case map[string]interface{}:
		return jsonFallback(v)
	default:
		return nil, NewError(KindUnsupportedDatatype, "%T", v)
	}
}

// asBlob converts an array into a byte sequence when every element is an
// integer in the 0..255 range.
func asBlob(arr []interface{}) ([]byte, bool) {
	blob := make([]byte, len(arr))
	for i, elem := range arr {
		var f float64
		switch n := elem.(type) {
		case float64:
			f = n
		case int64:
			f = float64(n)
		case int:
			f = float64(n)
		default:
			return nil, false
		}
		if f != math.Trunc(f) || f < 0 || f > 255 {
			return nil, false
		}
		blob[i] = byte(f)
	}
	return blob, true
}

func jsonFallback(v interface{}) (interface{}, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, WrapError(KindSerialization, err, "failed to encode composite parameter")
	}
	return string(text), nil
}

// decodeValue converts an engine-reported column value to its JSON-compatible
// form. Blobs become arrays of numbers so they survive the boundary without a
// separate binary channel.
func decodeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return val, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, NewError(KindUnsupportedDatatype, "invalid float value: %v", val)
		}
		return val, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return val, nil
	case []byte:
		arr := make([]interface{}, len(val))
		for i, b := range val {
			arr[i] = int64(b)
		}
		return arr, nil
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	default:
		return nil, NewError(KindUnsupportedDatatype, "%T", v)
	}
}
