package model

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
)

// JobParameters are the run parameters of a launch. Together with the job name they form the run identity.
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters returns empty parameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put sets key to value.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// Get returns the raw value for key, or nil.
func (jp JobParameters) Get(key string) interface{} {
	if jp.Params == nil {
		return nil
	}
	return jp.Params[key]
}

// GetString returns key as a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	s, ok := jp.Get(key).(string)
	return s, ok
}

// GetInt64 returns key as an int64, accepting the numeric forms produced by JSON decoding.
func (jp JobParameters) GetInt64(key string) (int64, bool) {
	switch v := jp.Get(key).(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Copy returns an independent shallow copy.
func (jp JobParameters) Copy() JobParameters {
	cp := NewJobParameters()
	for k, v := range jp.Params {
		cp.Params[k] = v
	}
	return cp
}

// Equal reports whether both parameter sets hash identically.
func (jp JobParameters) Equal(other JobParameters) bool {
	a, errA := jp.Hash()
	b, errB := other.Hash()
	return errA == nil && errB == nil && a == b
}

// Hash returns the sha256 of the JSON form. encoding/json writes map keys sorted, so insertion order never changes identity.
func (jp JobParameters) Hash() (string, error) {
	canonical, err := json.Marshal(jp.Params)
	if err != nil {
		return "", exception.NewBatchError("job_parameters", "failed to encode parameters for hashing", err, false, false)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// String returns the canonical JSON form.
func (jp JobParameters) String() string {
	if jp.Params == nil {
		return "{}"
	}
	b, err := json.Marshal(jp.Params)
	if err != nil {
		return fmt.Sprintf("{[ERROR: %v]}", err)
	}
	return string(b)
}

// Value implements driver.Valuer.
func (jp JobParameters) Value() (driver.Value, error) {
	if jp.Params == nil {
		return "{}", nil
	}
	b, err := json.Marshal(jp.Params)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (jp *JobParameters) Scan(value interface{}) error {
	jp.Params = make(map[string]interface{})
	var b []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for JobParameters: %T", value)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, &jp.Params); err != nil {
		return fmt.Errorf("failed to unmarshal JobParameters JSON: %w", err)
	}
	return nil
}
