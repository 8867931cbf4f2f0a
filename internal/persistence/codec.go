package persistence

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

// EncodeValue serializes an arbitrary Go value using encoding/gob.
// The value is encoded as an interface, so its concrete type must be
// registered with gob.Register. Nil and nil pointers encode to nil.
func EncodeValue(v any) ([]byte, error) {
	if isNil(v) {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue decodes a payload produced by EncodeValue into T.
// An empty payload yields the zero value.
func DecodeValue[T any](data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, nil
	}
	var iv any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&iv); err != nil {
		return zero, err
	}
	if iv == nil {
		return zero, nil
	}
	v, ok := iv.(T)
	if !ok {
		return zero, fmt.Errorf("gob: decoded %T is not assignable to %T", iv, zero)
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// instanceRecord is the stored form of an instance, shared by the
// key-value backends.
type instanceRecord struct {
	ID        string
	Workflow  string
	Status    string
	Phase     string
	Input     []byte
	Output    []byte
	Error     string
	ParentID  string
	StartedAt time.Time
	ClosedAt  time.Time
}

func toRecord(inst *api.WorkflowInstance) (instanceRecord, error) {
	in, err := EncodeValue(inst.Input)
	if err != nil {
		return instanceRecord{}, fmt.Errorf("encode input: %w", err)
	}
	out, err := EncodeValue(inst.Output)
	if err != nil {
		return instanceRecord{}, fmt.Errorf("encode output: %w", err)
	}
	rec := instanceRecord{
		ID:        inst.ID,
		Workflow:  inst.Name,
		Status:    string(inst.Status),
		Phase:     inst.Phase,
		Input:     in,
		Output:    out,
		ParentID:  inst.ParentID,
		StartedAt: inst.StartedAt,
		ClosedAt:  inst.ClosedAt,
	}
	if inst.Err != nil {
		rec.Error = inst.Err.Error()
	}
	return rec, nil
}

func (r instanceRecord) instance() (*api.WorkflowInstance, error) {
	in, err := DecodeValue[any](r.Input)
	if err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	out, err := DecodeValue[any](r.Output)
	if err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	inst := &api.WorkflowInstance{
		ID:        r.ID,
		Name:      r.Workflow,
		Status:    api.Status(r.Status),
		Phase:     r.Phase,
		Input:     in,
		Output:    out,
		ParentID:  r.ParentID,
		StartedAt: r.StartedAt,
		ClosedAt:  r.ClosedAt,
	}
	if r.Error != "" {
		inst.Err = errors.New(r.Error)
	}
	return inst, nil
}

func marshalRecord(inst *api.WorkflowInstance) ([]byte, error) {
	rec, err := toRecord(inst)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalRecord(data []byte) (*api.WorkflowInstance, error) {
	if len(data) == 0 {
		return nil, ErrInstanceNotFound
	}
	var rec instanceRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, err
	}
	return rec.instance()
}

func marshalEvent(ev api.WorkflowEvent) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&ev); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalEvent(data []byte) (api.WorkflowEvent, error) {
	var ev api.WorkflowEvent
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ev)
	return ev, err
}
