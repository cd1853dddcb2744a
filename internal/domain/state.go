// Package domain contains pure, dependency-free domain models and types
// for the answer grading engine.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"time"
)

// Key names a State entry holding a T.
type Key[T any] struct{ name string }

// NewKey returns a key for entries defined outside this package, such as
// unit-private scratch values.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Entries read and written by the grading units.
var (
	KeyQuestion    = Key[string]{"question"}
	KeyGroundTruth = Key[string]{"ground_truth"}
	KeyCandidates  = Key[[]Candidate]{"candidates"}

	// KeyCategory is the declared category. answer_match classifies the
	// ground truth when it is absent.
	KeyCategory = Key[Category]{"category"}

	// KeyComparisons holds one result per candidate, in candidate order.
	KeyComparisons = Key[[]ComparisonResult]{"comparisons"}

	// KeyJudgeScores holds the 0/1 score of each comparison.
	KeyJudgeScores = Key[[]JudgeSummary]{"judge_scores"}

	KeyVerdict = Key[*Verdict]{"verdict"}

	KeyPipelineID  = Key[string]{"execution.pipeline_id"}
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// State is the immutable bag of values one item carries through a grading
// pipeline. Writers get a new State; values are deep-copied on the way in
// and out so results attached by one unit cannot be changed by the next.
type State struct {
	data map[string]any
}

// NewState returns an empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// Get returns a copy of the value stored under key. ok is false when the
// entry is missing or holds a different type.
func Get[T any](s State, key Key[T]) (T, bool) {
	value, exists := s.data[key.name]
	if !exists {
		var zero T
		return zero, false
	}
	val, ok := cloneValue(value).(T)
	return val, ok
}

// With returns a State in which key holds value.
func With[T any](s State, key Key[T], value T) State {
	return s.WithMultiple(map[string]any{key.name: value})
}

// WithMultiple applies several writes with a single clone of the map.
func (s State) WithMultiple(updates map[string]any) State {
	data := maps.Clone(s.data)
	if data == nil {
		data = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		data[k] = cloneValue(v)
	}
	return State{data: data}
}

// Keys lists the entry names in no particular order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}

// ExecutionContext identifies the run an item is graded in.
type ExecutionContext struct {
	PipelineID  string
	ExecutionID string
}

// WithExecutionContext records ctx on the State.
func (s State) WithExecutionContext(ctx ExecutionContext) State {
	return s.WithMultiple(map[string]any{
		KeyPipelineID.name:  ctx.PipelineID,
		KeyExecutionID.name: ctx.ExecutionID,
	})
}

// GetExecutionContext is false unless both identifiers are present.
func (s State) GetExecutionContext() (ExecutionContext, bool) {
	pipelineID, ok := Get(s, KeyPipelineID)
	if !ok {
		return ExecutionContext{}, false
	}
	executionID, ok := Get(s, KeyExecutionID)
	if !ok {
		return ExecutionContext{}, false
	}
	return ExecutionContext{PipelineID: pipelineID, ExecutionID: executionID}, true
}

// cloneValue copies slices, maps, pointers and the exported fields of
// structs. Candidates, comparison results and verdicts are all built from
// those, so a clone shares no memory with its source. Unexported struct
// fields are copied shallowly; Answer keeps its metadata map unexported
// and never hands it out.
func cloneValue(value any) any {
	if value == nil {
		return nil
	}
	if t, ok := value.(time.Time); ok {
		return t
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(cloneElem(v.Index(i)))
		}
		return out.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneElem(iter.Value()))
		}
		return out.Interface()

	case reflect.Pointer:
		if v.IsNil() {
			return value
		}
		out := reflect.New(v.Elem().Type())
		out.Elem().Set(cloneElem(v.Elem()))
		return out.Interface()

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := range v.NumField() {
			if out.Field(i).CanSet() {
				out.Field(i).Set(cloneElem(v.Field(i)))
			}
		}
		return out.Interface()

	default:
		return value
	}
}

// cloneElem clones v while keeping its static type, so nil interface
// values and typed nils survive the round trip through any.
func cloneElem(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(reflect.ValueOf(cloneValue(v.Elem().Interface())))
		return out
	}
	if !v.CanInterface() {
		return v
	}
	return reflect.ValueOf(cloneValue(v.Interface())).Convert(v.Type())
}
