package tallyv1

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Event is the wire view of a committed submission.
type Event struct {
	Seq       uint64
	Total     uint32
	Submitter string
	Value     uint32
	AtMs      int64
}

// Total is the wire view of GetTotal.
type Total struct {
	Initialized bool
	Total       uint32
	MaxValue    uint32
}

// EventStruct encodes ev as {seq, total, submitter, value, at_ms}.
func EventStruct(ev Event) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"seq":       structpb.NewNumberValue(float64(ev.Seq)),
		"total":     structpb.NewNumberValue(float64(ev.Total)),
		"submitter": structpb.NewStringValue(ev.Submitter),
		"value":     structpb.NewNumberValue(float64(ev.Value)),
		"at_ms":     structpb.NewNumberValue(float64(ev.AtMs)),
	}}
}

// EventFromStruct decodes a struct produced by EventStruct.
func EventFromStruct(s *structpb.Struct) (Event, error) {
	f := s.GetFields()
	total, err := uint32Field(f, "total")
	if err != nil {
		return Event{}, err
	}
	value, err := uint32Field(f, "value")
	if err != nil {
		return Event{}, err
	}
	return Event{
		Seq:       uint64(f["seq"].GetNumberValue()),
		Total:     total,
		Submitter: f["submitter"].GetStringValue(),
		Value:     value,
		AtMs:      int64(f["at_ms"].GetNumberValue()),
	}, nil
}

// TotalStruct encodes t as {initialized, total, max_value}.
func TotalStruct(t Total) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"initialized": structpb.NewBoolValue(t.Initialized),
		"total":       structpb.NewNumberValue(float64(t.Total)),
		"max_value":   structpb.NewNumberValue(float64(t.MaxValue)),
	}}
}

// TotalFromStruct decodes a struct produced by TotalStruct.
func TotalFromStruct(s *structpb.Struct) (Total, error) {
	f := s.GetFields()
	total, err := uint32Field(f, "total")
	if err != nil {
		return Total{}, err
	}
	maxValue, err := uint32Field(f, "max_value")
	if err != nil {
		return Total{}, err
	}
	return Total{Initialized: f["initialized"].GetBoolValue(), Total: total, MaxValue: maxValue}, nil
}

// WatchRequest builds the Watch request. from is latest, earliest or a seq.
func WatchRequest(from, filter string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"from":   structpb.NewStringValue(from),
		"filter": structpb.NewStringValue(filter),
	}}
}

// WatchOptionsFromStruct reads from and filter from a Watch request.
func WatchOptionsFromStruct(s *structpb.Struct) (from, filter string) {
	f := s.GetFields()
	return f["from"].GetStringValue(), f["filter"].GetStringValue()
}

func uint32Field(f map[string]*structpb.Value, key string) (uint32, error) {
	v, ok := f[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n := v.GetNumberValue()
	if n < 0 || n > 4294967295 || n != float64(uint32(n)) {
		return 0, fmt.Errorf("field %q: %v is not a uint32", key, n)
	}
	return uint32(n), nil
}
