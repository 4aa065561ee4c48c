package requests

import "fmt"

// ShapeKind tags how a list is found inside a response body.
type ShapeKind int

const (
	// ShapeArray matches a bare JSON array.
	ShapeArray ShapeKind = iota
	// ShapeWrapped matches an object carrying the array under Key.
	ShapeWrapped
	// ShapeSingle matches an object that is itself one identifiable record.
	ShapeSingle
)

// Shape is one extraction strategy.
type Shape struct {
	Kind ShapeKind
	Key  string
}

func (s Shape) String() string {
	switch s.Kind {
	case ShapeArray:
		return "array"
	case ShapeWrapped:
		return fmt.Sprintf("wrapped(%s)", s.Key)
	case ShapeSingle:
		return "single"
	default:
		return "unknown"
	}
}

// Array, Wrapped and Single build extraction strategies.
func Array() Shape             { return Shape{Kind: ShapeArray} }
func Wrapped(key string) Shape { return Shape{Kind: ShapeWrapped, Key: key} }
func Single() Shape            { return Shape{Kind: ShapeSingle} }

// DefaultShapes is the extraction order used for request and approval lists.
var DefaultShapes = []Shape{
	Array(),
	Wrapped("results"),
	Wrapped("data"),
	Wrapped("approved_requests"),
	Wrapped("approvedRequests"),
	Wrapped("pending_requests"),
	Wrapped("rejected_requests"),
	Wrapped("approvals"),
	Single(),
}

// RejectedShapes is the extraction order of the rejected-by-me endpoint.
var RejectedShapes = []Shape{
	Array(),
	Wrapped("rejected_requests"),
	Wrapped("rejected"),
	Wrapped("results"),
	Wrapped("data"),
	Wrapped("items"),
}

// Extract tries shapes in order and returns the elements of the first match.
func Extract(raw any, shapes []Shape) ([]any, Shape, bool) {
	for _, shape := range shapes {
		switch shape.Kind {
		case ShapeArray:
			if list, ok := raw.([]any); ok {
				return list, shape, true
			}
		case ShapeWrapped:
			obj, ok := AsRecord(raw)
			if !ok {
				continue
			}
			if list, ok := obj[shape.Key].([]any); ok {
				return list, shape, true
			}
		case ShapeSingle:
			obj, ok := AsRecord(raw)
			if !ok {
				continue
			}
			if _, ok := resolveID(obj, sourcesOf(obj)); ok {
				return []any{obj}, shape, true
			}
		}
	}
	return nil, Shape{}, false
}
