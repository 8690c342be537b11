package graph

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// GenericNodeType is the node type used when none is requested.
const GenericNodeType = "GraphNode"

// NodeType customizes how the fields of a node are decoded.
type NodeType interface {
	// FieldCasts maps field names to the node type their values decode as.
	FieldCasts() map[string]string
}

// FieldCasts is a NodeType defined by its field map alone.
type FieldCasts map[string]string

func (f FieldCasts) FieldCasts() map[string]string { return f }

var (
	nodeTypesMu sync.RWMutex
	nodeTypes   = map[string]NodeType{
		GenericNodeType:    FieldCasts(nil),
		"GraphAchievement": FieldCasts{"from": "GraphUser", "application": "GraphApplication"},
		"GraphAlbum":       FieldCasts{"from": "GraphUser", "place": "GraphPage"},
		"GraphApplication": FieldCasts(nil),
		"GraphCoverPhoto":  FieldCasts(nil),
		"GraphEvent": FieldCasts{
			"cover":        "GraphCoverPhoto",
			"place":        "GraphPage",
			"picture":      "GraphPicture",
			"parent_group": "GraphGroup",
		},
		"GraphGroup":    FieldCasts{"cover": "GraphCoverPhoto", "venue": "GraphLocation"},
		"GraphLocation": FieldCasts(nil),
		"GraphPage": FieldCasts{
			"best_page":                "GraphPage",
			"global_brand_parent_page": "GraphPage",
			"location":                 "GraphLocation",
			"cover":                    "GraphCoverPhoto",
			"picture":                  "GraphPicture",
		},
		"GraphPicture":     FieldCasts(nil),
		"GraphSessionInfo": FieldCasts(nil),
		"GraphUser": FieldCasts{
			"hometown":          "GraphPage",
			"location":          "GraphPage",
			"significant_other": "GraphUser",
			"picture":           "GraphPicture",
		},
	}
)

// RegisterNodeType adds or replaces a node type.
func RegisterNodeType(name string, t NodeType) {
	nodeTypesMu.Lock()
	defer nodeTypesMu.Unlock()
	nodeTypes[name] = t
}

// LookupNodeType returns the named node type. An empty name is the generic
// type; unknown names are a ShapeError.
func LookupNodeType(name string) (NodeType, error) {
	if name == "" {
		name = GenericNodeType
	}
	nodeTypesMu.RLock()
	t, ok := nodeTypes[name]
	nodeTypesMu.RUnlock()
	if !ok {
		return nil, &ShapeError{Message: fmt.Sprintf("The given node type %q is not valid. Cannot cast to an object that is not a GraphNode type.", name)}
	}
	return t, nil
}

// NodeTypeNames returns the registered type names, sorted.
func NodeTypeNames() []string {
	nodeTypesMu.RLock()
	defer nodeTypesMu.RUnlock()
	names := make([]string, 0, len(nodeTypes))
	for name := range nodeTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var dateFields = []string{
	"created_time", "updated_time", "start_time", "end_time", "stop_time",
	"backdated_time", "issued_at", "expires_at", "publish_time", "joined",
}

var iso8601Layouts = []string{"2006-01-02T15:04:05-0700", time.RFC3339}

// castDate converts date fields holding a Unix timestamp or an ISO 8601
// string to time.Time.
func castDate(key string, v any) any {
	if !slices.Contains(dateFields, key) {
		return v
	}
	switch val := v.(type) {
	case int64:
		return time.Unix(val, 0).UTC()
	case float64:
		return time.Unix(int64(val), 0).UTC()
	case string:
		for _, layout := range iso8601Layouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t
			}
		}
	}
	return v
}

// SessionInfo is the GraphSessionInfo node returned by debug endpoints.
type SessionInfo struct {
	*Node
}

func (s SessionInfo) AppID() string       { return s.StringField("app_id") }
func (s SessionInfo) Application() string { return s.StringField("application") }
func (s SessionInfo) UserID() string      { return s.StringField("user_id") }

func (s SessionInfo) ExpiresAt() (time.Time, bool) { return s.Time("expires_at") }
func (s SessionInfo) IssuedAt() (time.Time, bool)  { return s.Time("issued_at") }

func (s SessionInfo) IsValid() bool {
	v, _ := s.Field("is_valid")
	b, _ := v.(bool)
	return b
}

// Scopes returns the granted permissions.
func (s SessionInfo) Scopes() []string {
	v, _ := s.Field("scopes")
	return stringList(v)
}

func stringList(v any) []string {
	var out []string
	switch val := v.(type) {
	case *Edge:
		for _, item := range val.Items() {
			if str, ok := toString(item); ok {
				out = append(out, str)
			}
		}
	case []any:
		for _, item := range val {
			if str, ok := toString(item); ok {
				out = append(out, str)
			}
		}
	case *Node:
		for _, item := range val.fields.Values() {
			if str, ok := toString(item); ok {
				out = append(out, str)
			}
		}
	case *Object:
		for _, item := range val.Values() {
			if str, ok := toString(item); ok {
				out = append(out, str)
			}
		}
	}
	return out
}
