package graph

// NodeFactory decodes the body of a response into nodes and edges.
type NodeFactory struct {
	request *Request
	decoded *Object
}

// NewNodeFactory returns a factory for resp.
func NewNodeFactory(resp *Response) *NodeFactory {
	return &NodeFactory{request: resp.Request(), decoded: resp.DecodedBody()}
}

// MakeNode decodes the body as a node of the given type. It fails when the
// body looks like an edge.
func (f *NodeFactory) MakeNode(typeName string) (*Node, error) {
	if looksLikeEdge(f.decoded) {
		return nil, &ShapeError{Message: "Unable to convert response from Graph to a GraphNode because the response looks like a GraphEdge. Try decoding it as an edge instead."}
	}
	shape, err := f.Classify(f.decoded, typeName, "", "")
	if err != nil {
		return nil, err
	}
	node, ok := shape.(*Node)
	if !ok {
		return nil, &ShapeError{Message: "Unable to convert response from Graph to a GraphNode."}
	}
	return node, nil
}

// MakeEdge decodes the body as an edge whose items have the given type. It
// fails unless the body looks like an edge.
func (f *NodeFactory) MakeEdge(typeName string) (*Edge, error) {
	if !looksLikeEdge(f.decoded) {
		return nil, &ShapeError{Message: "Unable to convert response from Graph to a GraphEdge because the response does not look like a GraphEdge. Try decoding it as a node instead."}
	}
	shape, err := f.Classify(f.decoded, typeName, "", "")
	if err != nil {
		return nil, err
	}
	edge, ok := shape.(*Edge)
	if !ok {
		return nil, &ShapeError{Message: "Unable to convert response from Graph to a GraphEdge."}
	}
	return edge, nil
}

// Classify decodes data as an edge when data.data is a list, as the node
// under data.data when that is an object, and as a node otherwise. parentKey
// and parentID name the field and node data was found under, if any.
func (f *NodeFactory) Classify(data *Object, typeName, parentKey, parentID string) (Shape, error) {
	if inner, ok := data.Get("data"); ok && inner != nil {
		if innerObj, ok := asObject(inner); ok {
			if IsEdgeCastable(innerObj) {
				return f.makeEdge(data, innerObj, typeName, parentKey, parentID)
			}
			data = innerObj
		}
	}
	return f.makeNode(data, typeName)
}

func (f *NodeFactory) makeNode(data *Object, typeName string) (*Node, error) {
	if typeName == "" {
		typeName = GenericNodeType
	}
	nodeType, err := LookupNodeType(typeName)
	if err != nil {
		return nil, err
	}
	casts := nodeType.FieldCasts()

	var parentID string
	if id, ok := data.Get("id"); ok && id != nil {
		parentID, _ = toString(id)
	}

	fields := NewObject()
	for k, v := range data.All() {
		obj, ok := asObject(v)
		if !ok {
			fields.Set(k, castDate(k, v))
			continue
		}
		child, err := f.Classify(obj, casts[k], k, parentID)
		if err != nil {
			return nil, err
		}
		fields.Set(k, child)
	}
	return newNode(fields, typeName), nil
}

func (f *NodeFactory) makeEdge(data, list *Object, typeName, parentKey, parentID string) (*Edge, error) {
	items := make([]any, 0, list.Len())
	for _, v := range list.All() {
		obj, ok := asObject(v)
		if !ok {
			items = append(items, v)
			continue
		}
		node, err := f.makeNode(obj, typeName)
		if err != nil {
			return nil, err
		}
		items = append(items, node)
	}

	meta := data.Clone()
	meta.Delete("data")

	var parentEndpoint string
	if parentID != "" && parentKey != "" {
		parentEndpoint = "/" + parentID + "/" + parentKey
	}
	return &Edge{
		request:        f.request,
		items:          items,
		meta:           meta,
		parentEndpoint: parentEndpoint,
		nodeType:       typeName,
	}, nil
}

// IsEdgeCastable reports whether data is a list: its keys are exactly
// "0".."n-1". An empty object is a list.
func IsEdgeCastable(data *Object) bool {
	return data.IsSequential()
}

func looksLikeEdge(body *Object) bool {
	inner, ok := body.Get("data")
	if !ok || inner == nil {
		return false
	}
	obj, ok := asObject(inner)
	return ok && IsEdgeCastable(obj)
}

// asObject views decoded objects and lists as *Object.
func asObject(v any) (*Object, bool) {
	switch val := v.(type) {
	case *Object:
		return val, true
	case []any:
		return CollectionFromSlice(val), true
	default:
		return nil, false
	}
}
