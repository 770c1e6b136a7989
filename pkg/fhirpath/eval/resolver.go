package eval

import (
	"strings"

	"github.com/buger/jsonparser"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// bundleIndex is the fullUrl/Type-id lookup table for a single Bundle root,
// built once per root handle and cached on the Context.
type bundleIndex struct {
	byFullURL map[string][]byte
	byTypeID  map[string][]byte
}

// LocalResolve resolves a reference against the root resource without any
// network I/O, per the contained-resource and Bundle fullUrl rules. An
// unresolvable reference returns ok=false; it is never an error.
func (c *Context) LocalResolve(reference string) (types.Collection, bool) {
	if reference == "" {
		return nil, false
	}

	root := rootObject(c.root)
	if root == nil {
		return nil, false
	}

	if strings.HasPrefix(reference, "#") {
		return resolveContained(root, reference[1:])
	}

	if root.Type() == "Bundle" {
		idx := c.bundleIndexFor(root)
		if idx == nil {
			return nil, false
		}
		if data, ok := idx.byFullURL[reference]; ok {
			return wrapResource(data)
		}
		if typ, id, ok := splitTypeID(reference); ok {
			if data, ok := idx.byTypeID[typ+"/"+id]; ok {
				return wrapResource(data)
			}
		}
	}

	return nil, false
}

func rootObject(root types.Collection) *types.ObjectValue {
	if len(root) != 1 {
		return nil
	}
	obj, ok := root[0].(*types.ObjectValue)
	if !ok {
		return nil
	}
	return obj
}

// resolveContained searches the root's contained array for a resource whose
// id matches, per the `#id` reference form.
func resolveContained(root *types.ObjectValue, id string) (types.Collection, bool) {
	for _, c := range root.GetCollection("contained") {
		obj, ok := c.(*types.ObjectValue)
		if !ok {
			continue
		}
		if idVal, ok := obj.Get("id"); ok {
			if s, ok := idVal.(types.String); ok && s.Value() == id {
				return types.Collection{obj}, true
			}
		}
	}
	return nil, false
}

// bundleIndexFor returns the cached fullUrl/Type-id index for root, building
// it on first use. The index is keyed by root handle identity: two
// evaluations over different roots never share an index.
func (c *Context) bundleIndexFor(root *types.ObjectValue) *bundleIndex {
	if c.bundleCache == nil {
		c.bundleCache = make(map[*types.ObjectValue]*bundleIndex)
	}
	if idx, ok := c.bundleCache[root]; ok {
		return idx
	}

	idx := &bundleIndex{
		byFullURL: make(map[string][]byte),
		byTypeID:  make(map[string][]byte),
	}

	//nolint:errcheck // ArrayEach only errors on malformed JSON; entries are skipped on error instead
	jsonparser.ArrayEach(root.Data(), func(entry []byte, _ jsonparser.ValueType, _ int, _ error) {
		fullURL, _ := jsonparser.GetString(entry, "fullUrl")
		resource, _, _, err := jsonparser.Get(entry, "resource")
		if err != nil {
			return
		}
		if fullURL != "" {
			idx.byFullURL[fullURL] = resource
		}
		resourceType, _ := jsonparser.GetString(resource, "resourceType")
		resourceID, _ := jsonparser.GetString(resource, "id")
		if resourceType != "" && resourceID != "" {
			idx.byTypeID[resourceType+"/"+resourceID] = resource
		} else if fullURL != "" {
			if typ, id, ok := splitTypeID(lastTwoSegments(fullURL)); ok {
				idx.byTypeID[typ+"/"+id] = resource
			}
		}
	}, "entry")

	c.bundleCache[root] = idx
	return idx
}

func splitTypeID(reference string) (typ, id string, ok bool) {
	parts := strings.Split(reference, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}

func lastTwoSegments(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) < 2 {
		return url
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

func wrapResource(data []byte) (types.Collection, bool) {
	return types.Collection{types.NewObjectValue(data)}, true
}
