package pathtree

import "slices"

// TreeData is a nested string-keyed map.
//
// Values are either TreeData or a caller-provided leaf value.
type TreeData = map[string]any

// TreePath is a list of keys leading to a value.
type TreePath []string

// PathTree is a tree with a string key at each non-leaf node.
//
// If the leaves are JSON values, then this is essentially a JSON object.
type PathTree struct {
	tree TreeData
}

// PathItem is the value at a leaf node and the path to that leaf.
type PathItem struct {
	Path  TreePath
	Value any
}

func New() *PathTree {
	return &PathTree{make(TreeData)}
}

// NewFrom wraps an existing nested map without copying it.
func NewFrom(tree TreeData) *PathTree {
	if tree == nil {
		tree = make(TreeData)
	}
	return &PathTree{tree}
}

// Tree returns the underlying nested-map representation.
func (pt *PathTree) Tree() TreeData {
	return pt.tree
}

// CloneTree returns a deep copy of the nested-map representation.
func (pt *PathTree) CloneTree() TreeData {
	return deepCopy(pt.tree)
}

// Set changes the value of the leaf node at the given path.
//
// If the path doesn't refer to a node in the tree, nodes are inserted
// and a new leaf is created.
//
// If path refers to a non-leaf node, that node is replaced by a leaf
// and the subtree is discarded.
func (pt *PathTree) Set(path TreePath, value any) {
	pathPrefix := path[:len(path)-1]
	key := path[len(path)-1]

	subtree := getOrMakeSubtree(pt.tree, pathPrefix)
	subtree[key] = value
}

// GetLeaf returns the leaf value at path.
//
// Returns nil and false if the path doesn't lead to a leaf node.
func (pt *PathTree) GetLeaf(path TreePath) (any, bool) {
	prefix := path[:len(path)-1]
	key := path[len(path)-1]

	subtree := getSubtree(pt.tree, prefix)
	if subtree == nil {
		return nil, false
	}

	value, exists := subtree[key]
	if !exists {
		return nil, false
	}

	switch value.(type) {
	case TreeData:
		return nil, false
	default:
		return value, true
	}
}

// Flatten returns all the leaves of the tree.
//
// The order is nondeterministic.
func (pt *PathTree) Flatten() []PathItem {
	return flatten(pt.tree, nil)
}

// FlattenDotted returns the leaves of the tree as a single-level map
// whose keys are the paths to each leaf joined with sep.
//
// The result contains no nested maps, only leaf values. Nested trees
// are assumed acyclic.
func (pt *PathTree) FlattenDotted(sep string) map[string]any {
	result := make(map[string]any)
	for _, item := range pt.Flatten() {
		result[joinPath(item.Path, sep)] = item.Value
	}
	return result
}

// flatten returns the leaves of the tree, prepending a prefix to paths.
//
// Each path gets its own backing array: appending to a shared prefix
// would let sibling leaves overwrite each other's paths once the slice
// has spare capacity.
func flatten(tree TreeData, prefix []string) []PathItem {
	var leaves []PathItem
	for key, value := range tree {
		path := append(slices.Clone(prefix), key)
		switch value := value.(type) {
		case TreeData:
			leaves = append(leaves, flatten(value, path)...)
		default:
			leaves = append(leaves, PathItem{path, value})
		}
	}
	return leaves
}

func joinPath(path TreePath, sep string) string {
	switch len(path) {
	case 0:
		return ""
	case 1:
		return path[0]
	}

	joined := path[0]
	for _, key := range path[1:] {
		joined += sep + key
	}
	return joined
}

// getSubtree returns the subtree at the path or nil if the path doesn't lead
// to a non-leaf node.
func getSubtree(tree TreeData, path TreePath) TreeData {
	for _, key := range path {
		node, ok := tree[key]
		if !ok {
			return nil
		}

		subtree, ok := node.(TreeData)
		if !ok {
			return nil
		}

		tree = subtree
	}

	return tree
}

// getOrMakeSubtree returns the subtree at the path, creating it if necessary.
//
// Any leaf nodes along the path get overwritten.
func getOrMakeSubtree(tree TreeData, path TreePath) TreeData {
	for _, key := range path {
		node, exists := tree[key]
		if !exists {
			subtree := make(TreeData)
			tree[key] = subtree
			tree = subtree
			continue
		}

		subtree, ok := node.(TreeData)
		if !ok {
			subtree = make(TreeData)
			tree[key] = subtree
		}

		tree = subtree
	}

	return tree
}

// Returns a deep copy of the given tree.
//
// Slice values are copied by reference, which is fine for our use case.
func deepCopy(tree TreeData) TreeData {
	clone := make(TreeData)
	for key, value := range tree {
		switch value := value.(type) {
		case TreeData:
			clone[key] = deepCopy(value)
		default:
			clone[key] = value
		}
	}
	return clone
}
