package favorites

import "sort"

// TreeNode is one node of the nested tree rendering returned alongside the
// flat list.
type TreeNode struct {
	Node
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree assembles flat nodes into nested trees in three passes: index
// every node, link children to parents, then order every level. Nodes whose
// parent is missing from the input surface as extra roots rather than being
// dropped.
func BuildTree(nodes []Node) []*TreeNode {
	index := make(map[string]*TreeNode, len(nodes))
	for i := range nodes {
		index[nodes[i].ID] = &TreeNode{Node: nodes[i]}
	}

	var roots []*TreeNode
	for i := range nodes {
		node := index[nodes[i].ID]
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := index[*node.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	for _, node := range index {
		sortLevel(node.Children)
	}
	sortLevel(roots)

	return roots
}

// sortLevel orders siblings folders first, then by name.
func sortLevel(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == KindFolder
		}
		return nodes[i].Name < nodes[j].Name
	})
}
