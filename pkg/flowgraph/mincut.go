package flowgraph

import "netgraph/pkg/pathalgo"

// MinCut reports the min-cut edge set for the current residual state,
// for a max-flow placement from src to dst.
func (fg *FlowGraph) MinCut(src, dst int) []pathalgo.EdgeRef {
	return pathalgo.MinCut(fg.sub, src, dst, fg.nodeMask, fg.edgeMask, fg.residual)
}
