// Package visual builds the sub-graphs the renderers draw.
//
// Two entry points cover the two questions users ask:
//
//   - [BuildFromRoot]: everything connected to one item through blocking
//     edges, in either direction.
//   - [BuildAll]: every connected component of the open-item graph,
//     largest first, with single unconnected items counted rather than drawn.
//
// Each resulting [Subgraph] carries its layer assignment from
// transform.AssignLayers, so the text, DOT and structured renderers all
// draw the same picture from one build pass.
package visual
