// Package dag holds the graph algorithms of the executor. A workflow graph is a
// plain adjacency map from a node id to the ordered ids of its successors; the
// functions here never mutate it and keep no state between calls.
//
// An edge a -> b means a runs before b.
package dag
