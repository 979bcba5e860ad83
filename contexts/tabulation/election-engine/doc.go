// Package electionengine implements single-winner ranked-choice elections
// inside the tabulation context.
//
// The module owns the election lifecycle (open, cast, tabulate), the
// instant-runoff engine with its riffle-based candidate ordering and
// round-by-round ballot transfers, and the sankey flow-graph export of those
// transfers. Business rules live in the domain and application layers;
// persistence and transport stay behind ports and adapters.
package electionengine
