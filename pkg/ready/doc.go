// Package ready computes the set of immediately workable items.
//
// An item is ready when it is open, actionable (not a template, not pinned,
// not of an excluded workflow type), visible (not ephemeral, not deferred
// into the future) and every item it depends on through a blocking edge is
// closed. A blocker that cannot be found in the snapshot is treated as
// unresolved, so a dangling reference keeps work blocked rather than
// surfacing it early.
//
// [Resolve] is pure: it reads an item and edge snapshot and returns a new
// slice. An empty result is a valid answer and is never an error.
//
//	items, _ := st.ListItems(ctx, store.ItemFilter{})
//	edges, _ := st.ListBlockingEdges(ctx)
//	work := ready.Resolve(items, edges, ready.Filter{Limit: 10}, time.Now())
//
// [Blocked] is the complementary view: every non-closed item that is held
// back by at least one unresolved blocker, together with those blocker IDs.
package ready
