// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package annotation implements the per-coder annotation session: a stateful
walk through an ordered batch of texts.

# Session

A Session holds the item snapshot, the current position and the uncommitted
draft. Per item the implicit state machine is

	Unclassified → Drafting (category or flag set) → Committed

Navigation is unrestricted in both directions and clamped at the batch
boundaries; moving resets the draft. Commit requires a selected category and
a current item, persists through the Saver interface, and advances on
success. A failed save is returned to the caller and the position holds, so
nothing is silently lost.

# Snapshots

ReplaceItems installs a complete replacement of the batch - the store pushes
full snapshots, never diffs. An empty snapshot puts the session into a
waiting state, which is not an error.

# Manager

Manager tracks the live session of each signed-in coder and fans batch
snapshot replacements out to every session walking that batch.
*/
package annotation
