// Package formationsync synchronizes the formation directory from WordPress.
//
// A members run loads the formation settings, fetches the province,
// position and formation-state taxonomies concurrently, then pages through
// the member post type. Each member's term ids are resolved (unknown ids
// are skipped and counted) and the member is kept when one of its
// formation states is included (an empty set includes any member with a
// state) and its province is included (an empty set includes every
// province). Kept members are upserted on wp_id; rows absent from the kept
// set are pruned when requested or when prune_missing is set.
//
// Runs are serialized, recorded in sync_runs and audited.
package formationsync
