// Package core is the application layer of tabdiff: it loads files, runs the
// matching and comparison engines, and records what happened.
//
// The engines themselves (table, schema, mapping, compare) are pure; core
// adds everything around them that touches the outside world:
//
//   - Comparisons: [Service.Compare] loads both inputs, optionally resolves
//     field types through the catalog, and records a job that moves from
//     pending to completed or failed. A [ComparisonLimiter] bounds how many
//     comparisons hold tables in memory at once.
//   - Suggestions: [Service.SuggestMappings] profiles both files and proposes
//     column pairs.
//   - Catalog: field mappings live in the store; [Service.Catalog] turns the
//     active ones into an immutable snapshot per batch.
//   - Scheduled tasks: [Service.StartScheduler] periodically runs due tasks.
//     Failures flag the task and are not retried.
//
// # Error Handling
//
// Technical errors are mapped to user messages with support codes by
// [MapError]. Codes are grouped FILE, MAP, DB, JOB and RATE; ERR000 is the
// fallback.
package core
