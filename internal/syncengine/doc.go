// Package syncengine implements incremental, watermark-driven mirroring of
// remote collections that can be listed newest-first.
//
// One pass over a partition resolves the watermark, pulls the remote listing
// in fixed-size chunks, enriches each chunk on a bounded worker pool and
// upserts it before asking for the next one. The pass stops at the first
// record strictly older than the watermark, so records equal to the watermark
// are re-persisted. Every committed chunk is a durability checkpoint: the next
// pass resumes from whatever reached the store.
//
// Early stop relies on the remote ordering being exact. A remote that reorders
// lazily can hide a freshly updated record behind older ones; such a record is
// picked up the next time it changes, not by this pass.
package syncengine
