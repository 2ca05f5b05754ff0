// Package executor runs the asynchronous turn pipeline. Submissions are
// queued as tasks; a bounded worker pool dequeues them, takes the thread's
// lease so one thread never has two turns in flight, invokes the supervisor,
// commits turn and thread atomically, and publishes delivery envelopes. A
// scheduled task compacts superseded knowledge graph facts.
package executor
