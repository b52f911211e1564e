// Package poller runs self-rescheduling refresh loops.
//
// A Loop runs its function once on Start and then schedules the next run
// one interval after the previous run completes, so runs of the same loop
// never overlap. Each loop is an explicit state machine:
//
//	Idle ──Start/Trigger──▶ Running ──done──▶ Idle ──▶ Scheduled ──timer──▶ Running
//	any ──Stop──▶ Stopped
//
// A loop holds at most one pending timer. Stop clears that timer but does
// not interrupt a run in progress; the run finishes and does not
// reschedule.
package poller
