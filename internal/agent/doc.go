// Package agent implements named workers, the task/result lifecycle they own,
// and the registry the HTTP layer uses to route submissions.
//
// An Agent wraps one Executor. RunTask and Submit record the task as running,
// call the executor and store its Result; GetResult is the only read path and
// always yields a well-formed Result for known ids.
package agent
