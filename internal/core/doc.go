// Package core holds loaded tables for the HTTP server.
//
// A [Service] keeps each uploaded CSV in its own session, keyed by a random
// id, and runs the cleaning and profiling operations against it. Sessions
// are independent: calls on one session are serialised, calls on different
// sessions run in parallel.
//
//	svc := core.NewService(core.Options{SessionTTL: 30 * time.Minute})
//	info, err := svc.Load(ctx, body, core.LoadRequest{Name: "people.csv"})
//	if err != nil {
//	    return err
//	}
//	_, err = svc.ToInteger(ctx, info.ID, []string{"amount"})
//
// Loads go through a [LoadLimiter] so that only a bounded number of files
// are parsed at once. Idle sessions are released by [Service.StartSweeper].
//
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - FILE001-FILE006: size, parse, encoding, missing, empty, format
//   - VAL002-VAL007: number coercion, unknown column, bad argument
//   - TBL001, SES001-SES003: table and session state
//   - REQ001-REQ002, RATE001: request lifecycle
package core
