// Package session drives a single device discovery session.
//
// A Controller owns the lifecycle of a scan: it checks that the radio is
// available and powered, asks for scan permission when needed, starts the
// discovery source, feeds sightings into a discovery.Registry and stops the
// scan on request or when its timeout fires.
//
// All mutation happens on one goroutine, the event loop started by Run.
// Control calls, gate answers, timer expiry and device sightings are queued
// as messages and processed in arrival order:
//
//	ctrl := session.New(session.Options{
//		Adapter:    gate,
//		Permission: gate,
//		Source:     source,
//		Timeout:    15 * time.Second,
//		Observer:   view,
//	})
//	go ctrl.Run(ctx)
//	ctrl.Start()
//	...
//	ctrl.Shutdown()
//
// Each scan carries a generation number and each gate request an attempt
// number, so a late timeout or answer from an earlier attempt is ignored.
// Sightings that arrive while not scanning are dropped and counted in Stats.
package session
