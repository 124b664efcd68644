// Package client talks to remote resources and automates request
// verification against them.
//
// A RemoteResource wraps a Transport (the MQTT adapter in production) with
// one-shot Get/Put/Post/Observe calls and with automatic request sessions.
// An automatic session walks the cross-product of the method's query
// parameter value sets, and for PUT and POST the cross-product of the
// payload's enumerable attributes, sending every combination:
//
//	for query := range queryCombinations {        // outer
//	    for payload := range payloadCombinations { // inner (PUT/POST)
//	        sent++; transport.Send(...)            // response → received++
//	    }
//	}
//	finish when loops are over && sent == received
//
// # Exclusivity
//
// A RequestManager runs at most one session per method. A second Start of an
// active method fails with ErrOperationInProgress. A finished session
// removes itself before its callback runs, so the callback may start the
// next session. Session ids are never reused.
//
// # Failure Modes
//
// A failed dispatch stops the loops; the session ends with StateAbort once
// the outstanding responses have arrived. Error responses are counted as
// failures but do not abort the session.
package client
