// Package correlator matches commands sent on one device connection with the
// response that follows them.
//
// A Correlator allows at most one outstanding command. The outstanding command is
// settled by whichever comes first: the next response on the connection, the response
// timeout, or the disconnect of the connection. Responses that arrive while nothing
// is outstanding are dropped.
//
//	c, err := correlator.New(conn, correlator.WithResponseTimeout(time.Second))
//	...
//	// from the transport receiver
//	c.HandleMessage(msg.Kind, msg.Payload)
//	...
//	reply, err := c.Issue("S\r\n")
//	if errors.Is(err, correlator.ErrTimeout) {
//	    ...
//	}
package correlator
