package server

// Relay forwards a signaling event to every live connection of the target
// user. Payloads are never inspected. A target with no connections is a
// normal empty result: the event is dropped silently and the caller's own
// timeout is the only failure signal.
func (cs *ChatServer) Relay(targetUserId string, ev *ServerEvent) {
	conns := cs.registry.ConnectionsOf(targetUserId)
	if len(conns) == 0 {
		return
	}

	for _, c := range conns {
		c.queueEvent(ev)
	}
	cs.stats.Incr(MetricCallsRelayed)
}
