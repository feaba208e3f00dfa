package trellis

import "weak"

// Subjects hold listeners weakly so that a listener which is otherwise
// unreachable can be collected without the subject having to know about
// its disposal;
// listeners hold their subjects strongly, since a rule needs its subjects
// to stay alive as long as it might re-read them.
//
// Grounded on fd_monitor.go, which tracks, per finite-domain variable,
// the set of interested watchers to notify on a domain change;
// generalized here into a real bidirectional graph with weak back-edges
// using the standard library's weak package — watchers owned outright by
// a solver have no need for that, but a subject that outlives one of its
// listeners does.

// addLink records that listener reads subject, deduplicating repeat
// subscriptions of the same pair. Returns true if a new link was created.
func addLink(subject, listener *cellNode) bool {
	for _, s := range listener.subjects {
		if s == subject {
			return false
		}
	}
	listener.subjects = append(listener.subjects, subject)
	subject.listeners = append(subject.listeners, weak.Make(listener))
	activateIfNeeded(subject)
	return true
}

// activateIfNeeded runs a sensor's connect hook the moment it gains its
// first listener: sensors connect lazily, on demand.
func activateIfNeeded(subject *cellNode) {
	if subject.kind != KindSensor || subject.connected || subject.connect == nil {
		return
	}
	if subject.countLiveListeners() == 0 {
		return
	}
	subject.connKey = subject.connect(subject)
	subject.connected = true
}

// deactivateIfNeeded runs a sensor's disconnect hook the moment its last
// listener goes away.
func deactivateIfNeeded(subject *cellNode) {
	if subject.kind != KindSensor || !subject.connected || subject.disconnect == nil {
		return
	}
	if subject.countLiveListeners() > 0 {
		return
	}
	subject.disconnect(subject, subject.connKey)
	subject.connKey = nil
	subject.connected = false
}

// clearSubjects drops every subject this listener currently depends on,
// scrubbing the reciprocal weak listener entry from each subject. Called
// before a rule re-runs, so that only subjects it reads this time remain
// linked.
func clearSubjects(listener *cellNode) {
	for _, subject := range listener.subjects {
		removeListener(subject, listener)
	}
	listener.subjects = listener.subjects[:0]
}

// removeListener excises listener's weak entry from subject.listeners.
func removeListener(subject, listener *cellNode) {
	out := subject.listeners[:0]
	for _, w := range subject.listeners {
		if p := w.Value(); p != nil && p != listener {
			out = append(out, w)
		}
	}
	subject.listeners = out
	deactivateIfNeeded(subject)
}

// iterListenersOf yields subject's listeners in reverse order of
// subscription, scrubbing any weak entries whose pointee has been
// collected.
func iterListenersOf(subject *cellNode, fn func(*cellNode)) {
	live := subject.listeners[:0]
	var alive []*cellNode
	for _, w := range subject.listeners {
		if p := w.Value(); p != nil {
			live = append(live, w)
			alive = append(alive, p)
		}
	}
	subject.listeners = live
	for i := len(alive) - 1; i >= 0; i-- {
		fn(alive[i])
	}
}

// iterSubjectsOf yields listener's subjects in reverse order of
// subscription.
func iterSubjectsOf(listener *cellNode, fn func(*cellNode)) {
	for i := len(listener.subjects) - 1; i >= 0; i-- {
		fn(listener.subjects[i])
	}
}
