package trellis

// Pipe connects a rule to a piece of external, possibly slow work without
// blocking the sweep that requests it: Send pulses a request through a
// Discrete cell a Modifier-side collaborator watches for; once that
// collaborator finishes the work it calls Fulfill, landing the result in
// an ordinary Value cell that rules pick up on a later sweep. This is the
// request/response half of the generator-task collaborator pattern (the
// clock/task/idle-loop examples) factored out as a reusable primitive
// rather than grown bespoke in each one.
//
// Grounded on primitives.go's Stream: a channel handed back immediately
// while a goroutine produces results asynchronously. Trellis has no
// goroutines of its own crossing the engine boundary, so Pipe replaces
// the channel with two cells instead — the same fire-and-collect-later
// shape, moved onto the reactive graph.
type Pipe[Req, Resp any] struct {
	name     string
	request  *Cell[Req]
	response *Cell[Resp]
}

// NewPipe creates a pipe with the given zero/idle values for its request
// and response cells.
func NewPipe[Req, Resp any](e *Engine, name string, zeroReq Req, zeroResp Resp) *Pipe[Req, Resp] {
	return &Pipe[Req, Resp]{
		name:     name,
		request:  NewInputDiscrete[Req](e, name+".Request", zeroReq),
		response: NewValue[Resp](e, name+".Response", zeroResp),
	}
}

// Request exposes the pipe's outstanding request as a Discrete cell: a
// Modifier-side collaborator reads it to learn when to start work.
func (p *Pipe[Req, Resp]) Request() *Cell[Req] { return p.request }

// Response exposes the pipe's result as a Value cell: a rule reads it to
// pick up whatever the collaborator last produced.
func (p *Pipe[Req, Resp]) Response() *Cell[Resp] { return p.response }

// Send pulses req through the request cell for the sweep presently in
// progress. Intended to be called from a rule.
func (p *Pipe[Req, Resp]) Send(req Req) error {
	return p.request.Write(req)
}

// Fulfill lands resp in the response cell. Intended to be called by
// Modifier-side code once the work requested via Send has completed.
func (p *Pipe[Req, Resp]) Fulfill(resp Resp) error {
	return p.response.Write(resp)
}
