package physics

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/core/observability/log"
)

const (
	DefaultMaxDepth      = 10
	DefaultMaxIterations = 5
)

// Outcome reports how a Resolve call finished.
type Outcome uint8

const (
	// OutcomeIdle means nothing moved: dt or speed was effectively zero.
	OutcomeIdle Outcome = iota
	// OutcomeMoved means the body travelled for the rest of the tick.
	OutcomeMoved
	// OutcomeBlocked means the velocity pointed into a wedge of contacts and was zeroed.
	OutcomeBlocked
	// OutcomeIterationBound means the per-call contact loop hit its cap.
	OutcomeIterationBound
	// OutcomeDepthBound means re-entry hit the recursion cap.
	OutcomeDepthBound
	// OutcomeNoEscape means no contact of a wedge could be picked to slide along.
	OutcomeNoEscape
	// OutcomeInvalid means the body or policy was rejected untouched.
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeMoved:
		return "moved"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeIterationBound:
		return "iteration_bound"
	case OutcomeDepthBound:
		return "depth_bound"
	case OutcomeNoEscape:
		return "no_escape"
	case OutcomeInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Aborted reports whether a bound cut the tick short.
func (o Outcome) Aborted() bool {
	return o == OutcomeIterationBound || o == OutcomeDepthBound
}

// Trace is the diagnostic record of one Resolve call. It exists for
// visualisation and metrics only; nothing in the resolver reads it back.
type Trace struct {
	// Contacts lists every contact the resolver acted on, in order.
	Contacts []SweepHit
	// CenterNormal is the last wedge aggregate normal, zero if no wedge was met.
	CenterNormal r2.Point
	Outcome      Outcome
	// Iterations counts contact-loop passes across all re-entries.
	Iterations int
	// Depth is the deepest re-entry reached. A re-sweep after the velocity
	// changed with no contact left also re-enters, so it spends depth too.
	Depth int
}

// Resolver advances circular bodies through a SpatialQuery, one tick at a time.
// A Resolver holds no per-body state and is safe for concurrent use as long
// as its SpatialQuery is.
type Resolver struct {
	query         SpatialQuery
	classifier    ContactClassifier
	logger        log.Log
	epsilon       float64
	maxDepth      int
	maxIterations int
}

type Option func(*Resolver)

func WithEpsilon(eps float64) Option {
	return func(r *Resolver) {
		if eps > 0 {
			r.epsilon = eps
		}
	}
}

func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

func WithMaxIterations(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithClassifier replaces the default EpsilonClassifier.
func WithClassifier(c ContactClassifier) Option {
	return func(r *Resolver) {
		if c != nil {
			r.classifier = c
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(query SpatialQuery, opts ...Option) *Resolver {
	r := &Resolver{
		query:         query,
		logger:        log.Nop(),
		epsilon:       DefaultEpsilon,
		maxDepth:      DefaultMaxDepth,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.classifier == nil {
		r.classifier = EpsilonClassifier{Epsilon: r.epsilon}
	}
	return r
}

// WithQuery returns a copy of r that sweeps against q.
func (r *Resolver) WithQuery(q SpatialQuery) *Resolver {
	c := *r
	c.query = q
	return &c
}

// Epsilon returns the zero tolerance in use.
func (r *Resolver) Epsilon() float64 { return r.epsilon }

// Resolve advances body over dt using the body's own response policy.
func (r *Resolver) Resolve(body Body, dt float64) (Body, Trace) {
	return r.ResolveWith(body, dt, body.Response)
}

// ResolveWith advances body over dt along its velocity, resolving every
// collision on the way with the given response policy, and returns the
// updated body. It never fails: degenerate input is a no-op and bound
// overruns leave the body at its last non-overlapping position.
func (r *Resolver) ResolveWith(body Body, dt float64, response Response) (Body, Trace) {
	var trace Trace
	if !(body.Radius > 0) || !response.Valid() {
		trace.Outcome = OutcomeInvalid
		r.logger.Warn("motion resolver rejected body",
			idField("body", body.ID),
			log.Float64("radius", body.Radius),
			log.Stringer("response", response),
		)
		return body, trace
	}
	r.move(&body, response, dt, 0, &trace)
	return body, trace
}

func (r *Resolver) move(b *Body, response Response, dt float64, depth int, trace *Trace) {
	if dt <= r.epsilon || b.Velocity.Norm() <= r.epsilon {
		if depth == 0 {
			trace.Outcome = OutcomeIdle
		} else {
			trace.Outcome = OutcomeMoved
		}
		return
	}
	if depth > r.maxDepth {
		trace.Outcome = OutcomeDepthBound
		r.logger.Warn("motion resolver recursion bound exceeded",
			idField("body", b.ID),
			log.Int("depth", depth),
			log.Float64("remaining", dt),
		)
		return
	}
	if depth > trace.Depth {
		trace.Depth = depth
	}

	origin := b.Position
	offset := b.Velocity.Mul(dt)
	travel := offset.Norm()

	hits := r.query.SweepCircle(origin, b.Radius, b.Velocity, travel)
	if len(hits) == 0 {
		b.Position = origin.Add(offset)
		trace.Outcome = OutcomeMoved
		return
	}

	working := make([]SweepHit, len(hits))
	copy(working, hits)
	SortHits(working)

	// stale is set once the remaining hits no longer describe the path ahead:
	// the velocity changed after the sweep above, or it still presses into a
	// contact that was dropped from the working set.
	stale := false
	redirect := func(n r2.Point) {
		before := b.Velocity
		b.Velocity = response.Apply(b.Velocity, n)
		if b.Velocity.Sub(before).Norm() > r.epsilon {
			stale = true
		}
	}

	for iteration := 1; ; iteration++ {
		if iteration > r.maxIterations {
			trace.Outcome = OutcomeIterationBound
			r.logger.Warn("motion resolver iteration bound exceeded",
				idField("body", b.ID),
				log.Int("iterations", r.maxIterations),
				log.Int("depth", depth),
				log.Int("pending", len(working)),
			)
			return
		}
		trace.Iterations++

		touching, first, hasFirst := r.classifier.Classify(working)

		switch {
		case len(touching) == 0 && stale:
			// Whatever is left was swept along the old velocity.
			r.move(b, response, dt, depth+1, trace)
			return

		case len(touching) == 0 && !hasFirst:
			b.Position = b.Position.Add(offset)
			trace.Outcome = OutcomeMoved
			return

		case len(touching) == 0:
			trace.Contacts = append(trace.Contacts, first)
			b.Position = Place(first, b.Radius)
			consumed := 0.0
			if travel > r.epsilon {
				consumed = clamp01(Distance(b.Position, origin) / travel)
			}
			b.Velocity = response.Apply(b.Velocity, first.Normal)
			// Re-entry runs for the travelled fraction of dt.
			r.move(b, response, consumed*dt, depth+1, trace)
			return

		case len(touching) == 1:
			hit := touching[0]
			trace.Contacts = append(trace.Contacts, hit)
			b.Position = Place(hit, b.Radius)
			if b.Velocity.Dot(hit.Normal) < 0 {
				redirect(hit.Normal)
			}
			offset = b.Velocity.Mul(dt)
			working = removeHits(working, touching)

		default:
			trace.Contacts = append(trace.Contacts, touching...)
			center := CenterNormal(touching)
			trace.CenterNormal = center

			if Angle(center, b.Velocity) <= WedgeSpan(center, touching) {
				b.Velocity = r2.Point{}
				trace.Outcome = OutcomeBlocked
				return
			}

			escape, ok := EscapeContact(b.Velocity, touching)
			if !ok {
				trace.Outcome = OutcomeNoEscape
				r.logger.Debug("motion resolver found no escape contact",
					idField("body", b.ID),
					log.Int("contacts", len(touching)),
				)
				return
			}

			b.Position = Place(escape, b.Radius)
			// The aggregate normal, not the escape contact's own normal.
			redirect(center)
			for _, h := range touching {
				if b.Velocity.Dot(h.Normal) < -r.epsilon {
					stale = true
					break
				}
			}
			offset = b.Velocity.Mul(dt)
			working = removeHits(working, touching)
		}
	}
}

func idField[T ~string](key string, val T) log.Field {
	return log.String(key, string(val))
}
