package shared

// AccessDecision is the outcome of the console access check.
type AccessDecision int

const (
	// AccessUnauthenticated means no live session; the caller should
	// redirect to the login surface.
	AccessUnauthenticated AccessDecision = iota
	// AccessForbidden means a live session without staff rights; the
	// caller must answer 403, never redirect back into the login loop.
	AccessForbidden
	// AccessAllowed admits the request to the console.
	AccessAllowed
)

// Decide maps the session state to a console access decision. Every staff
// check in the console goes through this function.
func Decide(authenticated, staff bool) AccessDecision {
	switch {
	case !authenticated:
		return AccessUnauthenticated
	case !staff:
		return AccessForbidden
	default:
		return AccessAllowed
	}
}

func (d AccessDecision) String() string {
	switch d {
	case AccessUnauthenticated:
		return "unauthenticated"
	case AccessForbidden:
		return "forbidden"
	default:
		return "allowed"
	}
}
