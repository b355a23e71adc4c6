package validator

// BaseDenylist names host capabilities an expression must never reference.
var BaseDenylist = []string{
	"eval",
	"Function",
	"constructor",
	"window",
	"document",
	"process",
	"global",
	"require",
	"import",
	"__proto__",
	"prototype",
}

// ExtendedDenylist covers code construction, scope access and reflection
// names that are not reachable through the base list alone.
var ExtendedDenylist = []string{
	"function",
	"new",
	"this",
	"globalThis",
	"setTimeout",
	"setInterval",
	"arguments",
	"Reflect",
	"Proxy",
}

// DefaultDenylist returns the base and extended lists combined.
func DefaultDenylist() []string {
	out := make([]string, 0, len(BaseDenylist)+len(ExtendedDenylist))
	out = append(out, BaseDenylist...)
	return append(out, ExtendedDenylist...)
}
