package intent

// Category is the closed-set label chosen for an utterance.
type Category string

const (
	Home     Category = "home"
	Booking  Category = "booking"
	Services Category = "services"
	Pricing  Category = "pricing"
	Help     Category = "help"
	Thanks   Category = "thanks"
	Track    Category = "track"
	Problem  Category = "problem"
	Feedback Category = "feedback"
	Support  Category = "support"
	Default  Category = "default"
)

// Declaration order doubles as tie-break order; several keyword sets overlap on purpose.
var declared = []Category{Home, Booking, Services, Pricing, Help, Thanks, Track, Problem, Feedback, Support, Default}

var known = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(declared))
	for _, c := range declared {
		m[c] = struct{}{}
	}
	return m
}()

var pages = map[Category]string{
	Home:     "/",
	Booking:  "/booking",
	Services: "/services",
	Pricing:  "/pricing",
	Track:    "/track",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return append([]Category(nil), declared...)
}

// Valid reports whether c is part of the closed set.
func (c Category) Valid() bool {
	_, ok := known[c]
	return ok
}

// Page returns the page a navigating category leads to.
func (c Category) Page() (string, bool) {
	path, ok := pages[c]
	return path, ok
}

// Navigates reports whether the category leads to another page.
func (c Category) Navigates() bool {
	_, ok := pages[c]
	return ok
}

// SwitchesView reports whether the category opens an in-assistant form.
func (c Category) SwitchesView() bool {
	return c == Feedback || c == Support
}
