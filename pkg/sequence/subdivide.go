package sequence

import "github.com/james-see/tonseq/pkg/event"

// Resolve flattens subdivision groups. A group's duration is split evenly
// among its children, recursively. Shares are exact fractions, so the
// resolved total always equals the total before resolution.
// Resolving a flat list returns it unchanged.
func Resolve(events []event.Event) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, ev := range events {
		out = appendResolved(out, ev)
	}
	return out
}

func appendResolved(out []event.Event, ev event.Event) []event.Event {
	g, ok := ev.(*event.Group)
	if !ok {
		return append(out, ev)
	}
	k := len(g.Children)
	if k == 0 {
		return append(out, &event.Rest{Dur: g.Dur})
	}
	share := g.Dur.Div(k)
	for _, child := range g.Children {
		c := child.Clone()
		c.SetLength(share)
		out = appendResolved(out, c)
	}
	return out
}
