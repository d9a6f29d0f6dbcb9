package routing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDominates(t *testing.T) {
	tests := []struct {
		name string
		dom  Domination
		a, b Label
		want bool
	}{
		{
			name: "earlier and fewer transfers dominates",
			dom:  NewDomination(false, false, false),
			a:    Label{time: 100, nTransfers: 1},
			b:    Label{time: 200, nTransfers: 2},
			want: true,
		},
		{
			name: "equal in everything does not dominate",
			dom:  NewDomination(false, false, false),
			a:    Label{time: 100, nTransfers: 1},
			b:    Label{time: 100, nTransfers: 1},
			want: false,
		},
		{
			name: "trade-off is incomparable",
			dom:  NewDomination(false, false, false),
			a:    Label{time: 100, nTransfers: 3},
			b:    Label{time: 200, nTransfers: 1},
			want: false,
		},
		{
			name: "ignoring transfers collapses the trade-off",
			dom:  NewDomination(false, true, false),
			a:    Label{time: 100, nTransfers: 3},
			b:    Label{time: 200, nTransfers: 1},
			want: true,
		},
		{
			name: "more walk on the open leg blocks domination",
			dom:  NewDomination(false, false, false),
			a:    Label{time: 100, walkDistanceOnCurrentLeg: 400},
			b:    Label{time: 200, walkDistanceOnCurrentLeg: 100},
			want: false,
		},
		{
			name: "reverse prefers later times",
			dom:  NewDomination(true, false, false),
			a:    Label{time: 200},
			b:    Label{time: 100},
			want: true,
		},
		{
			name: "profile keeps the later first boarding",
			dom:  NewDomination(false, false, true),
			a:    Label{time: 100, firstPtDepartureTime: 50},
			b:    Label{time: 100, firstPtDepartureTime: 80},
			want: false,
		},
		{
			name: "profile dominates with equal first boarding",
			dom:  NewDomination(false, false, true),
			a:    Label{time: 100, firstPtDepartureTime: 50},
			b:    Label{time: 200, firstPtDepartureTime: 50},
			want: true,
		},
		{
			name: "unset first boarding compares as worst",
			dom:  NewDomination(false, false, true),
			a:    Label{time: 100, firstPtDepartureTime: 50},
			b:    Label{time: 100, firstPtDepartureTime: -1},
			want: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.dom.Dominates(&tc.a, &tc.b))
		})
	}
}

func TestParetoFrontInsert(t *testing.T) {
	arena := NewArena()
	dom := NewDomination(false, false, false)
	front := &ParetoFront{}

	first := arena.Add(Label{time: 200, nTransfers: 1})
	require.True(t, front.Insert(arena, dom, first, false))

	// dominated candidate is rejected and leaves the front untouched
	worse := arena.Add(Label{time: 300, nTransfers: 2})
	require.False(t, front.Insert(arena, dom, worse, false))
	require.Equal(t, []int32{first}, front.Labels())

	// incomparable candidate joins the front
	other := arena.Add(Label{time: 100, nTransfers: 3})
	require.True(t, front.Insert(arena, dom, other, false))
	require.Len(t, front.Labels(), 2)

	// dominating candidate evicts what it beats
	best := arena.Add(Label{time: 100, nTransfers: 1})
	require.True(t, front.Insert(arena, dom, best, false))
	require.Equal(t, []int32{best}, front.Labels())
}

func TestParetoFrontTies(t *testing.T) {
	arena := NewArena()
	dom := NewDomination(false, false, false)

	front := &ParetoFront{}
	a := arena.Add(Label{time: 100, nTransfers: 1})
	b := arena.Add(Label{time: 100, nTransfers: 1})
	require.True(t, front.Insert(arena, dom, a, false))
	require.False(t, front.Insert(arena, dom, b, false))

	// profile queries keep ties: equal-criteria paths are distinct solutions
	tieFront := &ParetoFront{}
	require.True(t, tieFront.Insert(arena, dom, a, true))
	require.True(t, tieFront.Insert(arena, dom, b, true))
	require.Len(t, tieFront.Labels(), 2)
}
