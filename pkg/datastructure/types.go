package datastructure

import (
	"golang.org/x/exp/constraints"
)

type Index int32

const (
	INVALID_NODE_ID Index = -1
	INVALID_EDGE_ID Index = -1
)

func MaxG[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func MinG[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
