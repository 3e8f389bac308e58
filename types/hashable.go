package types

type Hashable interface {
	GetHashCode() uint64
}
