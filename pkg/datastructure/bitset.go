package datastructure

// Bitset service-day validity bitset for timetable edges. bit i set means the
// edge is traversable on day i relative to the feed epoch.
type Bitset struct {
	words []uint64
	size  int
}

func NewBitset(size int) *Bitset {
	return &Bitset{
		words: make([]uint64, (size+63)/64),
		size:  size,
	}
}

func (b *Bitset) Size() int {
	return b.size
}

func (b *Bitset) Set(i int) {
	if i < 0 || i >= b.size {
		return
	}
	b.words[i/64] |= 1 << (uint(i) % 64)
}

func (b *Bitset) Get(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.words[i/64]&(1<<(uint(i)%64)) != 0
}

func (b *Bitset) Words() []uint64 {
	return b.words
}

func (b *Bitset) SetWords(words []uint64) {
	copy(b.words, words)
}

// ShiftLeft returns a copy with every set day moved s days later. used for
// stop times past midnight, where the event day is offset from the service day.
func (b *Bitset) ShiftLeft(s int) *Bitset {
	out := NewBitset(b.size)
	for i := 0; i < b.size; i++ {
		if b.Get(i) && i+s < b.size {
			out.Set(i + s)
		}
	}
	return out
}
