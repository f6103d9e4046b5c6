// Package partition splits the iteration range of a series across
// processes and, inside a process, across threads.
//
// The process level always deals in contiguous blocks sized by ceiling
// division, so every process derives its own range from the same three
// integers without communicating. The thread level either sub-divides the
// process block into contiguous blocks or walks it cyclically with a
// stride, depending on the algorithm variant.
package partition

// Block is a half-open index range [Start, End).
type Block struct {
	Start int
	End   int
}

// Len returns the number of indices in the block.
func (b Block) Len() int { return b.End - b.Start }

// IsEmpty reports whether the block contains no indices. Trailing
// processes of an uneven split receive empty blocks and contribute a zero
// partial sum.
func (b Block) IsEmpty() bool { return b.Start >= b.End }

// Cycle is the strided index set First, First+Stride, ... below End.
type Cycle struct {
	First  int
	End    int
	Stride int
}

// Len returns the number of indices the cycle visits.
func (c Cycle) Len() int {
	if c.First >= c.End {
		return 0
	}
	return (c.End - c.First + c.Stride - 1) / c.Stride
}

// ProcessBlock returns the contiguous block owned by rank when total
// iterations are split across procs processes. Blocks are sized by ceiling
// division and the last ones are clamped, so ranks past the end of the
// range receive empty blocks rather than inverted ones.
func ProcessBlock(total, procs, rank int) Block {
	size := (total + procs - 1) / procs
	start := rank * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return Block{Start: start, End: end}
}

// ThreadBlock sub-divides a process block into contiguous per-thread
// blocks, again by ceiling division with clamping.
func ThreadBlock(b Block, tid, threads int) Block {
	size := (b.Len() + threads - 1) / threads
	start := b.Start + tid*size
	if start > b.End {
		start = b.End
	}
	end := start + size
	if end > b.End {
		end = b.End
	}
	return Block{Start: start, End: end}
}

// ThreadBlocks returns the per-thread sub-blocks of b in thread order.
func ThreadBlocks(b Block, threads int) []Block {
	blocks := make([]Block, threads)
	for tid := 0; tid < threads; tid++ {
		blocks[tid] = ThreadBlock(b, tid, threads)
	}
	return blocks
}

// ThreadCycle returns the strided index set thread tid owns when the
// process block is walked cyclically by threads threads.
func ThreadCycle(b Block, tid, threads int) Cycle {
	first := b.Start + tid
	if first > b.End {
		first = b.End
	}
	return Cycle{First: first, End: b.End, Stride: threads}
}

// Feasible reports whether total iterations are enough to give every
// thread of every process at least one index.
func Feasible(total, procs, threads int) bool {
	return total >= procs*threads
}
