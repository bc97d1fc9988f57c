package align

import (
	"errors"
	"math"
)

// Subsequence DTW with an asymmetric step pattern.
//
// The query q (length n) is consumed one element per step; the series s
// (length m) may hold (advance 0), move on (advance 1) or skip one element
// (advance 2) at each step. The path may begin at any series index and end
// at any series index, so a short riff can be located inside a longer take
// with silence or noodling around it.
//
// Recurrence over an (n+1)x(m+1) table D:
//
//	D[0][j] = 0                       for j = 0..m   (open begin)
//	D[i][0] = +Inf                    for i = 1..n
//	D[i][j] = |q[i-1]-s[j-1]| + min(D[i-1][j-1], D[i-1][j], D[i-1][j-2])
//
// The path ends at the smallest j minimizing D[n][j] (open end) and is
// recovered from stored step choices. It always has exactly n pairs.
//
// Memory: two float rows plus one byte per cell for the step choices.
// Time: O(n*m).

// ErrEmptySequence is returned by subsequenceDTW for empty input.
var ErrEmptySequence = errors.New("align: input sequences must be non-empty")

type step uint8

const (
	stepDiagonal step = iota // series advances by 1
	stepHold                 // series stays on the same element
	stepSkip                 // series advances by 2
)

// advance is how far each step moves the series index.
var advance = [...]int{stepDiagonal: 1, stepHold: 0, stepSkip: 2}

// warpPath is a query/series index pairing of equal-length slices.
type warpPath struct {
	query  []int
	series []int
	total  float64
}

func subsequenceDTW(q, s []float64) (warpPath, error) {
	n, m := len(q), len(s)
	if n == 0 || m == 0 {
		return warpPath{}, ErrEmptySequence
	}

	inf := math.Inf(1)
	prev := make([]float64, m+1) // row 0: open begin
	curr := make([]float64, m+1)
	steps := make([]step, (n+1)*(m+1))

	for i := 1; i <= n; i++ {
		curr[0] = inf
		qi := q[i-1]
		row := steps[i*(m+1):]
		for j := 1; j <= m; j++ {
			best, choice := prev[j-1], stepDiagonal
			if prev[j] < best {
				best, choice = prev[j], stepHold
			}
			if j >= 2 && prev[j-2] < best {
				best, choice = prev[j-2], stepSkip
			}
			curr[j] = math.Abs(qi-s[j-1]) + best
			row[j] = choice
		}
		prev, curr = curr, prev
	}

	// prev now holds row n.
	endJ := 1
	for j := 2; j <= m; j++ {
		if prev[j] < prev[endJ] {
			endJ = j
		}
	}

	p := warpPath{
		query:  make([]int, n),
		series: make([]int, n),
		total:  prev[endJ],
	}
	j := endJ
	for i := n; i >= 1; i-- {
		p.query[i-1] = i - 1
		p.series[i-1] = j - 1
		j -= advance[steps[i*(m+1)+j]]
	}
	return p, nil
}
