package timeindex

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entriesAt(ts ...float64) []Entry[int] {
	out := make([]Entry[int], len(ts))
	for i, t := range ts {
		out[i] = Entry[int]{Timestamp: t, Value: i}
	}
	return out
}

func TestLookup_Empty(t *testing.T) {
	for _, p := range Policies {
		t.Run(string(p), func(t *testing.T) {
			_, err := lookup(entriesAt(), 50, p)
			assert.ErrorIs(t, err, ErrEmpty)
			assert.NotErrorIs(t, err, ErrOutOfBounds)
		})
	}
}

func TestLookup_Table(t *testing.T) {
	entries := entriesAt(1000, 2000, 3000)

	tests := []struct {
		name   string
		q      float64
		policy Policy
		want   int // index into entries, -1 for ErrOutOfBounds
	}{
		{"prev_exact", 2000, NearestPrev, 1},
		{"prev_between", 2500, NearestPrev, 1},
		{"prev_after_all", 4000, NearestPrev, 2},
		{"prev_before_all", 500, NearestPrev, -1},
		{"next_exact", 2000, NearestNext, 1},
		{"next_between", 1500, NearestNext, 1},
		{"next_before_all", 500, NearestNext, 0},
		{"next_after_all", 4000, NearestNext, -1},
		{"nearest_closer_prev", 1100, Nearest, 0},
		{"nearest_closer_next", 1900, Nearest, 1},
		{"nearest_tie_earlier", 1500, Nearest, 0},
		{"nearest_before_all", 0, Nearest, 0},
		{"nearest_after_all", 9999, Nearest, 2},
		{"nearest_exact", 3000, Nearest, 2},
		{"prev_neg_inf", math.Inf(-1), NearestPrev, -1},
		{"next_pos_inf", math.Inf(1), NearestNext, -1},
		{"nearest_pos_inf", math.Inf(1), Nearest, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lookup(entries, tt.q, tt.policy)
			if tt.want < 0 {
				assert.ErrorIs(t, err, ErrOutOfBounds)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup_DuplicateTimestamps(t *testing.T) {
	entries := entriesAt(100, 200, 200, 200, 300)

	prev, err := lookup(entries, 200, NearestPrev)
	require.NoError(t, err)
	assert.Equal(t, 3, prev, "nearest_prev picks the last of equal timestamps")

	next, err := lookup(entries, 200, NearestNext)
	require.NoError(t, err)
	assert.Equal(t, 1, next, "nearest_next picks the first of equal timestamps")

	nearest, err := lookup(entries, 200, Nearest)
	require.NoError(t, err)
	assert.Equal(t, prev, nearest, "exact match ties resolve to the nearest_prev candidate")
}

func TestLookup_NaN(t *testing.T) {
	for _, p := range Policies {
		_, err := lookup(entriesAt(1, 2), math.NaN(), p)
		assert.ErrorIs(t, err, ErrOutOfBounds)
	}
}

func TestLookup_UnknownPolicy(t *testing.T) {
	_, err := lookup(entriesAt(1), 1, Policy("closest"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closest")
}

// TestLookup_Properties compares every policy against a linear scan over
// random sorted timestamps.
func TestLookup_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(40)
		ts := make([]float64, n)
		cur := float64(rng.IntN(100))
		for i := range ts {
			cur += float64(rng.IntN(3)) // duplicates are likely
			ts[i] = cur
		}
		entries := entriesAt(ts...)

		for probe := 0; probe < 20; probe++ {
			q := ts[0] - 5 + rng.Float64()*(ts[n-1]-ts[0]+10)
			q = math.Round(q*2) / 2 // hit exact matches and midpoints

			prevWant, nextWant := -1, -1
			for i, e := range entries {
				if e.Timestamp <= q {
					prevWant = i
				}
				if e.Timestamp >= q && nextWant < 0 {
					nextWant = i
				}
			}

			prev, err := lookup(entries, q, NearestPrev)
			if prevWant < 0 {
				require.ErrorIs(t, err, ErrOutOfBounds)
			} else {
				require.NoError(t, err)
				require.Equal(t, prevWant, prev)
				require.LessOrEqual(t, entries[prev].Timestamp, q)
			}

			next, err := lookup(entries, q, NearestNext)
			if nextWant < 0 {
				require.ErrorIs(t, err, ErrOutOfBounds)
			} else {
				require.NoError(t, err)
				require.Equal(t, nextWant, next)
				require.GreaterOrEqual(t, entries[next].Timestamp, q)
			}

			nearest, err := lookup(entries, q, Nearest)
			require.NoError(t, err)
			switch {
			case prevWant < 0:
				require.Equal(t, nextWant, nearest)
			case nextWant < 0:
				require.Equal(t, prevWant, nearest)
			case q-ts[prevWant] <= ts[nextWant]-q:
				require.Equal(t, prevWant, nearest)
			default:
				require.Equal(t, nextWant, nearest)
			}
		}
	}
}

func TestIndex_Between(t *testing.T) {
	x := &index[int]{entries: entriesAt(0, 100, 200, 300, 400, 500, 600)}

	got := x.between(200, 500)
	require.Len(t, got, 4)
	assert.Equal(t, 200.0, got[0].Timestamp)
	assert.Equal(t, 500.0, got[3].Timestamp)

	assert.Empty(t, x.between(601, 700))
	assert.Empty(t, x.between(150, 199))
	assert.Empty(t, x.between(500, 200), "inverted bounds are empty")
	assert.Empty(t, x.between(math.NaN(), 1000))
	assert.Len(t, x.between(math.Inf(-1), math.Inf(1)), 7)
}

func TestIndex_SnapshotIsCapped(t *testing.T) {
	x := &index[int]{entries: make([]Entry[int], 2, 16)}

	s := x.snapshot()
	s = append(s, Entry[int]{Timestamp: 99})
	x.push(Entry[int]{Timestamp: 1})

	assert.Equal(t, 99.0, s[2].Timestamp, "snapshot append must not alias the index")
	assert.Equal(t, 1.0, x.entries[2].Timestamp)
}

func TestLoadIndex_CorruptOrder(t *testing.T) {
	path := writeLog(t, `{"t":100,"v":{"value":1}}
{"t":200,"v":{"value":2}}
{"t":150,"v":{"value":3}}
`)
	l, err := openLog(path)
	require.NoError(t, err)

	_, err = loadIndex(l, NewCodec(JSON[sample]()))
	require.ErrorIs(t, err, ErrCorruptIndex)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 3, terr.Line)
	assert.Equal(t, path, terr.Path)
}
