package consensus

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// perturbation is the kind of structural change applied to the data in one
// subsample round.
type perturbation int

const (
	perturbNone perturbation = iota
	perturbRows
	perturbColumns
	perturbBoth
)

func (p perturbation) String() string {
	switch p {
	case perturbRows:
		return "rows"
	case perturbColumns:
		return "columns"
	case perturbBoth:
		return "rows+columns"
	default:
		return "none"
	}
}

// round is the data one subsample round clusters. Row r of data is the
// sample at index rows[r].
type round struct {
	kind perturbation
	rows []int
	data *mat.Dense
}

// perturber draws the per-round datasets.
type perturber struct {
	full *mat.Dense

	// sampleCount and featureCount are the subsample sizes; 0 disables
	// subsampling altogether and every round is a plain shuffle.
	sampleCount  int
	featureCount int

	normalizeVariance bool
}

func newPerturber(full *mat.Dense, fraction float64, normalizeVariance bool) *perturber {
	p := &perturber{full: full, normalizeVariance: normalizeVariance}
	if fraction > 0 {
		n, m := full.Dims()
		p.sampleCount = int(float64(n) * fraction)
		p.featureCount = int(float64(m) * fraction)
	}
	return p
}

// draw picks one of the four perturbations uniformly at random (or none when
// subsampling is off) and samples rows and columns without replacement. Rows
// are always shuffled, even when all of them are kept.
func (p *perturber) draw(rng *rand.Rand) round {
	kind := perturbNone
	if p.sampleCount > 0 {
		kind = perturbation(rng.Intn(4))
	}

	n, m := p.full.Dims()
	rows := rng.Perm(n)
	if kind == perturbRows || kind == perturbBoth {
		rows = rows[:p.sampleCount]
	}

	var cols []int
	if kind == perturbColumns || kind == perturbBoth {
		cols = rng.Perm(m)[:p.featureCount]
	}

	width := m
	if cols != nil {
		width = len(cols)
	}
	data := mat.NewDense(len(rows), width, nil)
	for r, src := range rows {
		srcRow := p.full.RawRowView(src)
		dst := data.RawRowView(r)
		if cols == nil {
			copy(dst, srcRow)
			continue
		}
		for c, j := range cols {
			dst[c] = srcRow[j]
		}
	}

	if p.normalizeVariance {
		normalizeColumns(data)
	}

	return round{kind: kind, rows: rows, data: data}
}

// normalizeColumns divides every column by its standard deviation across
// the rows of m. Constant columns are left untouched.
func normalizeColumns(m *mat.Dense) {
	_, cols := m.Dims()
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, m)
		v := stat.PopVariance(col, nil)
		if v == 0 || math.IsNaN(v) {
			continue
		}
		sd := math.Sqrt(v)
		for i, x := range col {
			m.Set(i, j, x/sd)
		}
	}
}
