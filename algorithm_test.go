package consensus

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAlgorithmByName(t *testing.T) {
	tests := []struct {
		name          string
		wantName      string
		acceptsMatrix bool
	}{
		{"hierarchical", "hierarchical-average", true},
		{"Hierarchical", "hierarchical-average", true},
		{"kmeans", "kmeans", false},
		{"KMeans", "kmeans", false},
		{"pam", "pam", true},
		{"som", "som", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alg, err := AlgorithmByName(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if alg.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", alg.Name(), tt.wantName)
			}
			if alg.AcceptsDistanceMatrix() != tt.acceptsMatrix {
				t.Errorf("AcceptsDistanceMatrix() = %v, want %v", alg.AcceptsDistanceMatrix(), tt.acceptsMatrix)
			}
		})
	}

	if _, err := AlgorithmByName("dbscan"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("unknown algorithm: got %v, want ErrConfiguration", err)
	}
}

func TestValidateFinalAlgorithm(t *testing.T) {
	if err := validateFinalAlgorithm(&Hierarchical{}); err != nil {
		t.Errorf("hierarchical: %v", err)
	}
	if err := validateFinalAlgorithm(&PAM{}); err != nil {
		t.Errorf("pam: %v", err)
	}
	for _, alg := range []Algorithm{&KMeans{}, &SOM{}, nil} {
		if err := validateFinalAlgorithm(alg); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%T: got %v, want ErrConfiguration", alg, err)
		}
	}
}

func TestInputValidate(t *testing.T) {
	data := mat.NewDense(3, 2, nil)

	tests := []struct {
		name     string
		in       Input
		needData bool
		want     error
	}{
		{"ok", Input{Data: data, K: 2}, true, nil},
		{"K too large", Input{Data: data, K: 4}, true, ErrConfiguration},
		{"K zero", Input{Data: data, K: 0}, true, ErrConfiguration},
		{"missing data", Input{Distances: mat.NewSymDense(3, nil), K: 2}, true, ErrConfiguration},
		{"distances only", Input{Distances: mat.NewSymDense(3, nil), K: 2}, false, nil},
		{"nothing", Input{K: 1}, false, ErrData},
		{"size mismatch", Input{Data: data, Distances: mat.NewSymDense(2, nil), K: 1}, true, ErrData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.validate("test", tt.needData)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInputDistancesIsCached(t *testing.T) {
	in := Input{Data: fourPoints(), K: 2}
	in.applyDefaults()
	first := in.distances()
	if second := in.distances(); first != second {
		t.Error("distances() rebuilt the matrix")
	}
	if !almostEqual(first.At(0, 2), 10, floatTol) {
		t.Errorf("d(0,2) = %v, want 10", first.At(0, 2))
	}
}
