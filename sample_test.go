package consensus

import (
	"errors"
	"testing"
)

func TestNewSamples(t *testing.T) {
	s := NewSamples(nil, [][]float64{{1, 2}, {3, 4}})
	if s[0].ID != "0" || s[1].ID != "1" {
		t.Errorf("default IDs = %q, %q", s[0].ID, s[1].ID)
	}
	for _, x := range s {
		if x.ClusterID != NoCluster {
			t.Errorf("new sample %q has ClusterID %d", x.ID, x.ClusterID)
		}
	}

	named := NewSamples([]string{"a", "b"}, [][]float64{{1}, {2}})
	if named[1].ID != "b" {
		t.Errorf("ID = %q, want b", named[1].ID)
	}
}

func TestAssignLabels(t *testing.T) {
	s := NewSamples(nil, make([][]float64, 4))

	AssignLabels(s, []int{3, 1}, []int{7, 8})
	want := []int{NoCluster, 8, NoCluster, 7}
	for i, x := range s {
		if x.ClusterID != want[i] {
			t.Errorf("sample %d: ClusterID %d, want %d", i, x.ClusterID, want[i])
		}
	}

	AssignLabels(s, nil, []int{0, 1, 2, 3})
	for i, x := range s {
		if x.ClusterID != i {
			t.Errorf("identity mapping: sample %d has %d", i, x.ClusterID)
		}
	}

	ResetClusters(s)
	for i, x := range s {
		if x.ClusterID != NoCluster {
			t.Errorf("after reset: sample %d has %d", i, x.ClusterID)
		}
	}
}

func TestValidateSamples(t *testing.T) {
	tests := []struct {
		name    string
		samples []*Sample
		wantErr bool
	}{
		{"ok", NewSamples(nil, [][]float64{{1, 2}, {3, 4}}), false},
		{"empty", nil, true},
		{"no features", NewSamples(nil, [][]float64{{}, {}}), true},
		{"ragged", NewSamples(nil, [][]float64{{1, 2}, {3}}), true},
		{"duplicate ids", NewSamples([]string{"x", "x"}, [][]float64{{1}, {2}}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSamples(tt.samples)
			if tt.wantErr && !errors.Is(err, ErrData) {
				t.Errorf("got %v, want ErrData", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCloneSamplesIsIndependent(t *testing.T) {
	s := NewSamples(nil, [][]float64{{1}, {2}})
	c := cloneSamples(s)
	c[0].ClusterID = 5
	if s[0].ClusterID != NoCluster {
		t.Error("clone shares ClusterID with the original")
	}
	if c[1].ID != s[1].ID {
		t.Errorf("clone ID = %q, want %q", c[1].ID, s[1].ID)
	}
}

func TestDataMatrix(t *testing.T) {
	m := dataMatrix(NewSamples(nil, [][]float64{{1, 2}, {3, 4}, {5, 6}}))
	r, c := m.Dims()
	if r != 3 || c != 2 || m.At(2, 1) != 6 {
		t.Errorf("dataMatrix = %d×%d, [2][1] = %v", r, c, m.At(2, 1))
	}
}

func TestNumericalError(t *testing.T) {
	var err error = &NumericalError{Sample: 3, Epoch: 12}
	if !errors.Is(err, ErrNumerical) {
		t.Error("NumericalError does not match ErrNumerical")
	}
	if err.Error() == "" {
		t.Error("empty message")
	}
}
