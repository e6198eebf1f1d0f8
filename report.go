package consensus

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ClusterGroup is one final cluster: its label and the identifiers of its
// members in sample order.
type ClusterGroup struct {
	Label int
	IDs   []string
}

// Clusters groups sample identifiers by ClusterID, with groups in order of
// first appearance. Unlabelled samples are left out.
func Clusters(samples []*Sample) []ClusterGroup {
	var groups []ClusterGroup
	pos := make(map[int]int)
	for _, s := range samples {
		if s.ClusterID == NoCluster {
			continue
		}
		i, ok := pos[s.ClusterID]
		if !ok {
			i = len(groups)
			pos[s.ClusterID] = i
			groups = append(groups, ClusterGroup{Label: s.ClusterID})
		}
		groups[i].IDs = append(groups[i].IDs, s.ID)
	}
	return groups
}

// GroupMap indexes groups by their label rendered as a string, the form
// CompareClusterings and ReadReport use.
func GroupMap(groups []ClusterGroup) map[string][]string {
	m := make(map[string][]string, len(groups))
	for _, g := range groups {
		m[strconv.Itoa(g.Label)] = g.IDs
	}
	return m
}

// WriteReport writes the clusters of samples as a plain text report:
//
//	Cluster 0 (3):
//		a	class
//		b
//
// The class column is written for samples that have a Class.
func WriteReport(w io.Writer, samples []*Sample) error {
	class := make(map[string]string, len(samples))
	for _, s := range samples {
		class[s.ID] = s.Class
	}

	bw := bufio.NewWriter(w)
	for _, g := range Clusters(samples) {
		fmt.Fprintf(bw, "Cluster %d (%d):\n", g.Label, len(g.IDs))
		for _, id := range g.IDs {
			if c := class[id]; c != "" {
				fmt.Fprintf(bw, "\t%s\t%s\n", id, c)
			} else {
				fmt.Fprintf(bw, "\t%s\n", id)
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadReport parses a cluster report. Lines starting with "Cluster" open a
// cluster named by their second field; tab-indented lines add the first
// column as a member of the current cluster. Everything else is ignored.
func ReadReport(r io.Reader) (map[string][]string, error) {
	clusters := make(map[string][]string)
	current := ""
	open := false

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		switch {
		case len(fields) >= 2 && fields[0] == "Cluster":
			current = strings.TrimSuffix(fields[1], ":")
			clusters[current] = nil
			open = true
		case open && strings.HasPrefix(line, "\t") && len(fields) > 0:
			id := strings.Split(strings.TrimSpace(line), "\t")[0]
			clusters[current] = append(clusters[current], id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading cluster report: %w", err)
	}
	return clusters, nil
}

// Relation describes how much of one cluster of the first clustering is
// found in one cluster of the second.
type Relation struct {
	From, To string

	// MatchRate is the fraction of From's members that are also in To.
	MatchRate float64

	// Troublemakers are the members of From missing from To. They are only
	// reported for a near match, a rate in [0.75, 1).
	Troublemakers []string

	// Traitors are the members of From found in To. They are only reported
	// for a weak match, a rate in (0, 0.25].
	Traitors []string
}

// CompareClusterings relates every cluster of a to every cluster of b.
// Relations are grouped by From in sorted name order and, within a From,
// sorted by increasing match rate (ties by To). An empty From cluster has a
// match rate of 0 with everything.
func CompareClusterings(a, b map[string][]string) []Relation {
	fromNames := sortedKeys(a)
	toNames := sortedKeys(b)

	members := make(map[string]map[string]bool, len(b))
	for name, ids := range b {
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		members[name] = set
	}

	rels := make([]Relation, 0, len(a)*len(b))
	for _, from := range fromNames {
		start := len(rels)
		for _, to := range toNames {
			var present, missing []string
			for _, id := range a[from] {
				if members[to][id] {
					present = append(present, id)
				} else {
					missing = append(missing, id)
				}
			}

			rel := Relation{From: from, To: to}
			if total := len(a[from]); total > 0 {
				rel.MatchRate = float64(len(present)) / float64(total)
			}
			if rel.MatchRate >= 0.75 && rel.MatchRate < 1 {
				rel.Troublemakers = missing
			}
			if rel.MatchRate > 0 && rel.MatchRate <= 0.25 {
				rel.Traitors = present
			}
			rels = append(rels, rel)
		}

		group := rels[start:]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].MatchRate < group[j].MatchRate
		})
	}
	return rels
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
