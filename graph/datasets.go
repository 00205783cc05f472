package graph

import "github.com/hupe1980/analystloop/tabular"

// datasetIndex maps dataset names to the latest dataset of that name,
// remembering first-insertion order so staging is deterministic.
type datasetIndex struct {
	order  []string
	byName map[string]*tabular.Dataset
}

func newDatasetIndex() *datasetIndex {
	return &datasetIndex{byName: make(map[string]*tabular.Dataset)}
}

// put stores ds, replacing an earlier dataset of the same name.
func (x *datasetIndex) put(ds *tabular.Dataset) {
	if _, ok := x.byName[ds.Name()]; !ok {
		x.order = append(x.order, ds.Name())
	}
	x.byName[ds.Name()] = ds
}

func (x *datasetIndex) get(name string) (*tabular.Dataset, bool) {
	ds, ok := x.byName[name]
	return ds, ok
}

func (x *datasetIndex) list() []*tabular.Dataset {
	out := make([]*tabular.Dataset, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.byName[name])
	}
	return out
}

func (x *datasetIndex) names() []string {
	return append([]string(nil), x.order...)
}
