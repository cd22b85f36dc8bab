package models

// ReconcileStats counts what a merge changed at each level.
type ReconcileStats struct {
	ProcessesAdded   int
	ProcessesRemoved int
	ProcessesUpdated int
	EndpointsAdded   int
	EndpointsRemoved int
	EndpointsUpdated int
}

// Changed reports whether the merge altered anything below the metadata level.
func (s ReconcileStats) Changed() bool {
	return s != ReconcileStats{}
}

// Reconcile merges submitted into existing and returns the resulting tree.
//
// Processes are matched by identifier key and endpoints by transport
// profile. Entries only in existing are dropped, entries in both take the
// submitted fields, entries only in submitted are appended in submission
// order. Surviving entries keep their existing position. The metadata level
// extension always takes the submitted value.
//
// Neither argument is modified.
func Reconcile(existing, submitted ServiceMetadata) (ServiceMetadata, ReconcileStats) {
	var stats ReconcileStats

	incoming := make(map[string]Process, len(submitted.Processes))
	for _, p := range submitted.Processes {
		incoming[p.ProcessID.Key()] = p
	}

	merged := make([]Process, 0, len(submitted.Processes))
	kept := make(map[string]struct{}, len(existing.Processes))
	for _, current := range existing.Processes {
		key := current.ProcessID.Key()
		next, ok := incoming[key]
		if !ok {
			stats.ProcessesRemoved++
			stats.EndpointsRemoved += len(current.Endpoints)
			continue
		}
		kept[key] = struct{}{}
		process, changed := reconcileProcess(current, next, &stats)
		if changed {
			stats.ProcessesUpdated++
		}
		merged = append(merged, process)
	}
	for _, p := range submitted.Processes {
		if _, ok := kept[p.ProcessID.Key()]; ok {
			continue
		}
		stats.ProcessesAdded++
		stats.EndpointsAdded += len(p.Endpoints)
		merged = append(merged, cloneProcess(p))
	}

	return ServiceMetadata{
		ServiceGroupID: existing.ServiceGroupID,
		DocumentTypeID: existing.DocumentTypeID,
		Processes:      merged,
		Extension:      submitted.Extension,
	}, stats
}

func reconcileProcess(current, next Process, stats *ReconcileStats) (Process, bool) {
	incoming := make(map[string]Endpoint, len(next.Endpoints))
	for _, e := range next.Endpoints {
		incoming[e.TransportProfile] = e
	}

	changed := current.Extension != next.Extension
	endpoints := make([]Endpoint, 0, len(next.Endpoints))
	kept := make(map[string]struct{}, len(current.Endpoints))
	for _, e := range current.Endpoints {
		replacement, ok := incoming[e.TransportProfile]
		if !ok {
			stats.EndpointsRemoved++
			changed = true
			continue
		}
		kept[e.TransportProfile] = struct{}{}
		if !e.Equal(replacement) {
			stats.EndpointsUpdated++
			changed = true
		}
		endpoints = append(endpoints, replacement)
	}
	for _, e := range next.Endpoints {
		if _, ok := kept[e.TransportProfile]; ok {
			continue
		}
		stats.EndpointsAdded++
		changed = true
		endpoints = append(endpoints, e)
	}

	return Process{
		ProcessID: current.ProcessID,
		Endpoints: endpoints,
		Extension: next.Extension,
	}, changed
}

func cloneProcess(p Process) Process {
	endpoints := make([]Endpoint, len(p.Endpoints))
	copy(endpoints, p.Endpoints)
	p.Endpoints = endpoints
	return p
}
