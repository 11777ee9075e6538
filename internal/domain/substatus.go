package domain

type SubStatus string

const (
	SubStatusEnRoute           SubStatus = "en_camino"
	SubStatusOnSite            SubStatus = "en_sitio"
	SubStatusExecuting         SubStatus = "ejecutando"
	SubStatusAwaitingApproval  SubStatus = "esperando_aprobacion"
	SubStatusAwaitingSparePart SubStatus = "esperando_repuesto"
	SubStatusAwaitingClient    SubStatus = "esperando_cliente"
)

var subStatusesByStatus = map[Status][]SubStatus{
	StatusInProgress: {SubStatusEnRoute, SubStatusOnSite, SubStatusExecuting},
	StatusPending:    {SubStatusAwaitingApproval, SubStatusAwaitingSparePart, SubStatusAwaitingClient},
}

// SubStatusOptions returns the sub-statuses allowed while in status.
// Statuses without sub-states yield a single nil entry.
func SubStatusOptions(status Status) []*SubStatus {
	allowed, ok := subStatusesByStatus[status]
	if !ok {
		return []*SubStatus{nil}
	}
	out := make([]*SubStatus, len(allowed))
	for i := range allowed {
		s := allowed[i]
		out[i] = &s
	}
	return out
}

// ValidSubStatus reports whether sub may accompany status. A nil sub is
// always valid.
func ValidSubStatus(status Status, sub *SubStatus) bool {
	if sub == nil {
		return true
	}
	for _, s := range subStatusesByStatus[status] {
		if s == *sub {
			return true
		}
	}
	return false
}

// NormalizeSubStatus drops sub when status carries no sub-states.
func NormalizeSubStatus(status Status, sub *SubStatus) *SubStatus {
	if _, ok := subStatusesByStatus[status]; !ok {
		return nil
	}
	return sub
}
