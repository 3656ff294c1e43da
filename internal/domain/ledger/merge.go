package ledger

import (
	"sort"

	"github.com/google/uuid"
)

// Merge combines a remote copy of a ledger with the local copy.
//
// Postings are merged as an append-only log: the result holds the union of
// both histories keyed by posting id, a posting cancelled on either side stays
// cancelled, and a posting compensated twice keeps only its earliest reversal.
// Scalar fields come from remote. Totals are recomputed from the merged history.
func Merge(local, remote *LedgerRecord) *LedgerRecord {
	if local == nil {
		return remote.Clone()
	}
	if remote == nil {
		return local.Clone()
	}

	merged := remote.Clone()
	merged.History = mergeHistories(local.History, remote.History)
	merged.Appointments = mergeAppointments(local.Appointments, remote.Appointments)
	if merged.CustomerPhone == "" {
		merged.CustomerPhone = local.CustomerPhone
	}
	if local.CreatedAt.Before(merged.CreatedAt) {
		merged.CreatedAt = local.CreatedAt
	}
	if local.Version > merged.Version {
		merged.Version = local.Version
	}
	merged.Recompute()
	return merged
}

// Absorb folds another ledger for the same customer into r, keeping r's id.
// Used when two records end up sharing a customer key.
func (r *LedgerRecord) Absorb(other *LedgerRecord) {
	if other == nil || other.ID == r.ID {
		return
	}
	r.History = mergeHistories(r.History, other.History)
	r.Appointments = mergeAppointments(r.Appointments, other.Appointments)
	if r.CustomerPhone == "" {
		r.CustomerPhone = other.CustomerPhone
	}
	r.Recompute()
	r.touch()
}

func mergeHistories(local, remote []LedgerPosting) []LedgerPosting {
	byID := make(map[uuid.UUID]LedgerPosting, len(local)+len(remote))
	for _, p := range remote {
		byID[p.ID] = p
	}
	for _, p := range local {
		existing, ok := byID[p.ID]
		if !ok {
			byID[p.ID] = p
			continue
		}
		if p.IsCancelled() && !existing.IsCancelled() {
			existing.Status = PostingStatusCancelled
			byID[p.ID] = existing
		}
	}

	merged := make([]LedgerPosting, 0, len(byID))
	for _, p := range byID {
		merged = append(merged, p)
	}
	sortNewestFirst(merged)

	// Keep the earliest reversal per original posting. Iterating oldest first.
	seen := make(map[uuid.UUID]bool)
	out := make([]LedgerPosting, 0, len(merged))
	for i := len(merged) - 1; i >= 0; i-- {
		p := merged[i]
		if p.IsReversal() && p.ReversalOf != nil {
			if seen[*p.ReversalOf] {
				continue
			}
			seen[*p.ReversalOf] = true
		}
		out = append(out, p)
	}
	reverse(out)

	// A reversal that survived means its original is cancelled on every side.
	cancelled := make(map[uuid.UUID]bool, len(seen))
	for id := range seen {
		cancelled[id] = true
	}
	for i := range out {
		if cancelled[out[i].ID] {
			out[i].Status = PostingStatusCancelled
		}
	}
	return out
}

func mergeAppointments(local, remote []Appointment) []Appointment {
	byID := make(map[uuid.UUID]Appointment, len(local)+len(remote))
	order := make([]uuid.UUID, 0, len(local)+len(remote))
	for _, a := range remote {
		if _, ok := byID[a.ID]; !ok {
			order = append(order, a.ID)
		}
		byID[a.ID] = a
	}
	for _, a := range local {
		existing, ok := byID[a.ID]
		if !ok {
			byID[a.ID] = a
			order = append(order, a.ID)
			continue
		}
		if a.IsCancelled() {
			existing.Status = AppointmentStatusCancelled
			byID[a.ID] = existing
		}
	}

	out := make([]Appointment, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

func sortNewestFirst(postings []LedgerPosting) {
	sort.SliceStable(postings, func(i, j int) bool {
		if postings[i].CreatedAt.Equal(postings[j].CreatedAt) {
			return postings[i].ID.String() > postings[j].ID.String()
		}
		return postings[i].CreatedAt.After(postings[j].CreatedAt)
	})
}

func reverse(postings []LedgerPosting) {
	for i, j := 0, len(postings)-1; i < j; i, j = i+1, j-1 {
		postings[i], postings[j] = postings[j], postings[i]
	}
}
