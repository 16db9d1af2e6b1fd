package repair

type RecipientRole string

const (
	RoleCustomer   RecipientRole = "customer"
	RoleTechnician RecipientRole = "technician"
)

type Recipient struct {
	ID   string
	Role RecipientRole
}

// RecipientsFor computes who gets notified about an event, keyed on kind:
// status changes go to the customer and every open technician, a failing
// quality check goes to the open technicians only, and an assignment goes
// to the newly assigned technician. Everything else is silent.
func RecipientsFor(ev Event, agg Aggregate) []Recipient {
	switch ev.Kind {
	case EventStatusChange:
		out := []Recipient{{ID: agg.CustomerRef, Role: RoleCustomer}}
		for _, as := range agg.OpenAssignments() {
			out = append(out, Recipient{ID: as.TechnicianID, Role: RoleTechnician})
		}
		return dedupeRecipients(out)

	case EventQualityCheck:
		p, err := ev.QualityCheck()
		if err != nil || p.Passed {
			return nil
		}
		out := make([]Recipient, 0, len(agg.Assignments))
		for _, as := range agg.OpenAssignments() {
			out = append(out, Recipient{ID: as.TechnicianID, Role: RoleTechnician})
		}
		return dedupeRecipients(out)

	case EventTechnicianAssigned:
		p, err := ev.Assignment()
		if err != nil {
			return nil
		}
		return []Recipient{{ID: p.TechnicianID, Role: RoleTechnician}}

	default:
		return nil
	}
}

func dedupeRecipients(in []Recipient) []Recipient {
	seen := make(map[string]struct{}, len(in))
	out := make([]Recipient, 0, len(in))
	for _, r := range in {
		if r.ID == "" {
			continue
		}
		key := string(r.Role) + ":" + r.ID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
