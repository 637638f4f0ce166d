package verify

import "sort"

// Reconcile computes the role deltas for an entitlement change. grant is
// applied to the member claiming the entitlement; revoke is applied to a
// previous holder of the same marketplace account.
//
// grant holds the entitled plugin roles plus the buyer role, minus whatever
// currentRoles already contains. revoke holds the plugin roles in
// currentRoles that the new entitlement no longer covers; when that leaves
// the member with zero covered plugin roles, the buyer role is revoked too
// and is always the LAST element, so callers can strip plugin roles before
// the buyer marker.
//
// Calling Reconcile again after applying the grants yields an empty grant
// set. Roles outside slugToRole and the buyer role are never touched.
func Reconcile(currentRoles, entitledSlugs []string, slugToRole map[string]string, buyerRole string) (grant, revoke []string) {
	entitled := make(map[string]bool, len(entitledSlugs))
	for _, slug := range entitledSlugs {
		if role, ok := slugToRole[slug]; ok && role != "" {
			entitled[role] = true
		}
	}
	managed := make(map[string]bool, len(slugToRole))
	for _, role := range slugToRole {
		managed[role] = true
	}

	current := make(map[string]bool, len(currentRoles))
	for _, role := range currentRoles {
		current[role] = true
	}

	for role := range entitled {
		if !current[role] {
			grant = append(grant, role)
		}
	}
	sort.Strings(grant)
	if buyerRole != "" && !current[buyerRole] {
		grant = append(grant, buyerRole)
	}

	keptPluginRoles := 0
	for role := range current {
		if !managed[role] {
			continue
		}
		if entitled[role] {
			keptPluginRoles++
		} else {
			revoke = append(revoke, role)
		}
	}
	sort.Strings(revoke)
	if keptPluginRoles == 0 && buyerRole != "" && current[buyerRole] {
		revoke = append(revoke, buyerRole)
	}
	return grant, revoke
}
