package validator

import "github.com/hartzell-stephen-me/hdf5schema/schema"

// effectiveSchemas resolves the schema(s) that apply to childName: a
// literal members match wins outright and suppresses any pattern
// match; otherwise every matching patternMembers entry applies
// conjunctively, in declaration order (used only to stabilize error
// ordering, not to pick a winner).
func effectiveSchemas(group *schema.Node, childName string) []*schema.Node {
	if group.Members != nil {
		if lit, ok := group.Members[childName]; ok {
			return []*schema.Node{lit}
		}
	}
	var matches []*schema.Node
	for _, pm := range group.PatternMembers {
		if pm.Regex.MatchString(childName) {
			matches = append(matches, pm.Node)
		}
	}
	return matches
}

// missingRequiredMembers reports a MissingMember error for every name
// in group.Required that is absent from actualNames.
func missingRequiredMembers(group *schema.Node, actualNames map[string]bool) []ErrorRecord {
	var out []ErrorRecord
	for _, name := range group.Required {
		if !actualNames[name] {
			out = append(out, ErrorRecord{Kind: MissingMember, Message: "required member " + name + " is absent",
				Context: map[string]any{"name": name}})
		}
	}
	return out
}
