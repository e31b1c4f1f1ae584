package outlet

import (
	"fmt"
	"strings"
)

const noOutletsText = "No outlets found. Try: outlets in Petaling Jaya, outlets with drive-through, or list all outlets."

// Format renders records for the requested detail.
func Format(records []Record, detail Detail) string {
	if len(records) == 0 {
		return noOutletsText
	}

	var b strings.Builder
	switch detail {
	case DetailHours:
		fmt.Fprintf(&b, "Opening hours for %s:", countLabel(len(records)))
		for _, r := range records {
			fmt.Fprintf(&b, "\n• %s (%s): %s", r.Name, r.Location, r.Hours)
		}
	case DetailAddress:
		fmt.Fprintf(&b, "Addresses for %s:", countLabel(len(records)))
		for _, r := range records {
			fmt.Fprintf(&b, "\n• %s: %s", r.Name, r.Address)
		}
	default:
		fmt.Fprintf(&b, "Found %s:", countLabel(len(records)))
		for _, r := range records {
			fmt.Fprintf(&b, "\n• %s, %s. Hours %s. Services: %s", r.Name, r.Location, r.Hours, strings.Join(r.Services, ", "))
		}
	}
	return b.String()
}

func countLabel(n int) string {
	if n == 1 {
		return "1 outlet"
	}
	return fmt.Sprintf("%d outlets", n)
}
