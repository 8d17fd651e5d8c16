// Package districts provides the static list of districts the pipeline
// queries. The canonical list ships with the binary; an override file (one
// district name per line) can replace it without a rebuild.
package districts

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"groundwatch/internal/models"
)

// maharashtra holds the 36 administrative districts of Maharashtra.
var maharashtra = []string{
	"Ahmednagar", "Akola", "Amravati", "Aurangabad", "Beed", "Bhandara",
	"Buldhana", "Chandrapur", "Dhule", "Gadchiroli", "Gondia", "Hingoli",
	"Jalgaon", "Jalna", "Kolhapur", "Latur", "Mumbai", "Mumbai Suburban",
	"Nagpur", "Nanded", "Nandurbar", "Nashik", "Osmanabad", "Palghar",
	"Parbhani", "Pune", "Raigad", "Ratnagiri", "Sangli", "Satara",
	"Sindhudurg", "Solapur", "Thane", "Wardha", "Washim", "Yavatmal",
}

// Load returns district refs for the given state. When path is non-empty the
// names are read from that file instead of the built-in list; limit > 0 caps
// the number of districts (the upstream API is slow, partial runs are useful
// for smoke testing). An empty resulting list is a startup error.
func Load(state, path string, limit int) ([]models.DistrictRef, error) {
	names := maharashtra
	if path != "" {
		loaded, err := readNames(path)
		if err != nil {
			return nil, fmt.Errorf("load districts file: %w", err)
		}
		names = loaded
	}

	if limit > 0 && limit < len(names) {
		names = names[:limit]
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no districts configured for state %q", state)
	}

	refs := make([]models.DistrictRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, models.DistrictRef{State: state, District: name})
	}
	return refs, nil
}

func readNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		names = append(names, name)
	}
	return names, scanner.Err()
}
