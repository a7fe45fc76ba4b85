package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rtxscan/rtx/internal/scanner"
)

// cmdListManagers prints every registered scanner's canonical name and
// its known aliases, for discovering valid -managers values.
func cmdListManagers(ctx context.Context, cfg envConfig, args []string) int {
	aliases := scanner.Aliases()
	byCanonical := make(map[string][]string)
	for alias, canonical := range aliases {
		if alias == canonical {
			continue
		}
		byCanonical[canonical] = append(byCanonical[canonical], alias)
	}

	names := make([]string, 0, len(scanner.Registered()))
	for name := range scanner.Registered() {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MANAGER\tALIASES")
	for _, name := range names {
		as := byCanonical[name]
		sort.Strings(as)
		fmt.Fprintf(tw, "%s\t%v\n", name, as)
	}
	tw.Flush()
	return 0
}
