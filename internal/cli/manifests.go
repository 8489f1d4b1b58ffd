package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newManifestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifests",
		Short: "List the manifest and lock files depsentry recognizes",
		RunE: func(c *cobra.Command, args []string) error {
			for _, p := range newRegistry().Providers() {
				fmt.Println(StyleTitle.Render(p.ID()) + StyleDim.Render(" ("+string(p.Ecosystem())+")"))
				if manifests := p.SupportedManifests(); len(manifests) > 0 {
					printDetail("manifests: %s", strings.Join(manifests, ", "))
				}
				if locks := p.SupportedLockfiles(); len(locks) > 0 {
					printDetail("lock files: %s", strings.Join(locks, ", "))
				}
			}
			return nil
		},
	}
}
