package internal

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/pkgs/gnu"
)

var infoCmd = &cobra.Command{
	Use:   "info [recipe]",
	Short: "Show the declarations of a recipe",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	pkg, err := loadRecipe(args[0])
	if err != nil {
		return err
	}
	return printInfo(cmd.OutOrStdout(), pkg)
}

func printInfo(w io.Writer, pkg *formula.Package) error {
	fmt.Fprintf(w, "%s: %s\n", pkg.Name, pkg.Homepage)
	if pkg.Description != "" {
		fmt.Fprintf(w, "\n%s\n", pkg.Description)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\nVersions:\n")
	preferred := pkg.PreferredVersion()
	versions := pkg.Versions()
	slices.SortStableFunc(versions, func(a, b formula.VersionDecl) int {
		return gnu.Compare(b.Version, a.Version)
	})
	for _, v := range versions {
		mark := ""
		if v.Version == preferred {
			mark = " (preferred)"
		}
		fmt.Fprintf(tw, "  %s%s\t%s\t%s\n", v.Version, mark, v.Checksum, pkg.URL(v.Version))
	}

	fmt.Fprintf(tw, "\nVariants:\n")
	for _, v := range pkg.Variants() {
		def := "~"
		if v.Default {
			def = "+"
		}
		fmt.Fprintf(tw, "  %s%s\t%s\n", def, v.Name, v.Description)
	}

	if deps := pkg.Dependencies(); len(deps) > 0 {
		fmt.Fprintf(tw, "\nDependencies:\n")
		for _, d := range deps {
			when := d.When
			if when == "" {
				when = "always"
			}
			fmt.Fprintf(tw, "  %s\twhen %s\n", d.Name, when)
		}
	}

	if patches := pkg.Patches(); len(patches) > 0 {
		fmt.Fprintf(tw, "\nPatches:\n")
		for _, p := range patches {
			fmt.Fprintf(tw, "  %s\n", p)
		}
	}
	fmt.Fprintf(tw, "\nParallel build:\t%v\n", pkg.Parallel)
	return tw.Flush()
}
