// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fatxforensics/fatxtk/internal/carve"
)

func DefineFormatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the signatures carve understands",
		Long: `The 'formats' command lists the per-drive-kind signature registries carve
dispatches against: {XBE, PE, PDB} on Original Xbox volumes, {XEX, PDB,
LIVE, PE} on Xbox 360 volumes.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DRIVE KIND\tSIGNATURE")

			printRegistry := func(kind string, r *carve.Registry) {
				for _, name := range registrySignatureNames(r) {
					fmt.Fprintf(w, "%s\t%s\n", kind, name)
				}
			}
			printRegistry("original-xbox", carve.DefaultOriginalXboxRegistry())
			printRegistry("xbox360", carve.DefaultXbox360Registry())
			return w.Flush()
		},
	}
	return cmd
}

// registrySignatureNames instantiates every factory in r just to read its
// Name(), since Registry does not otherwise expose factory names.
func registrySignatureNames(r *carve.Registry) []string {
	var names []string
	r.Each(func(s carve.Signature) {
		names = append(names, s.Name())
	})
	return names
}
