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
	"os"

	"github.com/spf13/cobra"

	"github.com/fatxforensics/fatxtk/internal/jsonexport"
	"github.com/fatxforensics/fatxtk/internal/orphan"
	"github.com/fatxforensics/fatxtk/internal/recover"
	"github.com/fatxforensics/fatxtk/internal/tui"
)

func DefineOrphanCommand() *cobra.Command {
	var (
		partition   string
		outDir      string
		jsonOut     string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "orphan <image>",
		Short: "Recover dirents unreachable from the live directory tree",
		Long: `The 'orphan' command scans every cluster of a partition for dirent-shaped
data, validates each candidate independently of the FAT, and re-links
directories and their children using FAT chain membership. Use --out to
materialize recovered files and --json to additionally (or instead) emit
the recovered tree as the toolkit's interchange JSON format.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, d, err := openDrive(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := findPartition(d, partition)
			if err != nil {
				return err
			}

			v, err := openVolume(f, d, p)
			if err != nil {
				return err
			}

			opts := orphan.Options{Logger: log}
			candidates := orphan.Scan(v, opts)

			if interactive {
				reviewed, err := tui.ReviewCandidates(candidates)
				if err != nil {
					return err
				}
				candidates = reviewed
			}

			forest := orphan.Relink(v, candidates, opts)
			log.Info("orphan scan complete", "partition", p.Name, "candidates", len(candidates), "roots", len(forest.Roots()))

			if jsonOut != "" {
				out, err := os.Create(jsonOut)
				if err != nil {
					return err
				}
				defer out.Close()
				if err := jsonexport.WritePartition(out, p.Offset, p.Length, forest, d.Kind.Epoch()); err != nil {
					return err
				}
			}

			if outDir != "" {
				w := &recover.Writer{Volume: v, OutputDir: outDir, Logger: log}
				for _, root := range forest.Roots() {
					if err := w.WriteUnconventional(forest, root, ""); err != nil {
						log.Warn("failed to write orphan root", "err", err)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "Partition1", "partition to scan")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to materialize recovered files into; empty skips recovery")
	cmd.Flags().StringVar(&jsonOut, "json", "", "file to write the recovered tree as JSON; empty skips export")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "review candidates in a full-screen TUI before re-linking")
	return cmd
}
