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

	"github.com/spf13/cobra"

	"github.com/fatxforensics/fatxtk/internal/carve"
	"github.com/fatxforensics/fatxtk/internal/drive"
	"github.com/fatxforensics/fatxtk/internal/recover"
	"github.com/fatxforensics/fatxtk/pkg/pbar"
)

func DefineCarveCommand() *cobra.Command {
	var (
		partition string
		stride    int64
		length    int64
		outDir    string
		progress  bool
	)

	cmd := &cobra.Command{
		Use:   "carve <image>",
		Short: "Carve known file signatures out of a partition's file area",
		Long: `The 'carve' command scans a partition's file area at a fixed stride,
testing every offset against the signature set appropriate to the drive's
kind (XBE/PE/PDB on Original Xbox, XEX/PDB/LIVE/PE on Xbox 360), and writes
every match to the output directory.`,
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

			registry := carve.DefaultXbox360Registry()
			if d.Kind == drive.KindOriginalXbox {
				registry = carve.DefaultOriginalXboxRegistry()
			}

			opts := carve.ScanOptions{Stride: stride, Length: length}
			if progress {
				barLength := length
				if barLength == 0 {
					barLength = v.Layout.BytesPerCluster * int64(v.Layout.MaxClusters-1)
				}
				bar := pbar.NewProgressBarState(barLength)
				opts.Progress = func(offset int64) {
					bar.ProcessedBytes = offset
					bar.Render(false)
				}
			}

			finds, err := carve.Scan(v, registry, opts)
			if progress {
				fmt.Println()
			}
			if err != nil {
				return err
			}
			log.Info("carve scan complete", "partition", p.Name, "finds", len(finds))

			w := &recover.Writer{Volume: v, OutputDir: outDir, Logger: log}
			if err := w.WriteCarved(finds); err != nil {
				return err
			}

			for _, find := range finds {
				fmt.Printf("%-6s offset=%#x length=%#x name=%q\n", find.SignatureName, find.Offset, find.Result.Length, find.Result.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "Partition1", "partition to scan")
	cmd.Flags().Int64Var(&stride, "stride", 0x1000, "scan stride: one of 1, 0x200, 0x1000, 0x4000")
	cmd.Flags().Int64Var(&length, "length", 0, "bytes of the file area to scan; 0 scans the whole volume")
	cmd.Flags().StringVar(&outDir, "out", "carved", "output directory for carved files")
	cmd.Flags().BoolVar(&progress, "progress", false, "print a progress bar while scanning")
	return cmd
}
