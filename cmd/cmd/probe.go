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

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
)

type probeRow struct {
	Partition string `csv:"partition"`
	Offset    string `csv:"offset"`
	Length    string `csv:"length"`
	Size      string `csv:"size_human"`
}

func DefineProbeCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "probe <image>",
		Short: "Detect drive layout and list partitions",
		Long: `The 'probe' command reads an Original Xbox or Xbox 360 disk image and
determines which of the three known drive layouts it holds (Original Xbox
retail, Xbox 360 devkit or Xbox 360 retail), then prints the byte range of
every partition it finds.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, d, err := openDrive(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			log.Info("probed drive", "path", args[0], "kind", d.Kind.String(), "partitions", len(d.Partitions))

			rows := make([]probeRow, len(d.Partitions))
			for i, p := range d.Partitions {
				rows[i] = probeRow{
					Partition: p.Name,
					Offset:    fmt.Sprintf("%#x", p.Offset),
					Length:    fmt.Sprintf("%#x", p.Length),
					Size:      humanize.Bytes(p.Length),
				}
			}

			switch format {
			case "csv":
				out, err := gocsv.MarshalString(&rows)
				if err != nil {
					return err
				}
				fmt.Print(out)
			default:
				fmt.Printf("drive kind: %s\n\n", d.Kind.String())
				fmt.Printf("%-16s %-14s %-14s %s\n", "PARTITION", "OFFSET", "LENGTH", "SIZE")
				for _, r := range rows {
					fmt.Printf("%-16s %-14s %-14s %s\n", r.Partition, r.Offset, r.Length, r.Size)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table or csv")
	return cmd
}
