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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fatxforensics/fatxtk/internal/buildinfo"
	"github.com/fatxforensics/fatxtk/internal/logging"
)

const AppName = buildinfo.AppName

var (
	logLevelFlag string
	useMmapFlag  bool
	log          *slog.Logger = slog.Default()
)

func Execute() error {
	rootCmd := &cobra.Command{
		Use:           AppName,
		Short:         AppName + " - FATX forensic toolkit for Xbox and Xbox 360 disk images",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = logging.New(os.Stderr, logging.ParseLevel(logLevelFlag))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&useMmapFlag, "mmap", false, "memory-map the image instead of reading through the file handle")

	rootCmd.AddCommand(DefineProbeCommand())
	rootCmd.AddCommand(DefineOrphanCommand())
	rootCmd.AddCommand(DefineCarveCommand())
	rootCmd.AddCommand(DefineRecoverCommand())
	rootCmd.AddCommand(DefineMountCommand())
	rootCmd.AddCommand(DefineFormatsCommand())

	return rootCmd.Execute()
}
